package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader is the header name for request ID in responses.
const RequestIDHeader = "X-Request-ID"

// GetRequestID returns the request ID set by chi's RequestID middleware, or
// an empty string.
func GetRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// RequestIDResponse echoes the request ID in the X-Request-ID header.
// Place it after chi's middleware.RequestID.
func RequestIDResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set(RequestIDHeader, reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request. Server errors log at error level
// and client errors at warn.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
				if product := rctx.URLParam("product"); product != "" {
					attrs = append(attrs, slog.String("product", product))
				}
			}
			if skipped := ww.Header().Get(ForecastSkippedHeader); skipped != "" {
				attrs = append(attrs, slog.String("forecast_skipped", skipped))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}

// ContentTypeJSON defaults responses to application/json. Classification
// handlers switch to GeoJSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Recovery turns a panic in a handler into a 500 error response carrying the
// request ID. http.ErrAbortHandler is re-raised.
func Recovery(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				reqID := GetRequestID(r.Context())
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.String("request_id", reqID),
					slog.String("error", panicMessage(rec)),
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method),
					slog.String("stack", string(debug.Stack())),
				)

				WriteInternalErrorWithRequestID(w, "internal server error", reqID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicMessage(rec any) string {
	switch v := rec.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// LimitBody caps the size of request bodies. Reads past the limit fail.
func LimitBody(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON rejects POST bodies that declare a non-JSON media type.
// A missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ct := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
			if ct != "" && ct != "application/json" && ct != "application/geo+json" {
				WriteError(w, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType,
					fmt.Sprintf("unsupported content type %q", ct))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
