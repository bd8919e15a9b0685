package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"error", io.ErrUnexpectedEOF},
		{"string", "something went wrong"},
		{"int", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ndvi", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("Expected status 500, got %d", w.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if resp.Code != ErrCodeServerError {
				t.Errorf("Expected code %s, got %s", ErrCodeServerError, resp.Code)
			}
			if !strings.Contains(logBuf.String(), "panic recovered") || !strings.Contains(logBuf.String(), "stack=") {
				t.Errorf("Expected panic and stack in log, got: %s", logBuf.String())
			}
		})
	}
}

func TestRecovery_ReRaisesAbortHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected http.ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRecovery_IncludesRequestIDInResponse(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := middleware.RequestID(Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})))

	req := httptest.NewRequest(http.MethodPost, "/ndvi", nil)
	req.Header.Set("X-Request-Id", "test-req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.RequestID != "test-req-123" {
		t.Errorf("Expected request_id 'test-req-123', got %s", resp.RequestID)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ndvi", nil))

			out := logBuf.String()
			for _, field := range []string{"http request", tt.wantLevel, "method=POST", "path=/ndvi", "duration="} {
				if !strings.Contains(out, field) {
					t.Errorf("Expected log to contain %q, got: %s", field, out)
				}
			}
		})
	}
}

func TestRequestLogger_RouteAndForecastSkips(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Post("/{product}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ForecastSkippedHeader, "2")
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ndvif", nil))

	out := logBuf.String()
	for _, field := range []string{"route=/{product}", "product=ndvif", "forecast_skipped=2", "request_id="} {
		if !strings.Contains(out, field) {
			t.Errorf("Expected log to contain %q, got: %s", field, out)
		}
	}
}

func TestContentTypeJSON_CanBeOverridden(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ndvi" {
			WriteGeoJSON(w, http.StatusOK, map[string]string{"type": "FeatureCollection"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for path, want := range map[string]string{"/health": "application/json", "/ndvi": "application/geo+json"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if got := w.Header().Get("Content-Type"); got != want {
			t.Errorf("%s: expected Content-Type %q, got %q", path, want, got)
		}
	}
}

func TestRequestIDResponse(t *testing.T) {
	handler := middleware.RequestID(RequestIDResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("Expected GetRequestID to return the chi request ID")
		}
		w.WriteHeader(http.StatusOK)
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "custom-request-id-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "custom-request-id-123" {
		t.Errorf("Expected incoming request ID to be echoed, got %s", got)
	}
}

func TestLimitBody(t *testing.T) {
	handler := LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for body, want := range map[string]int{"short": http.StatusOK, "far too long": http.StatusRequestEntityTooLarge} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ndvi", strings.NewReader(body)))
		if w.Code != want {
			t.Errorf("body %q: expected status %d, got %d", body, want, w.Code)
		}
	}
}

func TestRequireJSON(t *testing.T) {
	handler := RequireJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		method      string
		contentType string
		want        int
	}{
		{http.MethodPost, "", http.StatusOK},
		{http.MethodPost, "application/json", http.StatusOK},
		{http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{http.MethodPost, "application/geo+json", http.StatusOK},
		{http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{http.MethodGet, "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/ndvi", strings.NewReader("{}"))
		if tt.contentType != "" {
			req.Header.Set("Content-Type", tt.contentType)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %q: expected status %d, got %d", tt.method, tt.contentType, tt.want, w.Code)
		}
	}
}
