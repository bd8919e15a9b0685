package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Options{Logger: quietLogger()}); err == nil {
		t.Fatal("Expected error without credentials")
	}
}

func TestNew_InvalidStartDate(t *testing.T) {
	_, err := New(Options{
		ClientID:         "id",
		ClientSecret:     "secret",
		CatalogStartDate: "yesterday",
		Logger:           quietLogger(),
	})
	if err == nil {
		t.Fatal("Expected error for invalid start date")
	}
}

func TestNew_ServesRoutes(t *testing.T) {
	srv, err := New(Options{
		ClientID:     "id",
		ClientSecret: "secret",
		CacheTTL:     time.Minute,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	for _, path := range []string{"/health", "/products"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"ndvi"`) {
		t.Errorf("Expected ndvi in products, got %s", w.Body.String())
	}
}

func TestNew_UnknownProductsDir(t *testing.T) {
	_, err := New(Options{
		ClientID:     "id",
		ClientSecret: "secret",
		ProductsDir:  t.TempDir() + "/missing",
		Logger:       quietLogger(),
	})
	if err == nil {
		t.Fatal("Expected error for missing products directory")
	}
}
