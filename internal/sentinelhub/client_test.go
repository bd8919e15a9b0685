package sentinelhub

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/image/tiff"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
	"github.com/TechRanger101/AgriSense-App/internal/stac"
)

const testToken = "test-token"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHub serves the token endpoint and delegates everything else, checking
// the bearer token first.
func fakeHub(t *testing.T, api http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("token request is not a form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, testToken)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+testToken {
			t.Errorf("Authorization = %q", got)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		api(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
	}, 10*time.Second).WithLogger(quietLogger())

	return server, client
}

func testRequest() imagery.Request {
	return imagery.Request{
		BBox:   orb.Bound{Min: orb.Point{10, 45}, Max: orb.Point{10.1, 45.05}},
		From:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC),
		Script: imagery.Script{Bands: []imagery.Band{imagery.Red, imagery.NIR}, InvalidSCL: []int{1, 3, 8, 9, 10, 11}},
		Width:  3,
		Height: 2,
	}
}

// processArchive builds a tar with one UINT16 TIFF per band and a UINT8
// validity mask.
func processArchive(t *testing.T, w, h int, bands map[string][]uint16, valid []uint8) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	add := func(name string, img image.Image) {
		var enc bytes.Buffer
		if err := tiff.Encode(&enc, img, nil); err != nil {
			t.Fatalf("tiff.Encode failed: %v", err)
		}
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(enc.Len()), Typeflag: tar.TypeReg}); err != nil {
			t.Fatalf("WriteHeader failed: %v", err)
		}
		if _, err := tw.Write(enc.Bytes()); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	for name, values := range bands {
		img := image.NewGray16(image.Rect(0, 0, w, h))
		for i, v := range values {
			img.Pix[2*i] = byte(v >> 8)
			img.Pix[2*i+1] = byte(v)
		}
		add(name+".tif", img)
	}
	if valid != nil {
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, valid)
		add("valid.tif", img)
	}

	meta := []byte(`{"norm":1}`)
	if err := tw.WriteHeader(&tar.Header{Name: "userdata.json", Mode: 0o644, Size: int64(len(meta)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	tw.Write(meta)

	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return buf.Bytes()
}

func TestClient_Fetch_Success(t *testing.T) {
	archive := processArchive(t, 3, 2,
		map[string][]uint16{
			"B04": {500, 1000, 1500, 2000, 2500, 0},
			"B08": {4000, 4000, 4000, 4000, 4000, 0},
		},
		[]uint8{1, 1, 1, 1, 1, 0},
	)

	var body processRequest
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != processPath {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode process request: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-tar")
		w.Write(archive)
	})

	sample, err := client.Fetch(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if body.Input.Data[0].Type != DefaultCollection {
		t.Errorf("collection = %q", body.Input.Data[0].Type)
	}
	if tr := body.Input.Data[0].DataFilter.TimeRange; tr.From != "2024-06-01T00:00:00Z" || tr.To != "2024-06-01T23:59:59Z" {
		t.Errorf("time range = %+v", tr)
	}
	if got := body.Input.Bounds.BBox; len(got) != 4 || got[0] != 10 || got[3] != 45.05 {
		t.Errorf("bbox = %v", got)
	}
	if body.Output.Width != 3 || body.Output.Height != 2 || len(body.Output.Responses) != 3 {
		t.Errorf("output = %+v", body.Output)
	}
	if !strings.Contains(body.Evalscript, `mosaicking: "ORBIT"`) {
		t.Errorf("evalscript does not composite orbits:\n%s", body.Evalscript)
	}

	red, ok := sample.Band(imagery.Red)
	if !ok {
		t.Fatal("red band missing")
	}
	if red.At(0, 0) != 0.05 || red.At(1, 1) != 0.25 {
		t.Errorf("red = %v", red.Values)
	}
	nir, _ := sample.Band(imagery.NIR)
	if nir.At(2, 0) != 0.4 {
		t.Errorf("nir = %v", nir.Values)
	}
	if !sample.IsValid(0) || sample.IsValid(5) {
		t.Errorf("valid = %v", sample.Valid)
	}
}

func TestClient_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      []byte
		transient bool
		upstream  bool
	}{
		{name: "bad request", status: http.StatusBadRequest, body: []byte(`{"error":"bad"}`), upstream: true},
		{name: "rate limited", status: http.StatusTooManyRequests, upstream: true, transient: true},
		{name: "server error", status: http.StatusInternalServerError, upstream: true, transient: true},
		{name: "not a tar", status: http.StatusOK, body: []byte("garbage")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			})

			_, err := client.Fetch(context.Background(), testRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			var ue *imagery.UpstreamError
			if errors.As(err, &ue) != tt.upstream {
				t.Fatalf("UpstreamError = %v, want %v (err %v)", ue != nil, tt.upstream, err)
			}
			if tt.upstream {
				if ue.StatusCode != tt.status {
					t.Errorf("status = %d, want %d", ue.StatusCode, tt.status)
				}
				if ue.Transient() != tt.transient {
					t.Errorf("Transient() = %v, want %v", ue.Transient(), tt.transient)
				}
			}
		})
	}
}

func TestClient_Fetch_MissingOutput(t *testing.T) {
	archive := processArchive(t, 3, 2, map[string][]uint16{"B04": make([]uint16, 6)}, []uint8{1, 1, 1, 1, 1, 1})
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	_, err := client.Fetch(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "B08") {
		t.Fatalf("expected missing B08 error, got %v", err)
	}
}

func TestClient_Fetch_WrongSize(t *testing.T) {
	archive := processArchive(t, 2, 2, map[string][]uint16{
		"B04": make([]uint16, 4),
		"B08": make([]uint16, 4),
	}, []uint8{1, 1, 1, 1})
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	if _, err := client.Fetch(context.Background(), testRequest()); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestClient_Fetch_InvalidRequest(t *testing.T) {
	var calls int32
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	req := testRequest()
	req.Width = 0
	if _, err := client.Fetch(context.Background(), req); err == nil {
		t.Fatal("expected validation error")
	}
	if calls != 0 {
		t.Errorf("invalid request reached the server")
	}
}

func TestClient_TokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, Credentials{ClientID: "id", ClientSecret: "wrong", TokenURL: server.URL + "/token"}, 5*time.Second).
		WithLogger(quietLogger())

	_, err := client.Fetch(context.Background(), testRequest())
	var ue *imagery.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusUnauthorized || ue.Transient() {
		t.Errorf("unexpected error %+v", ue)
	}
}

func TestClient_Fetch_RetriesTransientFailures(t *testing.T) {
	archive := processArchive(t, 3, 2, map[string][]uint16{
		"B04": make([]uint16, 6),
		"B08": make([]uint16, 6),
	}, make([]uint8, 6))

	var calls int32
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write(archive)
	})

	fetcher := imagery.NewRetryingFetcher(client, imagery.RetryOptions{
		AttemptTimeout:  5 * time.Second,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	}).WithLogger(quietLogger())

	if _, err := fetcher.Fetch(context.Background(), testRequest()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 process calls, got %d", calls)
	}
}

func TestEvalscript(t *testing.T) {
	script, err := Evalscript(imagery.Script{
		Bands:      []imagery.Band{imagery.Red, imagery.NIR, imagery.SWIR1},
		InvalidSCL: []int{1, 3, 7},
	})
	if err != nil {
		t.Fatalf("Evalscript failed: %v", err)
	}

	for _, want := range []string{
		"//VERSION=3",
		`bands: ["B04", "B08", "B11", "SCL", "dataMask"]`,
		`{ id: "B11", bands: 1, sampleType: "UINT16" }`,
		`{ id: "valid", bands: 1, sampleType: "UINT8" }`,
		"const invalidSCL = [1, 3, 7];",
		"s.B04 > 0 && s.B08 > 0 && s.B11 > 0",
		"return values[Math.floor(values.length / 4)];",
		"B08: [Math.round(firstQuartile(kept.map((s) => s.B08)) * 10000)]",
		"return { B04: [0], B08: [0], B11: [0], valid: [0] };",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("evalscript missing %q:\n%s", want, script)
		}
	}
}

func TestEvalscript_UnknownBand(t *testing.T) {
	if _, err := Evalscript(imagery.Script{Bands: []imagery.Band{"UV"}}); err == nil {
		t.Error("expected error for unknown band")
	}
	if _, err := Evalscript(imagery.Script{}); err == nil {
		t.Error("expected error for empty script")
	}
}

func TestClient_AcquisitionDates(t *testing.T) {
	var requests []stac.SearchRequest
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != catalogPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req stac.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode search: %v", err)
		}
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/geo+json")
		if req.Next == nil {
			fmt.Fprint(w, `{"type":"FeatureCollection","features":[
				{"type":"Feature","stac_version":"1.0.0","id":"a","geometry":null,"properties":{"datetime":"2024-03-02T10:20:31Z"},"links":[],"assets":{}},
				{"type":"Feature","stac_version":"1.0.0","id":"b","geometry":null,"properties":{"datetime":"2024-01-15T10:00:00Z"},"links":[],"assets":{}}
			],"context":{"next":2,"limit":2,"returned":2}}`)
			return
		}
		fmt.Fprint(w, `{"type":"FeatureCollection","features":[
			{"type":"Feature","stac_version":"1.0.0","id":"c","geometry":null,"properties":{"datetime":"2024-03-02T10:21:00Z"},"links":[],"assets":{}}
		],"context":{"limit":2,"returned":1}}`)
	})

	dates, err := client.AcquisitionDates(context.Background(), stac.AvailabilityQuery{
		Collection:    "sentinel-2-l2a",
		BBox:          orb.Bound{Min: orb.Point{10, 45}, Max: orb.Point{11, 46}},
		Start:         time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: 20,
		Limit:         2,
	})
	if err != nil {
		t.Fatalf("AcquisitionDates failed: %v", err)
	}

	if fmt.Sprint(dates) != "[2024-01-15 2024-03-02]" {
		t.Errorf("dates = %v", dates)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(requests))
	}
	if requests[1].Next == nil || *requests[1].Next != 2 {
		t.Errorf("second page did not carry the next token")
	}
	if requests[0].FilterLang != stac.FilterLangCQL2JSON || requests[0].Filter == nil {
		t.Errorf("cloud cover filter missing: %+v", requests[0])
	}
}

func TestClient_Search_UpstreamError(t *testing.T) {
	_, client := fakeHub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog down", http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), stac.SearchRequest{Collections: []string{"sentinel-2-l2a"}})
	var ue *imagery.UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 UpstreamError, got %v", err)
	}
}
