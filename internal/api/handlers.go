package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/TechRanger101/AgriSense-App/internal/config"
	"github.com/TechRanger101/AgriSense-App/internal/pipeline"
	"github.com/TechRanger101/AgriSense-App/internal/stac"
	"github.com/TechRanger101/AgriSense-App/internal/translate"
	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// ForecastSkippedHeader carries the number of forecast elements that
// contributed nothing.
const ForecastSkippedHeader = "X-Forecast-Skipped"

// forecastSuffix turns a product endpoint into its forecast endpoint.
const forecastSuffix = "f"

// Runner executes classification requests.
type Runner interface {
	RunSingle(ctx context.Context, query orb.Geometry, date time.Time, product pipeline.Product) (*geojson.FeatureCollection, error)
	RunForecast(ctx context.Context, elements []pipeline.ForecastInput, product pipeline.Product) (*geojson.FeatureCollection, *pipeline.ForecastReport, error)
}

// Catalog lists acquisition dates.
type Catalog interface {
	AcquisitionDates(ctx context.Context, q stac.AvailabilityQuery) ([]string, error)
}

// Handlers contains all HTTP handlers of the service.
type Handlers struct {
	cfg      *config.Config
	runner   Runner
	catalog  Catalog
	products *config.ProductRegistry
	resolved map[string]pipeline.Product
	cache    stac.DateCache
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// Every product in the registry must resolve.
func NewHandlers(
	cfg *config.Config,
	runner Runner,
	catalog Catalog,
	products *config.ProductRegistry,
	logger *slog.Logger,
) (*Handlers, error) {
	resolved, err := pipeline.ProductsFromRegistry(products)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}

	return &Handlers{
		cfg:      cfg,
		runner:   runner,
		catalog:  catalog,
		products: products,
		resolved: resolved,
		logger:   logger,
	}, nil
}

// WithDateCache sets the cache for availability searches.
func (h *Handlers) WithDateCache(cache stac.DateCache) *Handlers {
	h.cache = cache
	return h
}

// Health returns the health status of the service.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "ok",
	}

	WriteJSON(w, http.StatusOK, response)
}

// productsResponse lists the served products.
type productsResponse struct {
	Products []*config.ProductConfig `json:"products"`
}

// Products lists the products and their class tables.
// GET /products
func (h *Handlers) Products(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, productsResponse{Products: h.products.All()})
}

// Availability returns the dates with Sentinel-2 acquisitions over an area.
// POST /sentinel-data-availability
func (h *Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeBody(r, &req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	query, ok := h.decodeQuery(w, req.Geometry)
	if !ok {
		return
	}

	if strings.TrimSpace(req.EndDate) == "" {
		WriteBadRequest(w, "end_date is required")
		return
	}
	end, err := translate.ParseDate(req.EndDate)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	cloud, err := req.cloudCoverage()
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}
	if cloud > 100 {
		WriteInvalidParameter(w, "cloud coverage value cannot be greater than 100")
		return
	}
	if cloud < 0 {
		WriteInvalidParameter(w, "cloud coverage value cannot be negative")
		return
	}

	start, err := h.cfg.Catalog.Start()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "invalid catalog start date",
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "catalog is misconfigured")
		return
	}
	if end.Before(start) {
		WriteInvalidParameter(w, fmt.Sprintf("end_date must not be before %s", translate.FormatDate(start)))
		return
	}

	q := stac.AvailabilityQuery{
		Collection:    h.cfg.Catalog.Collection,
		BBox:          query.Bound(),
		Start:         start,
		End:           end,
		MaxCloudCover: cloud,
		Limit:         h.cfg.Catalog.PageLimit,
	}

	key := q.Key()
	if h.cache != nil {
		if dates, ok := h.cache.Get(key); ok {
			h.logger.DebugContext(r.Context(), "availability served from cache",
				slog.String("key", key),
			)
			WriteJSON(w, http.StatusOK, dates)
			return
		}
	}

	dates, err := h.catalog.AcquisitionDates(r.Context(), q)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	if h.cache != nil {
		h.cache.Put(key, dates)
	}

	WriteJSON(w, http.StatusOK, dates)
}

// Classify runs a product for one date, or a forecast when the path names a
// product followed by "f".
// POST /{product}
// POST /{product}f
func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "product")

	if h.products.Has(name) {
		h.single(w, r, h.resolved[name])
		return
	}
	if id, found := strings.CutSuffix(name, forecastSuffix); found && h.products.Has(id) {
		h.forecast(w, r, h.resolved[id])
		return
	}

	WriteNotFound(w, fmt.Sprintf("unknown product %q", name))
}

func (h *Handlers) single(w http.ResponseWriter, r *http.Request, product pipeline.Product) {
	var req classifyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	query, ok := h.decodeQuery(w, req.Geometry)
	if !ok {
		return
	}

	if strings.TrimSpace(req.Date) == "" {
		WriteBadRequest(w, "date is required")
		return
	}
	date, err := translate.ParseDate(req.Date)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	fc, err := h.runner.RunSingle(r.Context(), query, date, product)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	WriteGeoJSON(w, http.StatusOK, fc)
}

func (h *Handlers) forecast(w http.ResponseWriter, r *http.Request, product pipeline.Product) {
	var req forecastRequest
	if err := decodeBody(r, &req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	elements := make([]pipeline.ForecastInput, len(req.Features))
	for i, f := range req.Features {
		elements[i] = forecastInput(f)
	}

	fc, report, err := h.runner.RunForecast(r.Context(), elements, product)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	w.Header().Set(ForecastSkippedHeader, strconv.Itoa(len(report.Skipped)))
	WriteGeoJSON(w, http.StatusOK, fc)
}

// forecastInput converts one request feature. Elements that fail to decode
// are passed on with their error so the run reports them as skipped.
func forecastInput(f forecastFeature) pipeline.ForecastInput {
	var in pipeline.ForecastInput

	g, err := translate.DecodeGeometry(f.Geometry)
	switch {
	case errors.Is(err, translate.ErrMissingGeometry):
	case err != nil:
		in.Err = err
		return in
	default:
		in.Geometry = g
	}

	if strings.TrimSpace(f.Properties.Date) != "" {
		date, err := translate.ParseDate(f.Properties.Date)
		if err != nil {
			in.Err = fmt.Errorf("%w: %v", pipeline.ErrMissingInput, err)
			return in
		}
		in.Date = date
	}

	return in
}

// decodeQuery validates the geometry member of a request and writes the
// error response on failure.
func (h *Handlers) decodeQuery(w http.ResponseWriter, raw []byte) (orb.Geometry, bool) {
	query, err := translate.DecodeQuery(raw)
	switch {
	case errors.Is(err, translate.ErrMissingGeometry):
		WriteBadRequest(w, "geometry is required")
		return nil, false
	case err != nil:
		WriteInvalidParameter(w, err.Error())
		return nil, false
	}
	return query, true
}
