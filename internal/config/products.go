package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/TechRanger101/AgriSense-App/internal/forecast"
	"github.com/TechRanger101/AgriSense-App/internal/index"
)

// DefaultInvalidSCL lists the Sentinel-2 scene classification values that
// mark a pixel unusable: saturated, cloud shadow, cloud medium and high
// probability, thin cirrus and snow.
var DefaultInvalidSCL = []int{1, 3, 8, 9, 10, 11}

var productIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ProductConfig describes one classification product served under
// POST /{id} and POST /{id}f. Products are built in and may be overridden or
// extended by JSON files in the products directory.
type ProductConfig struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Formula names an index formula, e.g. "ndvi".
	Formula string `json:"formula"`
	// Table is the class table used for single-date requests.
	Table string `json:"table"`
	// ForecastTable is the class table used for each date of a forecast.
	ForecastTable string `json:"forecast_table"`
	// Property is the class property written on single-date features.
	Property string `json:"property"`
	// ForecastProperty is the class property written and read back during a
	// forecast. Empty means Property.
	ForecastProperty string `json:"forecast_property,omitempty"`
	// ForecastMode is "regression" or "mean".
	ForecastMode string `json:"forecast_mode"`
	// InvalidSCL overrides DefaultInvalidSCL when set.
	InvalidSCL []int `json:"invalid_scl,omitempty"`
}

// ClassPropertyForForecast returns the property used during a forecast.
func (p *ProductConfig) ClassPropertyForForecast() string {
	if p.ForecastProperty != "" {
		return p.ForecastProperty
	}
	return p.Property
}

// SCL returns the invalid scene classes for the product.
func (p *ProductConfig) SCL() []int {
	if len(p.InvalidSCL) > 0 {
		return p.InvalidSCL
	}
	return DefaultInvalidSCL
}

func builtinProducts() []*ProductConfig {
	return []*ProductConfig{
		{
			ID: "ndvi", Title: "Vegetation health",
			Description: "Normalized difference vegetation index",
			Formula:     index.NDVI, Table: index.TableVegetation, ForecastTable: index.TableVegetation,
			Property: forecast.ClassProperty, ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "nir", Title: "NIR ripeness",
			Description: "Near-infrared reflectance as a ripeness proxy",
			Formula:     index.NIRReflectance, Table: index.TableNIRRipeness, ForecastTable: index.TableNIRRipeness,
			Property: forecast.ClassProperty, ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "ndwi", Title: "Water content",
			Description: "Normalized difference water index",
			Formula:     index.NDWI, Table: index.TableMoisture, ForecastTable: index.TableVegetation,
			Property: forecast.ClassProperty, ForecastMode: string(forecast.ModeMean),
		},
		{
			ID: "ndmi", Title: "Moisture",
			Description: "Normalized difference moisture index",
			Formula:     index.NDMI, Table: index.TableMoisture, ForecastTable: index.TableMoisture,
			Property: forecast.ClassProperty, ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "cri", Title: "Crop ripeness",
			Description: "Red reflectance as a ripeness proxy",
			Formula:     index.RedReflectance, Table: index.TableReflectance, ForecastTable: index.TableRipeness,
			Property: forecast.ClassProperty, ForecastProperty: "ripeness_class",
			ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "wst", Title: "Water stress",
			Description: "Normalized pigment chlorophyll index",
			Formula:     index.NPCI, Table: index.TableMoisture, ForecastTable: index.TableVegetation,
			Property: forecast.ClassProperty, ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "cry", Title: "Crop yield",
			Description: "Atmospherically resistant vegetation index",
			Formula:     index.ARVI, Table: index.TableCanopy, ForecastTable: index.TableVegetation,
			Property: forecast.ClassProperty, ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "dsw", Title: "Disease and weeds",
			Description: "Atmospherically resistant vegetation index",
			Formula:     index.ARVI, Table: index.TableCanopy, ForecastTable: index.TableVegetation,
			Property: "arvi_class", ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "cpl", Title: "Chlorophyll",
			Description: "Chlorophyll absorption ratio index",
			Formula:     index.CARI, Table: index.TableCanopy, ForecastTable: index.TableVegetation,
			Property: "cari_class", ForecastMode: string(forecast.ModeRegression),
		},
		{
			ID: "cpg", Title: "Crop pigment",
			Description: "Modified chlorophyll absorption ratio index",
			Formula:     index.MCARI, Table: index.TableCanopy, ForecastTable: index.TableVegetation,
			Property: "mcari_class", ForecastMode: string(forecast.ModeRegression),
			InvalidSCL: []int{1, 3, 7, 8, 9, 10, 11},
		},
	}
}

// ProductRegistry holds the products indexed by ID.
type ProductRegistry struct {
	products map[string]*ProductConfig
}

// NewProductRegistry creates an empty registry.
func NewProductRegistry() *ProductRegistry {
	return &ProductRegistry{
		products: make(map[string]*ProductConfig),
	}
}

// DefaultProducts returns a registry with the built-in products.
func DefaultProducts() *ProductRegistry {
	r := NewProductRegistry()
	for _, p := range builtinProducts() {
		r.products[p.ID] = p
	}
	return r
}

// LoadProducts returns the built-in products overlaid with every .json file
// in dir. A file replaces the built-in product with the same ID. An empty
// dir yields the built-ins.
func LoadProducts(dir string) (*ProductRegistry, error) {
	registry := DefaultProducts()
	if dir == "" {
		return registry, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access products directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("products path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read products directory %q: %w", dir, err)
	}

	files := NewProductRegistry()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		product, err := loadProductFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load product from %q: %w", path, err)
		}
		if err := files.Add(product); err != nil {
			return nil, fmt.Errorf("failed to load product from %q: %w", path, err)
		}
	}

	for _, product := range files.All() {
		registry.Set(product)
	}
	return registry, nil
}

func loadProductFile(path string) (*ProductConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var product ProductConfig
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := ValidateProduct(&product); err != nil {
		return nil, fmt.Errorf("invalid product configuration: %w", err)
	}

	return &product, nil
}

// ValidateProduct checks that every name a product refers to exists.
func ValidateProduct(p *ProductConfig) error {
	if !productIDPattern.MatchString(p.ID) {
		return fmt.Errorf("product ID %q must be lowercase letters, digits and dashes", p.ID)
	}
	if p.Title == "" {
		return fmt.Errorf("product title is required")
	}
	if _, ok := index.LookupFormula(p.Formula); !ok {
		return fmt.Errorf("unknown formula %q, expected one of %v", p.Formula, index.FormulaNames())
	}
	if _, ok := index.LookupTable(p.Table); !ok {
		return fmt.Errorf("unknown table %q, expected one of %v", p.Table, index.TableNames())
	}
	if _, ok := index.LookupTable(p.ForecastTable); !ok {
		return fmt.Errorf("unknown forecast table %q, expected one of %v", p.ForecastTable, index.TableNames())
	}
	if p.Property == "" {
		return fmt.Errorf("product property is required")
	}
	if _, err := forecast.ParseMode(p.ForecastMode); err != nil {
		return err
	}
	for _, v := range p.InvalidSCL {
		if v < 0 || v > 11 {
			return fmt.Errorf("scene classification value %d out of range 0-11", v)
		}
	}
	return nil
}

// Add registers a product. It fails if the ID is taken.
func (r *ProductRegistry) Add(product *ProductConfig) error {
	if product == nil {
		return fmt.Errorf("cannot add nil product")
	}
	if _, exists := r.products[product.ID]; exists {
		return fmt.Errorf("product with ID %q already exists", product.ID)
	}
	r.products[product.ID] = product
	return nil
}

// Set registers a product, replacing any product with the same ID.
func (r *ProductRegistry) Set(product *ProductConfig) {
	r.products[product.ID] = product
}

// Get returns the product with the given ID, or nil.
func (r *ProductRegistry) Get(id string) *ProductConfig {
	return r.products[id]
}

// Has reports whether a product exists.
func (r *ProductRegistry) Has(id string) bool {
	_, exists := r.products[id]
	return exists
}

// All returns the products sorted by ID.
func (r *ProductRegistry) All() []*ProductConfig {
	products := make([]*ProductConfig, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// IDs returns the product IDs in sorted order.
func (r *ProductRegistry) IDs() []string {
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of products.
func (r *ProductRegistry) Count() int {
	return len(r.products)
}
