package pipeline

import (
	"fmt"

	"github.com/TechRanger101/AgriSense-App/internal/config"
	"github.com/TechRanger101/AgriSense-App/internal/forecast"
	"github.com/TechRanger101/AgriSense-App/internal/imagery"
	"github.com/TechRanger101/AgriSense-App/internal/index"
)

// Product binds a formula and class tables to the properties written on
// output features.
type Product struct {
	ID      string
	Formula index.Formula

	Table    index.ClassTable
	Property string

	ForecastTable    index.ClassTable
	ForecastProperty string
	Mode             forecast.Mode

	InvalidSCL []int
}

// Script returns the imagery script for the product.
func (p Product) Script() imagery.Script {
	return imagery.Script{
		Bands:      p.Formula.Bands,
		InvalidSCL: p.InvalidSCL,
	}
}

// ProductFromConfig resolves the names in a product configuration.
func ProductFromConfig(c *config.ProductConfig) (Product, error) {
	if err := config.ValidateProduct(c); err != nil {
		return Product{}, fmt.Errorf("product %q: %w", c.ID, err)
	}

	formula, _ := index.LookupFormula(c.Formula)
	table, _ := index.LookupTable(c.Table)
	forecastTable, _ := index.LookupTable(c.ForecastTable)
	mode, _ := forecast.ParseMode(c.ForecastMode)

	return Product{
		ID:               c.ID,
		Formula:          formula,
		Table:            table,
		Property:         c.Property,
		ForecastTable:    forecastTable,
		ForecastProperty: c.ClassPropertyForForecast(),
		Mode:             mode,
		InvalidSCL:       append([]int(nil), c.SCL()...),
	}, nil
}

// ProductsFromRegistry resolves every product in r, keyed by ID.
func ProductsFromRegistry(r *config.ProductRegistry) (map[string]Product, error) {
	products := make(map[string]Product, r.Count())
	for _, c := range r.All() {
		p, err := ProductFromConfig(c)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, nil
}
