// Package index computes per-pixel spectral indices and reclassifies them into
// ordered classes.
package index

import (
	"math"
	"sort"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// Formula names.
const (
	NDVI           = "ndvi"
	NDWI           = "ndwi"
	NDMI           = "ndmi"
	NPCI           = "npci"
	ARVI           = "arvi"
	CARI           = "cari"
	MCARI          = "mcari"
	RedReflectance = "red-reflectance"
	NIRReflectance = "nir-reflectance"
)

// canopyThreshold is the SWIR1 (or RED for NDMI) reflectance above which the
// extra band is added to the denominator to damp tree canopy.
const canopyThreshold = 0.3

// Pixel carries the band values of one pixel. Bands a formula does not
// request are zero.
type Pixel struct {
	Blue  float64
	Green float64
	Red   float64
	NIR   float64
	SWIR1 float64
}

// Formula is a named per-pixel expression over a fixed set of bands. A result
// that is NaN or infinite is treated as invalid.
type Formula struct {
	Name  string
	Bands []imagery.Band
	Expr  func(p Pixel) float64
}

var formulas = map[string]Formula{
	NDVI: {
		Name:  NDVI,
		Bands: []imagery.Band{imagery.Red, imagery.NIR, imagery.SWIR1},
		Expr: func(p Pixel) float64 {
			den := p.NIR + p.Red
			if p.SWIR1 > canopyThreshold {
				den += p.SWIR1
			}
			return (p.NIR - p.Red) / den
		},
	},
	NDWI: {
		Name:  NDWI,
		Bands: []imagery.Band{imagery.Green, imagery.NIR, imagery.SWIR1},
		Expr: func(p Pixel) float64 {
			den := p.Green + p.NIR
			if p.SWIR1 > canopyThreshold {
				den += p.SWIR1
			}
			return (p.Green - p.NIR) / den
		},
	},
	NDMI: {
		Name:  NDMI,
		Bands: []imagery.Band{imagery.Red, imagery.NIR, imagery.SWIR1},
		Expr: func(p Pixel) float64 {
			den := p.NIR + p.SWIR1
			if p.Red > canopyThreshold {
				den += p.Red
			}
			return (p.NIR - p.SWIR1) / den
		},
	},
	NPCI: {
		Name:  NPCI,
		Bands: []imagery.Band{imagery.Red, imagery.NIR, imagery.SWIR1},
		Expr: func(p Pixel) float64 {
			return (p.Red - p.NIR) / (p.Red + p.NIR + p.SWIR1)
		},
	},
	ARVI: {
		Name:  ARVI,
		Bands: []imagery.Band{imagery.Blue, imagery.Red, imagery.NIR, imagery.SWIR1},
		Expr: func(p Pixel) float64 {
			rb := 2*p.Red - p.Blue
			den := p.NIR + rb
			if p.SWIR1 > canopyThreshold {
				den += p.SWIR1
			}
			return (p.NIR - rb) / den
		},
	},
	CARI: {
		Name:  CARI,
		Bands: []imagery.Band{imagery.Green, imagery.Red, imagery.NIR, imagery.SWIR1},
		Expr: func(p Pixel) float64 {
			a := (p.NIR - p.Green) / 150
			b := p.Red - p.Green
			v := math.Sqrt(a*a + b*b)
			if p.SWIR1 > canopyThreshold {
				v *= 1.1
			}
			return v
		},
	},
	MCARI: {
		Name:  MCARI,
		Bands: []imagery.Band{imagery.Blue, imagery.Green, imagery.Red, imagery.NIR},
		Expr: func(p Pixel) float64 {
			return (p.Red - p.Green) - 0.2*(p.Red-p.Blue)*(p.Red/p.NIR)
		},
	},
	RedReflectance: {
		Name:  RedReflectance,
		Bands: []imagery.Band{imagery.Red},
		Expr:  func(p Pixel) float64 { return p.Red },
	},
	NIRReflectance: {
		Name:  NIRReflectance,
		Bands: []imagery.Band{imagery.NIR},
		Expr:  func(p Pixel) float64 { return p.NIR },
	},
}

// LookupFormula returns the formula registered under name.
func LookupFormula(name string) (Formula, bool) {
	f, ok := formulas[name]
	return f, ok
}

// FormulaNames returns the registered formula names in sorted order.
func FormulaNames() []string {
	names := make([]string, 0, len(formulas))
	for name := range formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
