package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/TechRanger101/AgriSense-App/internal/raster"
)

// ClassTable partitions the real line into ordered classes. Class k covers
// (Thresholds[k-2], Thresholds[k-1]]; class 1 is everything at or below the
// first threshold and the last class everything above the last one.
type ClassTable struct {
	Name       string    `json:"name"`
	Thresholds []float64 `json:"thresholds"`
}

// Validate checks that the thresholds are finite and strictly increasing.
func (t ClassTable) Validate() error {
	if len(t.Thresholds) == 0 {
		return fmt.Errorf("class table %q has no thresholds", t.Name)
	}
	if len(t.Thresholds) > 254 {
		return fmt.Errorf("class table %q has %d thresholds, at most 254 allowed", t.Name, len(t.Thresholds))
	}
	for i, v := range t.Thresholds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("class table %q threshold %d is not finite", t.Name, i)
		}
		if v == Sentinel {
			return fmt.Errorf("class table %q threshold %d equals the no-data sentinel", t.Name, i)
		}
		if i > 0 && v <= t.Thresholds[i-1] {
			return fmt.Errorf("class table %q thresholds must be strictly increasing at %d", t.Name, i)
		}
	}
	return nil
}

// Classes returns the number of non-zero classes.
func (t ClassTable) Classes() int {
	return len(t.Thresholds) + 1
}

// Classify maps one value. Sentinel and NaN map to 0.
func (t ClassTable) Classify(v float64) uint8 {
	if v == Sentinel || math.IsNaN(v) {
		return 0
	}
	i := sort.Search(len(t.Thresholds), func(i int) bool { return t.Thresholds[i] >= v })
	return uint8(i + 1)
}

// Reclassify maps every pixel of r through t.
func Reclassify(r *IndexRaster, t ClassTable) *raster.ClassRaster {
	out := raster.NewClassRaster(r.Width, r.Height)
	for i, v := range r.Values {
		out.Values[i] = t.Classify(v)
	}
	return out
}

// Table names.
const (
	TableVegetation  = "vegetation"
	TableMoisture    = "moisture"
	TableCanopy      = "canopy"
	TableReflectance = "reflectance"
	TableNIRRipeness = "nir-ripeness"
	TableRipeness    = "ripeness"
)

var tables = map[string]ClassTable{
	TableVegetation:  {Name: TableVegetation, Thresholds: []float64{0, 0.1, 0.2, 0.4, 0.5, 0.6, 0.7}},
	TableMoisture:    {Name: TableMoisture, Thresholds: []float64{-1, 0, 0.1, 0.2, 0.3, 0.4, 0.5}},
	TableCanopy:      {Name: TableCanopy, Thresholds: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6}},
	TableReflectance: {Name: TableReflectance, Thresholds: []float64{10, 20, 30, 40, 50, 60, 70}},
	TableNIRRipeness: {Name: TableNIRRipeness, Thresholds: []float64{0.1, 0.3, 0.5, 0.7}},
	TableRipeness:    {Name: TableRipeness, Thresholds: []float64{0, 0.3}},
}

// LookupTable returns a copy of the named built-in table.
func LookupTable(name string) (ClassTable, bool) {
	t, ok := tables[name]
	if !ok {
		return ClassTable{}, false
	}
	t.Thresholds = append([]float64(nil), t.Thresholds...)
	return t, true
}

// TableNames returns the built-in table names in sorted order.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
