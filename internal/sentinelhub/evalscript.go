package sentinelhub

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// ReflectanceScale converts UINT16 output values back to reflectance.
const ReflectanceScale = 10000

var evalscriptTemplate = template.Must(template.New("evalscript").Funcs(template.FuncMap{
	"ints": func(v []int) string {
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, ", ")
	},
}).Parse(`//VERSION=3
function setup() {
  return {
    input: [{ bands: [{{range .Bands}}"{{.}}", {{end}}"SCL", "dataMask"] }],
    output: [
{{- range .Bands}}
      { id: "{{.}}", bands: 1, sampleType: "UINT16" },
{{- end}}
      { id: "{{.Valid}}", bands: 1, sampleType: "UINT8" }
    ],
    mosaicking: "ORBIT"
  };
}

const invalidSCL = [{{ints .InvalidSCL}}];

function usable(s) {
  if (s.dataMask !== 1 || invalidSCL.includes(s.SCL)) {
    return false;
  }
  return {{range $i, $b := .Bands}}{{if $i}} && {{end}}s.{{$b}} > 0{{end}};
}

function firstQuartile(values) {
  values.sort((a, b) => a - b);
  return values[Math.floor(values.length / 4)];
}

function evaluatePixel(samples) {
  const kept = samples.filter(usable);
  if (kept.length === 0) {
    return { {{range .Bands}}{{.}}: [0], {{end}}{{.Valid}}: [0] };
  }
  return {
{{- range .Bands}}
    {{.}}: [Math.round(firstQuartile(kept.map((s) => s.{{.}})) * {{$.Scale}})],
{{- end}}
    {{.Valid}}: [1]
  };
}
`))

// Evalscript renders the script that composites every orbit of the request
// interval. A pixel is valid when at least one orbit passes the scene
// classification rule and has positive reflectance in every band; its value
// per band is the first quartile over those orbits.
func Evalscript(s imagery.Script) (string, error) {
	bands, err := outputIdentifiers(s)
	if err != nil {
		return "", err
	}
	if len(bands) == 0 {
		return "", fmt.Errorf("script selects no bands")
	}

	var b strings.Builder
	err = evalscriptTemplate.Execute(&b, struct {
		Bands      []string
		InvalidSCL []int
		Valid      string
		Scale      int
	}{
		Bands:      bands,
		InvalidSCL: s.InvalidSCL,
		Valid:      validIdentifier,
		Scale:      ReflectanceScale,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render evalscript: %w", err)
	}
	return b.String(), nil
}
