package sentinelhub

import (
	"fmt"
	"time"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// crsWGS84 is the bounds CRS of every request.
const crsWGS84 = "http://www.opengis.net/def/crs/EPSG/0/4326"

const (
	mediaTypeTIFF = "image/tiff"

	// validIdentifier names the output carrying the pixel validity mask.
	validIdentifier = "valid"
)

type processRequest struct {
	Input      processInput  `json:"input"`
	Output     processOutput `json:"output"`
	Evalscript string        `json:"evalscript"`
}

type processInput struct {
	Bounds processBounds `json:"bounds"`
	Data   []processData `json:"data"`
}

type processBounds struct {
	BBox       []float64        `json:"bbox"`
	Properties boundsProperties `json:"properties"`
}

type boundsProperties struct {
	CRS string `json:"crs"`
}

type processData struct {
	Type       string     `json:"type"`
	DataFilter dataFilter `json:"dataFilter"`
}

type dataFilter struct {
	TimeRange timeRange `json:"timeRange"`
}

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type processOutput struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Responses []outputResponse `json:"responses"`
}

type outputResponse struct {
	Identifier string       `json:"identifier"`
	Format     outputFormat `json:"format"`
}

type outputFormat struct {
	Type string `json:"type"`
}

func newProcessRequest(req imagery.Request, collection string) (*processRequest, error) {
	script, err := Evalscript(req.Script)
	if err != nil {
		return nil, err
	}

	ids, err := outputIdentifiers(req.Script)
	if err != nil {
		return nil, err
	}
	responses := make([]outputResponse, 0, len(ids)+1)
	for _, id := range append(ids, validIdentifier) {
		responses = append(responses, outputResponse{
			Identifier: id,
			Format:     outputFormat{Type: mediaTypeTIFF},
		})
	}

	return &processRequest{
		Input: processInput{
			Bounds: processBounds{
				BBox:       []float64{req.BBox.Min[0], req.BBox.Min[1], req.BBox.Max[0], req.BBox.Max[1]},
				Properties: boundsProperties{CRS: crsWGS84},
			},
			Data: []processData{{
				Type: collection,
				DataFilter: dataFilter{
					TimeRange: timeRange{
						From: req.From.UTC().Format(time.RFC3339),
						To:   req.To.UTC().Format(time.RFC3339),
					},
				},
			}},
		},
		Output: processOutput{
			Width:     req.Width,
			Height:    req.Height,
			Responses: responses,
		},
		Evalscript: script,
	}, nil
}

// outputIdentifiers returns the Sentinel-2 band names of the script in order.
func outputIdentifiers(s imagery.Script) ([]string, error) {
	ids := make([]string, 0, len(s.Bands))
	for _, b := range s.Bands {
		name, ok := b.SentinelName()
		if !ok {
			return nil, fmt.Errorf("unknown band %q", b)
		}
		ids = append(ids, name)
	}
	return ids, nil
}
