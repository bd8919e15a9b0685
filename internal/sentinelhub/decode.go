package sentinelhub

import (
	"archive/tar"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"path"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// decodeTar reads the multi-part process response: one TIFF per output,
// named after its identifier.
func decodeTar(r io.Reader, req imagery.Request) (*imagery.BandSample, error) {
	names := make(map[string]imagery.Band, len(req.Script.Bands))
	for _, b := range req.Script.Bands {
		name, _ := b.SentinelName()
		names[name] = b
	}

	sample := imagery.NewBandSample(req.Width, req.Height)

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		id := strings.TrimSuffix(path.Base(hdr.Name), path.Ext(hdr.Name))
		band, isBand := names[id]
		if !isBand && id != validIdentifier {
			continue
		}

		img, err := tiff.Decode(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", hdr.Name, err)
		}
		size := img.Bounds().Size()
		if size.X != req.Width || size.Y != req.Height {
			return nil, fmt.Errorf("%s is %dx%d, expected %dx%d", hdr.Name, size.X, size.Y, req.Width, req.Height)
		}

		if isBand {
			sample.Bands[band] = reflectance(img)
		} else {
			sample.Valid = mask(img)
		}
	}

	for _, b := range req.Script.Bands {
		if _, ok := sample.Bands[b]; !ok {
			name, _ := b.SentinelName()
			return nil, fmt.Errorf("response has no %s output", name)
		}
	}
	if sample.Valid == nil {
		return nil, fmt.Errorf("response has no %s output", validIdentifier)
	}

	return sample, nil
}

func reflectance(img image.Image) *imagery.Grid {
	b := img.Bounds()
	g := imagery.NewGrid(b.Dx(), b.Dy())
	for row := 0; row < b.Dy(); row++ {
		for col := 0; col < b.Dx(); col++ {
			g.Set(col, row, float64(gray16(img, b.Min.X+col, b.Min.Y+row))/ReflectanceScale)
		}
	}
	return g
}

func mask(img image.Image) []bool {
	b := img.Bounds()
	valid := make([]bool, b.Dx()*b.Dy())
	for row := 0; row < b.Dy(); row++ {
		for col := 0; col < b.Dx(); col++ {
			valid[row*b.Dx()+col] = gray16(img, b.Min.X+col, b.Min.Y+row) != 0
		}
	}
	return valid
}

// gray16 returns the raw single-band sample at (x, y). 8-bit images are
// returned unscaled.
func gray16(img image.Image, x, y int) uint16 {
	switch m := img.(type) {
	case *image.Gray16:
		return m.Gray16At(x, y).Y
	case *image.Gray:
		return uint16(m.GrayAt(x, y).Y)
	default:
		return color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
	}
}
