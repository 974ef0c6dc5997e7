package mediasvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"golang.org/x/image/draw"

	"github.com/mkrupp/webgallery/internal/domain"
)

// ErrUnknownInterpolator is returned when an unsupported interpolation method is specified.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var interpolMap = map[string]draw.Interpolator{
	"nearestneighbor": draw.NearestNeighbor,
	"catmullrom":      draw.CatmullRom,
	"bilinear":        draw.BiLinear,
	"approxbilinear":  draw.ApproxBiLinear,
}

func getInterpolatorByName(name string) (draw.Interpolator, error) {
	interpol, ok := interpolMap[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolator, name)
	}

	return interpol, nil
}

// resizeImage scales an image to width, keeping its aspect ratio, and re-encodes it in
// its original format. Images no wider than width are returned unchanged.
func resizeImage(data []byte, mimeType string, width int, interpol draw.Interpolator) ([]byte, error) {
	original, err := decodeImage(bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", domain.ErrImageTypeNotSupported, err)
	}

	bounds := original.Bounds()
	if bounds.Dx() <= width {
		return data, nil
	}

	height := max(1, bounds.Dy()*width/bounds.Dx())
	bitmap := image.NewRGBA(image.Rect(0, 0, width, height))

	interpol.Scale(bitmap, bitmap.Bounds(), original, bounds, draw.Over, nil)

	resized, err := encodeImage(bitmap, mimeType)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return resized, nil
}

func decodeImage(reader io.Reader, mimeType string) (image.Image, error) {
	decoder, err := getDecoderByType(mimeType)
	if err != nil {
		return nil, err
	}

	img, err := decoder(reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mimeType, err)
	}

	return img, nil
}

func encodeImage(bitmap image.Image, mimeType string) ([]byte, error) {
	encoder, err := getEncoderByType(mimeType)
	if err != nil {
		return nil, err
	}

	var buffer bytes.Buffer

	if err := encoder(&buffer, bitmap); err != nil {
		return nil, fmt.Errorf("encode %s: %w", mimeType, err)
	}

	return buffer.Bytes(), nil
}
