// Package imaging validates and normalizes item photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	dimg "github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

const (
	// MaxDimension is the maximum width or height of a stored photo.
	MaxDimension = 1024
	// ThumbnailSize is the edge length of the square thumbnail.
	ThumbnailSize = 160
	// JPEGQuality is the compression quality for JPEG output.
	JPEGQuality = 85
	// MaxUploadBytes caps the accepted upload size.
	MaxUploadBytes = 10 << 20
)

// ErrUnsupported is returned for input that is not a JPEG or PNG image.
var ErrUnsupported = errors.New("unsupported image format")

// ErrTooLarge is returned when the upload exceeds MaxUploadBytes.
var ErrTooLarge = errors.New("image too large")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a normalized item photo. Both images are JPEG.
type Photo struct {
	Data      []byte
	Thumbnail []byte
	MIME      string
}

// Process validates the upload by sniffing its bytes, applies the EXIF
// orientation, downscales it to MaxDimension and renders a square thumbnail.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxUploadBytes)
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG and PNG accepted)", ErrUnsupported, detected)
	}

	img, err := dimg.Decode(bytes.NewReader(data), dimg.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	full, err := encodeJPEG(downscale(img, MaxDimension))
	if err != nil {
		return nil, err
	}
	thumb, err := encodeJPEG(dimg.Thumbnail(img, ThumbnailSize, ThumbnailSize, dimg.Lanczos))
	if err != nil {
		return nil, err
	}

	return &Photo{Data: full, Thumbnail: thumb, MIME: "image/jpeg"}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes img with Catmull-Rom so neither dimension exceeds maxDim,
// preserving the aspect ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
