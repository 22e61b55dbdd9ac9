package canvas

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned when asked to encode to a format the
// surface has no encoder for.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrReleased is returned when encoding a canvas whose buffer was released.
var ErrReleased = errors.New("canvas has been released")

// Format is a normalised output format name.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// DefaultFormat is used when the caller does not name one.
const DefaultFormat = FormatPNG

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 92

var mimeTypes = map[Format]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
	FormatTIFF: "image/tiff",
}

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF}
}

// ParseFormat normalises a format name or MIME type ("png", "JPG",
// "image/jpeg", ...). An empty string selects DefaultFormat.
func ParseFormat(name string) (Format, error) {
	value := strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimPrefix(value, "image/")
	switch value {
	case "":
		return DefaultFormat, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// MIMEType returns the media type of f.
func (f Format) MIMEType() string {
	return mimeTypes[f]
}

// Encode encodes the canvas to the named format.
func (c *Canvas) Encode(format string) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := c.EncodeTo(buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes the encoded canvas to w.
func (c *Canvas) EncodeTo(w io.Writer, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	img := c.Image()
	if img == nil {
		return ErrReleased
	}

	if err := encodeImage(w, img, f); err != nil {
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return nil
}

// DataURL encodes the canvas and wraps it in a base64 data URL.
func (c *Canvas) DataURL(format string) (string, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	data, err := c.Encode(string(f))
	if err != nil {
		return "", err
	}
	return DataURL(f, data), nil
}

// DataURL wraps already encoded bytes in a base64 data URL.
func DataURL(f Format, data []byte) string {
	return "data:" + f.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func encodeImage(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case FormatGIF:
		return gif.Encode(w, img, nil)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}
