package canvas

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ankek/terraform-provider-chartrender/internal/remote"
	"github.com/ankek/terraform-provider-chartrender/internal/validation"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/webp" // register decoder
)

// maxSVGDimension bounds the raster allocated for an SVG source.
const maxSVGDimension = 4096

// defaultSVGWidth and defaultSVGHeight are used when an SVG has no view box.
const (
	defaultSVGWidth  = 300
	defaultSVGHeight = 150
)

// ImageLoader resolves the image sources plugins draw: data URLs, http(s)
// URLs and local files, in any raster format registered with the image
// package or as SVG.
type ImageLoader struct {
	fetcher *remote.Fetcher
	baseDir string
}

// ImageOption configures an ImageLoader.
type ImageOption func(*ImageLoader)

// WithFetcher sets the fetcher used for http(s) sources.
func WithFetcher(f *remote.Fetcher) ImageOption {
	return func(l *ImageLoader) {
		l.fetcher = f
	}
}

// WithBaseDir resolves relative file sources against dir.
func WithBaseDir(dir string) ImageOption {
	return func(l *ImageLoader) {
		l.baseDir = dir
	}
}

// NewImageLoader creates an ImageLoader. Image sources come from chart
// specs, so the default fetcher sends no credentials.
func NewImageLoader(opts ...ImageOption) *ImageLoader {
	l := &ImageLoader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		l.fetcher = remote.NewFetcher(remote.Config{})
	}
	return l
}

// Load resolves and decodes src.
func (l *ImageLoader) Load(ctx context.Context, src string) (image.Image, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		data, mediaType, err := parseDataURL(src)
		if err != nil {
			return nil, err
		}
		return DecodeImage(data, mediaType)

	case remote.IsURL(src):
		doc, err := l.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		return DecodeImage(doc.Data, doc.ContentType)
	}

	path, err := validation.ResolveBasePath(l.baseDir, src)
	if err != nil {
		return nil, fmt.Errorf("invalid image path %s: %w", src, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", src, err)
	}
	mediaType := ""
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		mediaType = "image/svg+xml"
	}
	return DecodeImage(data, mediaType)
}

// DecodeImage decodes raster or SVG image data.
func DecodeImage(data []byte, mediaType string) (image.Image, error) {
	if isSVG(data, mediaType) {
		return rasteriseSVG(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func isSVG(data []byte, mediaType string) bool {
	if strings.Contains(strings.ToLower(mediaType), "svg") {
		return true
	}
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<svg")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}

func rasteriseSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	w, h := int(math.Ceil(icon.ViewBox.W)), int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		w, h = defaultSVGWidth, defaultSVGHeight
	}
	if w > maxSVGDimension || h > maxSVGDimension {
		return nil, fmt.Errorf("SVG dimensions %dx%d exceed %d", w, h, maxSVGDimension)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return img, nil
}

// parseDataURL decodes "data:[<mediatype>][;base64],<data>".
func parseDataURL(src string) ([]byte, string, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	meta, payload := src[len("data:"):comma], src[comma+1:]

	isBase64 := strings.HasSuffix(meta, ";base64")
	mediaType := strings.TrimSuffix(meta, ";base64")

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("malformed base64 data URL: %w", err)
		}
		return data, mediaType, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data URL: %w", err)
	}
	return []byte(decoded), mediaType, nil
}
