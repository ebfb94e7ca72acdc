// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media shrinks picked images into data URIs that can be stored
// directly in a section's imageUrl.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// MIME types produced or accepted by the compressor.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

var (
	// ErrUnsupportedFormat is returned for inputs that are not JPEG, PNG, GIF or WebP.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrTooLarge is returned when the input or the compressed result is over its limit.
	ErrTooLarge = errors.New("image too large")
)

// Options controls compression.
type Options struct {
	MaxWidth       int   // px, 0 = no limit
	MaxHeight      int   // px, 0 = no limit
	Quality        int   // JPEG quality 1-100
	MinQuality     int   // lowest quality tried when shrinking to MaxOutputBytes
	MaxInputBytes  int64 // bytes read from the picked file
	MaxOutputBytes int   // encoded size limit, before base64
}

// DefaultOptions returns the compression settings used for section images.
func DefaultOptions() Options {
	return Options{
		MaxWidth:       1920,
		MaxHeight:      1920,
		Quality:        82,
		MinQuality:     40,
		MaxInputBytes:  20 << 20,
		MaxOutputBytes: 700 << 10,
	}
}

// Compressor decodes, orients, resizes and re-encodes images.
type Compressor struct {
	opts Options
}

// NewCompressor creates a compressor. Zero fields take their defaults.
func NewCompressor(opts Options) *Compressor {
	def := DefaultOptions()
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.MinQuality <= 0 || opts.MinQuality > opts.Quality {
		opts.MinQuality = min(def.MinQuality, opts.Quality)
	}
	if opts.MaxInputBytes <= 0 {
		opts.MaxInputBytes = def.MaxInputBytes
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = def.MaxOutputBytes
	}
	return &Compressor{opts: opts}
}

// Result is a compressed image.
type Result struct {
	MimeType string
	Width    int
	Height   int
	Data     []byte
}

// DataURI returns the image as a base64 data URI.
func (r *Result) DataURI() string {
	return "data:" + r.MimeType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// CompressToDataURI compresses r and returns it as a data URI.
func (c *Compressor) CompressToDataURI(r io.Reader) (string, error) {
	res, err := c.Compress(r)
	if err != nil {
		return "", err
	}
	return res.DataURI(), nil
}

// Compress reads an image and returns it resized to fit the configured
// bounds. PNG and GIF inputs are kept lossless as PNG; everything else is
// re-encoded as JPEG, lowering quality until it fits MaxOutputBytes.
func (c *Compressor) Compress(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.opts.MaxInputBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > c.opts.MaxInputBytes {
		return nil, fmt.Errorf("%w: input over %d bytes", ErrTooLarge, c.opts.MaxInputBytes)
	}

	format := DetectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if format == "jpeg" {
		img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	}
	img = c.fit(img)

	bounds := img.Bounds()
	res := &Result{Width: bounds.Dx(), Height: bounds.Dy()}

	if format == "png" || format == "gif" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding image: %w", err)
		}
		if buf.Len() <= c.opts.MaxOutputBytes {
			res.MimeType = MimeTypePNG
			res.Data = buf.Bytes()
			return res, nil
		}
		// Too big as PNG; fall through to lossy.
	}

	for q := c.opts.Quality; ; q -= 10 {
		q = max(q, c.opts.MinQuality)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encoding image: %w", err)
		}
		if buf.Len() <= c.opts.MaxOutputBytes {
			res.MimeType = MimeTypeJPEG
			res.Data = buf.Bytes()
			return res, nil
		}
		if q == c.opts.MinQuality {
			return nil, fmt.Errorf("%w: %d bytes at quality %d", ErrTooLarge, buf.Len(), q)
		}
	}
}

func (c *Compressor) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := c.opts.MaxWidth, c.opts.MaxHeight
	if w <= 0 {
		w = b.Dx()
	}
	if h <= 0 {
		h = b.Dy()
	}
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}

// DetectFormat detects the image format from raw bytes.
func DetectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// readExifOrientation returns the EXIF orientation tag, or 1 when absent.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation recorded in EXIF.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
