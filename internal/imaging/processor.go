// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalises uploaded images: EXIF orientation is applied,
// the image is cropped or fitted to its preset box and re-encoded without
// metadata.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/thinkspace/internal/model"
)

// ErrUnsupportedFormat is returned for data that is not JPEG, PNG, GIF or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Result is a processed image ready to be written to disk.
type Result struct {
	Data     []byte
	Ext      string // with leading dot
	MimeType string
	Width    int
	Height   int
}

// Process decodes data, applies EXIF orientation and resizes it to preset.
// Images already inside a fit box are not enlarged.
func Process(data []byte, preset model.ImagePreset) (*Result, error) {
	format := DetectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(data))

	bounds := img.Bounds()
	switch {
	case preset.Width <= 0 || preset.Height <= 0:
	case preset.Crop:
		img = imaging.Fill(img, preset.Width, preset.Height, imaging.Center, imaging.Lanczos)
	case bounds.Dx() > preset.Width || bounds.Dy() > preset.Height:
		img = imaging.Fit(img, preset.Width, preset.Height, imaging.Lanczos)
	}

	// WebP has no pure-Go encoder; those uploads are stored as JPEG.
	if format == "webp" {
		format = "jpeg"
	}
	quality := preset.Quality
	if quality <= 0 {
		quality = 85
	}
	out, err := encodeImage(img, format, quality)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	b := img.Bounds()
	return &Result{
		Data:     out,
		Ext:      formatExt(format),
		MimeType: formatToMimeType(format),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// DetectMimeType sniffs the MIME type of data without parameters.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// DetectFormat returns jpeg, png, gif or webp, or "" for anything else.
func DetectFormat(data []byte) string {
	switch DetectMimeType(data) {
	case model.MimeTypeJPEG:
		return "jpeg"
	case model.MimeTypePNG:
		return "png"
	case model.MimeTypeGIF:
		return "gif"
	case model.MimeTypeWebP:
		return "webp"
	default:
		// TIFF is rejected here too (CVE-2023-36308 in disintegration/imaging).
		return ""
	}
}

// readExifOrientation returns 1 when the tag is missing or unreadable.
func readExifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
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

// applyOrientation maps EXIF orientation values 2..8 to flips and rotations.
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

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatExt(format string) string {
	switch format {
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func formatToMimeType(format string) string {
	switch format {
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	default:
		return model.MimeTypeJPEG
	}
}
