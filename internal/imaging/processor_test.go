// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/olegiv/thinkspace/internal/model"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestProcessCrop(t *testing.T) {
	data := encodeJPEG(t, createTestImage(1600, 1200))

	res, err := Process(data, model.ImagePresets[model.UploadBlogCover])
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Width != 1200 || res.Height != 675 {
		t.Errorf("size = %dx%d, want 1200x675", res.Width, res.Height)
	}
	if res.Ext != ".jpg" || res.MimeType != model.MimeTypeJPEG {
		t.Errorf("ext/mime = %q/%q", res.Ext, res.MimeType)
	}
	if DetectFormat(res.Data) != "jpeg" {
		t.Error("output is not JPEG")
	}
}

func TestProcessSquarePresets(t *testing.T) {
	data := encodePNG(t, createTestImage(500, 300))

	tests := []struct {
		kind string
		size int
	}{
		{model.UploadSpeakerPhoto, 400},
		{model.UploadAvatar, 300},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			res, err := Process(data, model.ImagePresets[tt.kind])
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if res.Width != tt.size || res.Height != tt.size {
				t.Errorf("size = %dx%d, want %dx%d", res.Width, res.Height, tt.size, tt.size)
			}
			if res.Ext != ".png" {
				t.Errorf("Ext = %q, want .png", res.Ext)
			}
		})
	}
}

func TestProcessFitDoesNotEnlarge(t *testing.T) {
	data := encodePNG(t, createTestImage(100, 50))
	res, err := Process(data, model.ImagePreset{Width: 800, Height: 800})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Width != 100 || res.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", res.Width, res.Height)
	}

	big := encodePNG(t, createTestImage(1000, 500))
	res, err = Process(big, model.ImagePreset{Width: 400, Height: 400})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Width != 400 || res.Height != 200 {
		t.Errorf("fit size = %dx%d, want 400x200", res.Width, res.Height)
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	_, err := Process([]byte("%PDF-1.4 not an image"), model.ImagePresets[model.UploadAvatar])
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", encodePNG(t, createTestImage(2, 2)), "png"},
		{"jpeg", encodeJPEG(t, createTestImage(2, 2)), "jpeg"},
		{"gif", []byte("GIF89a......"), "gif"},
		{"tiff", []byte("II*\x00........"), ""},
		{"text", []byte("hello"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyOrientation(t *testing.T) {
	img := createTestImage(40, 20)
	tests := []struct {
		orientation int
		w, h        int
	}{
		{1, 40, 20},
		{3, 40, 20},
		{6, 20, 40},
		{8, 20, 40},
		{99, 40, 20},
	}
	for _, tt := range tests {
		b := applyOrientation(img, tt.orientation).Bounds()
		if b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("orientation %d: %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.w, tt.h)
		}
	}
}
