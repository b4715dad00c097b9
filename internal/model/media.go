// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypePDF  = "application/pdf"
	MimeTypeZIP  = "application/zip"
	MimeTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// MaxUploadSize is the largest accepted upload in bytes.
const MaxUploadSize = 20 << 20

// Upload kinds select both the target directory and the accepted types.
const (
	UploadBlogCover    = "blog"
	UploadWebinarImage = "webinars"
	UploadSpeakerPhoto = "speakers"
	UploadAvatar       = "avatars"
	UploadResource     = "resources"
	UploadPaymentProof = "payment_proofs"
)

// ImagePreset is the target box for a processed image upload.
type ImagePreset struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // true = fill the exact box, false = fit inside it
}

// ImagePresets maps image upload kinds to their processing box.
var ImagePresets = map[string]ImagePreset{
	UploadBlogCover:    {Width: 1200, Height: 675, Quality: 85, Crop: true},
	UploadWebinarImage: {Width: 1200, Height: 675, Quality: 85, Crop: true},
	UploadSpeakerPhoto: {Width: 400, Height: 400, Quality: 85, Crop: true},
	UploadAvatar:       {Width: 300, Height: 300, Quality: 85, Crop: true},
}

// SupportedImageTypes returns the accepted image MIME types.
func SupportedImageTypes() []string {
	return []string{MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP}
}

// AllowedTypes returns the MIME types accepted for an upload kind.
func AllowedTypes(kind string) []string {
	switch kind {
	case UploadResource:
		return append(SupportedImageTypes(), MimeTypePDF, MimeTypeZIP, MimeTypeDOCX, MimeTypePPTX)
	case UploadPaymentProof:
		return append(SupportedImageTypes(), MimeTypePDF)
	default:
		return SupportedImageTypes()
	}
}

// IsAllowedType reports whether mimeType may be uploaded as kind.
func IsAllowedType(kind, mimeType string) bool {
	for _, t := range AllowedTypes(kind) {
		if t == mimeType {
			return true
		}
	}
	return false
}

// IsImageType reports whether mimeType is a supported image type.
func IsImageType(mimeType string) bool {
	for _, t := range SupportedImageTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}
