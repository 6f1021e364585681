package model

import "strings"

// ImageMIMEPrefix is the MIME type prefix every accepted image carries.
const ImageMIMEPrefix = "image/"

// SelectedImage is the file currently chosen for single-shot detection.
type SelectedImage struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// IsImageType reports whether mimeType denotes an image.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(mimeType, ImageMIMEPrefix)
}
