package utils

import "strings"

// GetExtensionFromMime maps profile image content types to file extensions.
func GetExtensionFromMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	default:
		return "bin"
	}
}

// IsImageMime reports whether the content type is an accepted profile image.
func IsImageMime(mimeType string) bool {
	return GetExtensionFromMime(mimeType) != "bin"
}
