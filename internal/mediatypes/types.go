package mediatypes

import "strings"

// Category is the top-level part of a media type.
type Category string

const (
	// CategoryImage covers every image/* type.
	CategoryImage Category = "image"
	// CategoryVideo covers every video/* type.
	CategoryVideo Category = "video"
	// CategoryAudio covers every audio/* type.
	CategoryAudio Category = "audio"
	// CategoryApplication covers archives, documents and other binaries.
	CategoryApplication Category = "application"
	// CategoryFont covers font/* types.
	CategoryFont Category = "font"
	// CategoryText covers text/* types.
	CategoryText Category = "text"
	// CategoryOther is returned for empty or malformed media types.
	CategoryOther Category = "other"
)

// Octet is the media type reported for data without a more specific type.
const Octet = "application/octet-stream"

// formatTypes maps decoder format names, as reported by image.DecodeConfig
// and libvips loaders, to media types.
var formatTypes = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"webp": "image/webp",
	"heif": "image/heif",
	"heic": "image/heic",
	"avif": "image/avif",
	"jxl":  "image/jxl",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"pdf":  "application/pdf",
	"jp2k": "image/jp2",
}

// aliases folds non-canonical media types that detectors emit.
var aliases = map[string]string{
	"image/jpg":                "image/jpeg",
	"image/pjpeg":              "image/jpeg",
	"image/x-ms-bmp":           "image/bmp",
	"image/x-bmp":              "image/bmp",
	"image/x-png":              "image/png",
	"image/x-tiff":             "image/tiff",
	"image/vnd.microsoft.icon": "image/x-icon",
}

// FromFormat returns the media type for a decoder format name. Unknown names
// map to "image/<name>" since every caller is an image decoder.
func FromFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return ""
	}
	if mt, ok := formatTypes[format]; ok {
		return mt
	}
	return "image/" + format
}

// Normalize lowercases a media type, strips parameters and folds aliases.
func Normalize(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if canonical, ok := aliases[mt]; ok {
		return canonical
	}
	return mt
}

// CategoryOf returns the top-level category of a media type.
func CategoryOf(mediaType string) Category {
	mt := Normalize(mediaType)
	top, sub, ok := strings.Cut(mt, "/")
	if !ok || top == "" || sub == "" {
		return CategoryOther
	}
	switch Category(top) {
	case CategoryImage, CategoryVideo, CategoryAudio, CategoryApplication, CategoryFont, CategoryText:
		return Category(top)
	default:
		return CategoryOther
	}
}

// IsImage reports whether the top-level category of mediaType is image.
func IsImage(mediaType string) bool {
	return CategoryOf(mediaType) == CategoryImage
}
