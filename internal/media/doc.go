// Package media decodes images for perceptual hashing.
//
// The pure Go decoders (via disintegration/imaging, with EXIF
// auto-orientation) handle JPEG, PNG, GIF, BMP, TIFF and WebP. When libvips
// has been started with InitVips, it is used as a fallback decoder and as a
// format probe for HEIF, AVIF, JPEG XL and the other formats libvips loads.
// Oversized images are downscaled on load to bound memory use.
package media
