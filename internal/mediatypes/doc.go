// Package mediatypes normalizes the media type strings produced by file type
// detectors and answers category questions about them.
//
// Detectors disagree on spelling ("image/jpg" against "image/jpeg",
// "image/x-ms-bmp" against "image/bmp"), so every type is passed through
// [Normalize] before it is stored. Decoder format names such as "jpeg" or
// "webp" are turned into media types with [FromFormat].
//
// [IsImage] is the predicate the pipeline uses to decide whether perceptual
// hashes apply to a file.
//
// The package has no dependencies beyond the standard library so that any
// other package can import it without cycles.
package mediatypes
