// Package filetype determines the media type of a file from its content.
//
// A [Classifier] consults a prioritized chain of [Detector]s:
//
//  1. header: magic-number match on the first 2048 bytes (h2non/filetype)
//  2. decoder: image.DecodeConfig with the stdlib and x/image decoders
//  3. vips: the libvips loaders, when libvips has been started
//
// The first detector that does not decline wins. Outcomes are memoised per
// path in a bounded LRU for the lifetime of the classifier.
package filetype
