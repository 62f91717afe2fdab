package hashers

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/corona10/goimagehash"
)

// extendedSize is the side length of the 16x16 (256-bit) hash variants.
const extendedSize = 16

var errNilImage = errors.New("nil image")

func init() {
	register(&Algorithm{Name: "ahash", Family: FamilyPerceptual, Compute: simple(goimagehash.AverageHash)})
	register(&Algorithm{Name: "dhash", Family: FamilyPerceptual, Compute: simple(goimagehash.DifferenceHash)})
	register(&Algorithm{Name: "phash", Family: FamilyPerceptual, Compute: simple(goimagehash.PerceptionHash)})
	register(&Algorithm{Name: "dhash16", Family: FamilyPerceptual, Compute: extended(goimagehash.ExtDifferenceHash)})
	register(&Algorithm{Name: "phash16", Family: FamilyPerceptual, Compute: extended(goimagehash.ExtPerceptionHash)})
}

// simple adapts a 64-bit goimagehash function to a 16 digit hex digest.
func simple(fn func(image.Image) (*goimagehash.ImageHash, error)) func(image.Image) (string, error) {
	return func(img image.Image) (string, error) {
		if img == nil {
			return "", errNilImage
		}
		h, err := fn(img)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", h.GetHash()), nil
	}
}

// extended adapts a multi-word goimagehash function to a hex digest of
// extendedSize*extendedSize bits.
func extended(fn func(image.Image, int, int) (*goimagehash.ExtImageHash, error)) func(image.Image) (string, error) {
	return func(img image.Image) (string, error) {
		if img == nil {
			return "", errNilImage
		}
		h, err := fn(img, extendedSize, extendedSize)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, word := range h.GetHash() {
			fmt.Fprintf(&sb, "%016x", word)
		}
		return sb.String(), nil
	}
}
