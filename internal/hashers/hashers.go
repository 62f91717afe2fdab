package hashers

import (
	"context"
	"encoding/hex"
	"errors"
	"hash"
	"image"
	"io"
	iofs "io/fs"
	"sort"
	"strings"

	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/media"
	"fingerprinter/internal/xerrors"
)

// Family groups algorithms by the input they consume.
type Family int

const (
	// FamilyBinary algorithms are pure functions of the file bytes.
	FamilyBinary Family = iota
	// FamilyPerceptual algorithms need a decoded image.
	FamilyPerceptual
)

func (f Family) String() string {
	if f == FamilyPerceptual {
		return "perceptual"
	}
	return "binary"
}

// Algorithm is one registered fingerprint algorithm. Binary algorithms carry
// New, perceptual algorithms carry Compute.
type Algorithm struct {
	Name    string
	Family  Family
	New     func() hash.Hash
	Compute func(image.Image) (string, error)
}

// Sum fingerprints the file at path and returns the algorithm name with the
// lower-case hex digest.
func (a *Algorithm) Sum(ctx context.Context, path string) (string, string, error) {
	if a.Family == FamilyBinary {
		digests, _, err := SumFile(ctx, path, []*Algorithm{a})
		if err != nil {
			return a.Name, "", err
		}
		return a.Name, digests[a.Name], nil
	}

	img, err := media.Decode(ctx, path)
	if err != nil {
		return a.Name, "", xerrors.Wrap(xerrors.KindUnsupportedFormat, a.Name, path, err)
	}
	digest, err := a.Compute(img)
	if err != nil {
		return a.Name, "", xerrors.Wrap(xerrors.KindUnsupportedFormat, a.Name, path, err)
	}
	return a.Name, digest, nil
}

// IsPerceptual reports whether the algorithm needs a decoded image.
func (a *Algorithm) IsPerceptual() bool {
	return a.Family == FamilyPerceptual
}

// SumFile streams the file once through every binary algorithm in algs and
// returns the digests by name along with the number of bytes read.
// Perceptual algorithms in algs are ignored.
func SumFile(ctx context.Context, path string, algs []*Algorithm) (map[string]string, int64, error) {
	hashes := make(map[string]hash.Hash, len(algs))
	writers := make([]io.Writer, 0, len(algs))
	for _, a := range algs {
		if a.Family != FamilyBinary {
			continue
		}
		h := a.New()
		hashes[a.Name] = h
		writers = append(writers, h)
	}
	if len(writers) == 0 {
		return map[string]string{}, 0, nil
	}

	f, err := filesystem.OpenWithRetry(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, 0, ioError("open", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	n, err := io.Copy(io.MultiWriter(writers...), &ctxReader{ctx: ctx, r: f})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, n, ctxErr
		}
		return nil, n, ioError("read", path, err)
	}

	digests := make(map[string]string, len(hashes))
	for name, h := range hashes {
		digests[name] = hex.EncodeToString(h.Sum(nil))
	}
	return digests, n, nil
}

func ioError(op, path string, err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return xerrors.Wrap(xerrors.KindNotAFile, op, path, err)
	}
	return xerrors.Wrap(xerrors.KindAccess, op, path, err)
}

// ctxReader stops a long copy once the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var (
	registry = map[string]*Algorithm{}

	// aliases maps historical names onto registered algorithms.
	aliases = map[string]string{
		"visual": "dhash",
	}
)

func register(a *Algorithm) {
	if _, dup := registry[a.Name]; dup {
		panic("hashers: duplicate algorithm " + a.Name)
	}
	registry[a.Name] = a
}

// Canonical returns the registered name for name, folding case and aliases.
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[n]; ok {
		return target
	}
	return n
}

// Lookup returns the algorithm registered under name or an alias of it.
func Lookup(name string) (*Algorithm, bool) {
	a, ok := registry[Canonical(name)]
	return a, ok
}

// Resolve maps requested names to algorithms, preserving request order and
// dropping duplicates. Every unknown name is reported in one error.
func Resolve(names []string) ([]*Algorithm, error) {
	var (
		out     = make([]*Algorithm, 0, len(names))
		seen    = make(map[string]bool, len(names))
		unknown []string
	)

	for _, name := range names {
		a, ok := Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		out = append(out, a)
	}

	if len(unknown) > 0 {
		return nil, xerrors.Wrap(xerrors.KindUnknownAlgorithm, "resolve", "",
			errors.New(strings.Join(unknown, ", ")))
	}
	if len(out) == 0 {
		return nil, xerrors.Wrap(xerrors.KindUnknownAlgorithm, "resolve", "", errors.New("no algorithms requested"))
	}
	return out, nil
}

// Names returns every registered algorithm name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByFamily returns the sorted registered names of one family.
func ByFamily(f Family) []string {
	var names []string
	for _, name := range Names() {
		if registry[name].Family == f {
			names = append(names, name)
		}
	}
	return names
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// Split partitions algs into binary and perceptual algorithms, keeping order.
func Split(algs []*Algorithm) (binary, perceptual []*Algorithm) {
	for _, a := range algs {
		if a.Family == FamilyPerceptual {
			perceptual = append(perceptual, a)
		} else {
			binary = append(binary, a)
		}
	}
	return binary, perceptual
}
