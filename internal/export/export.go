package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"fingerprinter/internal/database"
	"fingerprinter/internal/logging"
)

// CompressedSuffix selects zstd compression for ToFile.
const CompressedSuffix = ".zst"

// Source yields stored records in path order.
type Source interface {
	ForEachFile(ctx context.Context, fn func(database.FileRecord) error) error
}

// Write streams every record from src to w as a single YAML sequence and
// returns the number of records written. An empty store is written as [].
func Write(ctx context.Context, w io.Writer, src Source) (int, error) {
	n := 0
	err := src.ForEachFile(ctx, func(rec database.FileRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// A one-element sequence marshals to "- ..." lines, so consecutive
		// items concatenate into one sequence.
		out, err := yaml.Marshal([]database.FileRecord{rec})
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.Path, err)
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}

	if n == 0 {
		if _, err := io.WriteString(w, "[]\n"); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// ToFile exports src to path. The file is replaced only once the export
// has completed.
func ToFile(ctx context.Context, path string, src Source) (n int, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriterSize(tmp, 256*1024)
	var (
		w   io.Writer = buf
		enc *zstd.Encoder
	)
	if strings.HasSuffix(path, CompressedSuffix) {
		enc, err = zstd.NewWriter(buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return 0, fmt.Errorf("zstd encoder: %w", err)
		}
		w = enc
	}

	if n, err = Write(ctx, w, src); err != nil {
		if enc != nil {
			_ = enc.Close()
		}
		return n, err
	}

	if enc != nil {
		if err = enc.Close(); err != nil {
			return n, fmt.Errorf("finish zstd stream: %w", err)
		}
	}
	if err = buf.Flush(); err != nil {
		return n, err
	}
	if err = tmp.Close(); err != nil {
		return n, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("replace %s: %w", path, err)
	}

	logging.Info("Exported %d records to %s", n, path)
	return n, nil
}
