// Package archive encodes the selected walk entries into the output
// formats: plain, gzip-, bzip2- or zstd-compressed tape archives, and
// zip.
package archive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/raptar-dev/raptar/internal/walk"
)

// WriteOptions controls metadata normalization.
type WriteOptions struct {
	// Reproducible zeroes timestamps and ownership, masks directory
	// modes to 0755 and orders entries by byte-wise relative path, so
	// identical trees produce identical archives.
	Reproducible bool
	// PreserveOwner keeps uid/gid instead of zeroing them.
	PreserveOwner bool
}

// Create writes entries to path in the given format. The output handle
// is owned here and released on every exit path; a partial archive is
// deleted on error or cancellation.
func Create(ctx context.Context, path string, format Format, entries []walk.Entry, opts WriteOptions) (err error) {
	if opts.Reproducible {
		entries = sortedByRelPath(entries)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(ctx, bw, format, entries, opts); err != nil {
		return err
	}
	return bw.Flush()
}

// write dispatches on format, wrapping the tar stream in the selected
// compression filter.
func write(ctx context.Context, w io.Writer, format Format, entries []walk.Entry, opts WriteOptions) error {
	switch format {
	case FormatTar:
		return writeTar(ctx, w, entries, opts)

	case FormatTarGz:
		gz := gzip.NewWriter(w)
		if err := writeTar(ctx, gz, entries, opts); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()

	case FormatTarBz2:
		bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		if err != nil {
			return err
		}
		if err := writeTar(ctx, bz, entries, opts); err != nil {
			bz.Close()
			return err
		}
		return bz.Close()

	case FormatTarZst:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := writeTar(ctx, zw, entries, opts); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()

	case FormatZip:
		return writeZip(ctx, w, entries, opts)
	}
	return fmt.Errorf("unsupported format %v", format)
}

func sortedByRelPath(entries []walk.Entry) []walk.Entry {
	out := append([]walk.Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].RelPath < out[j].RelPath
	})
	return out
}
