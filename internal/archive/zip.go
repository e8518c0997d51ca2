package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/raptar-dev/raptar/internal/walk"
)

// writeZip streams entries into a ZIP archive with Deflate compression.
// The writer switches to ZIP64 on its own when sizes require it.
func writeZip(ctx context.Context, w io.Writer, entries []walk.Entry, opts WriteOptions) error {
	zw := zip.NewWriter(w)

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeZipEntry(zw, &entries[i], opts); err != nil {
			return err
		}
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, e *walk.Entry, opts WriteOptions) error {
	hdr := &zip.FileHeader{
		Name:   e.RelPath,
		Method: zip.Deflate,
	}
	if opts.Reproducible {
		hdr.Modified = time.Time{}
	} else {
		hdr.Modified = e.ModTime
	}

	switch e.Kind {
	case walk.KindDir:
		hdr.Name += "/"
		hdr.Method = zip.Store
		mode := e.Mode.Perm()
		if opts.Reproducible {
			mode = 0o755
		}
		hdr.SetMode(fs.ModeDir | mode)
		_, err := zw.CreateHeader(hdr)
		return err

	case walk.KindSymlink:
		hdr.SetMode(fs.ModeSymlink | 0o777)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		// The link target is stored as the entry content, the
		// convention unzip tools understand.
		_, err = io.WriteString(fw, e.LinkTarget)
		return err

	default:
		hdr.SetMode(e.Mode.Perm())
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(e.Path)
		if err != nil {
			return fmt.Errorf("open %q: %w", e.RelPath, err)
		}
		defer f.Close()
		if _, err := io.CopyN(fw, f, e.Size); err != nil {
			return fmt.Errorf("write %q: %w", e.RelPath, err)
		}
		return nil
	}
}
