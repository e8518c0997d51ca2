package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/raptar-dev/raptar/internal/walk"
)

// writeTar streams entries into a PAX tape archive.
func writeTar(ctx context.Context, w io.Writer, entries []walk.Entry, opts WriteOptions) error {
	tw := tar.NewWriter(w)

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeTarEntry(tw, &entries[i], opts); err != nil {
			return err
		}
	}

	return tw.Close()
}

func writeTarEntry(tw *tar.Writer, e *walk.Entry, opts WriteOptions) error {
	hdr := &tar.Header{
		Name:   e.RelPath,
		Mode:   int64(e.Mode.Perm()),
		Format: tar.FormatPAX,
	}
	applyTarMetadata(hdr, e, opts)

	switch e.Kind {
	case walk.KindDir:
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
		if opts.Reproducible {
			hdr.Mode = 0o755
		}
		return tw.WriteHeader(hdr)

	case walk.KindSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.LinkTarget
		return tw.WriteHeader(hdr)

	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(e.Path)
		if err != nil {
			return fmt.Errorf("open %q: %w", e.RelPath, err)
		}
		defer f.Close()
		// Copy exactly the snapshotted size; a file growing mid-run must
		// not corrupt the stream.
		if _, err := io.CopyN(tw, f, e.Size); err != nil {
			return fmt.Errorf("write %q: %w", e.RelPath, err)
		}
		return nil
	}
}

// applyTarMetadata fills ownership and timestamps. Reproducible mode
// zeroes mtime and ownership and strips the symbolic owner names.
func applyTarMetadata(hdr *tar.Header, e *walk.Entry, opts WriteOptions) {
	if opts.Reproducible {
		hdr.ModTime = time.Unix(0, 0).UTC()
		hdr.Uid = 0
		hdr.Gid = 0
		hdr.Uname = ""
		hdr.Gname = ""
		if opts.PreserveOwner {
			hdr.Uid = e.UID
			hdr.Gid = e.GID
		}
		return
	}

	hdr.ModTime = e.ModTime
	if opts.PreserveOwner {
		hdr.Uid = e.UID
		hdr.Gid = e.GID
	}
}
