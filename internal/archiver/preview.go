package archiver

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/raptar-dev/raptar/internal/walk"
)

// writePreview lists the files that would be archived, with sizes when
// -s was given.
func writePreview(w io.Writer, res *walk.Result, opts Options) {
	cyan := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintln(w, color.New(color.Bold, color.FgGreen).Sprint("Files to be archived:"))
	fmt.Fprintln(w)

	var total uint64
	symlinks := 0
	for _, e := range res.Entries {
		switch e.Kind {
		case walk.KindSymlink:
			symlinks++
		case walk.KindFile:
			total += uint64(e.Size)
		}

		if opts.Size {
			sizeStr := fmt.Sprintf("%10s", humanize.Bytes(uint64(e.Size)))
			if e.Kind == walk.KindSymlink {
				sizeStr = "      link"
			}
			fmt.Fprintf(w, "  %s ", dim(sizeStr))
		} else {
			fmt.Fprint(w, "  ")
		}

		fmt.Fprint(w, e.RelPath)
		if e.Kind == walk.KindSymlink {
			fmt.Fprintf(w, "%s%s", cyan(" -> "), cyan(e.LinkTarget))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d files (%d symlinks), %s total\n",
		color.New(color.Bold).Sprint("Summary:"),
		len(res.Entries), symlinks, humanize.Bytes(total))
}

// writeSummary prints the final archive size against the input size.
func writeSummary(w io.Writer, output string, entries []walk.Entry) {
	info, err := os.Stat(output)
	if err != nil {
		return
	}

	var input uint64
	for _, e := range entries {
		if e.Kind == walk.KindFile {
			input += uint64(e.Size)
		}
	}

	ratio := 100.0
	if input > 0 {
		ratio = float64(info.Size()) / float64(input) * 100.0
	}

	fmt.Fprintf(w, "Done! %s -> %s (%.1f%% of original)\n",
		humanize.Bytes(input), humanize.Bytes(uint64(info.Size())), ratio)
}
