//go:build unix

package walk

import (
	"io/fs"
	"syscall"
)

type devIno struct {
	dev uint64
	ino uint64
}

func statOwner(info fs.FileInfo) (uid, gid int) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(st.Uid), int(st.Gid)
	}
	return 0, 0
}

func statDevIno(info fs.FileInfo) (devIno, bool) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return devIno{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
	}
	return devIno{}, false
}
