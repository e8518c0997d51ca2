//go:build !unix

package walk

import "io/fs"

type devIno struct {
	dev uint64
	ino uint64
}

func statOwner(fs.FileInfo) (uid, gid int) {
	return 0, 0
}

func statDevIno(fs.FileInfo) (devIno, bool) {
	return devIno{}, false
}
