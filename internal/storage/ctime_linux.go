//go:build linux

package storage

import (
	"io/fs"
	"syscall"
	"time"
)

// createdAt reports the inode change time, the closest Linux exposes through stat(2).
func createdAt(info fs.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
