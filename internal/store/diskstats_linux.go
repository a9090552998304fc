//go:build linux

package store

import "syscall"

// diskStats reports space usable by an unprivileged process (Bavail) and the
// filesystem size for the volume holding path.
func diskStats(path string) (avail, total uint64) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0
	}
	return st.Bavail * uint64(st.Bsize), st.Blocks * uint64(st.Bsize)
}
