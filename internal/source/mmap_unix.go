//go:build unix

package source

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only. Files too large for the address space are
// rejected.
func mapFile(f *os.File, size int64) ([]byte, bool, error) {
	if size > math.MaxInt {
		return nil, false, fmt.Errorf("file of %d bytes exceeds address space", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Some filesystems (procfs, FUSE) refuse mmap.
		data, rerr := io.ReadAll(io.NewSectionReader(f, 0, size))
		if rerr != nil {
			return nil, false, fmt.Errorf("mmap: %w; read: %w", err, rerr)
		}
		return data, false, nil
	}
	return data, true, nil
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
