// Package source opens gmailurl inputs.
//
// Text inputs are streamed; raw inputs are exposed as one contiguous byte
// slice, memory-mapped where the platform allows it.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// ErrNotRegular is returned by OpenRaw for directories and other
// non-regular files.
var ErrNotRegular = errors.New("not a regular file")

// OpenText opens path for line-by-line reading. Closing the reader returned
// for Stdin leaves os.Stdin open.
func OpenText(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open text input: %w", err)
	}
	return f, nil
}

// Mapping is a read-only view of a raw input.
type Mapping struct {
	data   []byte
	mapped bool
	closed bool
}

// Bytes returns the input contents. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the input size in bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Mapped reports whether the contents are memory-mapped.
func (m *Mapping) Mapped() bool {
	return m.mapped
}

// Close releases the mapping. It is safe to call more than once.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	data := m.data
	m.data = nil
	if m.mapped {
		if err := unmap(data); err != nil {
			return fmt.Errorf("unmap raw input: %w", err)
		}
	}
	return nil
}

// OpenRaw exposes the whole of path as a byte slice. Stdin is read fully;
// regular files are memory-mapped where supported. Empty files yield an
// empty Mapping.
func OpenRaw(path string) (*Mapping, error) {
	if path == Stdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read raw input from stdin: %w", err)
		}
		return &Mapping{data: data}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat raw input: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("open raw input %s: %w", path, ErrNotRegular)
	}
	if info.Size() == 0 {
		return &Mapping{}, nil
	}

	data, mapped, err := mapFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("map raw input %s: %w", path, err)
	}
	return &Mapping{data: data, mapped: mapped}, nil
}
