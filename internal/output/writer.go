package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stdout is the path that selects standard output.
const Stdout = "-"

// Indent is the per-level indentation of pretty output.
const Indent = "    "

// ErrClosed is returned by Write after Close or Abort.
var ErrClosed = errors.New("output writer closed")

// Options configures a Writer.
type Options struct {
	// Compact disables indentation.
	Compact bool

	// Echo, when set, receives every record pretty-printed as it is written.
	Echo io.Writer

	// FileMode is the permission of a created output file. Defaults to 0o644.
	FileMode os.FileMode
}

// Writer streams records into a JSON array.
type Writer struct {
	opts    Options
	bw      *bufio.Writer
	file    *os.File // nil for stdout
	tmpPath string
	dest    string
	count   int
	closed  bool
}

// chmod is replaced in tests.
var chmod = (*os.File).Chmod

// Create opens path for writing. Stdout writes to os.Stdout.
func Create(path string, opts Options) (*Writer, error) {
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	if path == Stdout {
		return NewWriter(os.Stdout, opts), nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".gmailurl-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if err := chmod(tmp, opts.FileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("set output mode: %w", err)
	}

	w := NewWriter(tmp, opts)
	w.file = tmp
	w.tmpPath = tmp.Name()
	w.dest = path
	return w, nil
}

// NewWriter returns a Writer over w. Close flushes but does not close w.
func NewWriter(w io.Writer, opts Options) *Writer {
	return &Writer{opts: opts, bw: bufio.NewWriterSize(w, 64*1024)}
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Write appends one record to the array.
func (w *Writer) Write(rec json.Marshaler) error {
	if w.closed {
		return ErrClosed
	}

	data, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	var pretty bytes.Buffer
	if !w.opts.Compact {
		if err := json.Indent(&pretty, data, Indent, Indent); err != nil {
			return fmt.Errorf("indent record: %w", err)
		}
	}

	sep := ","
	if w.count == 0 {
		sep = "["
	}
	if w.opts.Compact {
		_, err = w.bw.WriteString(sep)
		if err == nil {
			_, err = w.bw.Write(data)
		}
	} else {
		_, err = w.bw.WriteString(sep + "\n" + Indent)
		if err == nil {
			_, err = w.bw.Write(pretty.Bytes())
		}
	}
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.count++

	if w.opts.Echo != nil {
		var echo bytes.Buffer
		if err := json.Indent(&echo, data, "", Indent); err != nil {
			return fmt.Errorf("indent record: %w", err)
		}
		echo.WriteString("\n\n")
		if _, err := w.opts.Echo.Write(echo.Bytes()); err != nil {
			return fmt.Errorf("echo record: %w", err)
		}
	}
	return nil
}

// Close terminates the array, flushes, and moves a file output into place.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var tail string
	switch {
	case w.count == 0:
		tail = "[]\n"
	case w.opts.Compact:
		tail = "]\n"
	default:
		tail = "\n]\n"
	}

	_, err := w.bw.WriteString(tail)
	if err == nil {
		err = w.bw.Flush()
	}
	if w.file == nil {
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	if err == nil {
		err = w.file.Sync()
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("write output %s: %w", w.dest, err)
	}
	if err := os.Rename(w.tmpPath, w.dest); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("replace output %s: %w", w.dest, err)
	}
	return nil
}

// Abort discards a file output. For stdout it flushes what was written.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.file == nil {
		return w.bw.Flush()
	}
	_ = w.file.Close()
	if err := os.Remove(w.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	return nil
}
