// Package streamio acquires the byte streams heaptrack-trim reads and writes.
//
// Paths are plain files by default; a ".gz" or ".zst" suffix selects gzip or
// zstd framing, matching the compressors heaptrack itself records with. The
// path "-" (or an empty path) selects stdin/stdout. The stdio file descriptors
// are never closed: only the wrappers around them are flushed and released, so
// the surrounding shell keeps working handles on the normal exit path.
package streamio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdio is the path value meaning stdin or stdout.
const Stdio = "-"

// Reader is a buffered trace input. Close releases decompressors and the
// backing file, but never the process's stdin.
type Reader struct {
	*bufio.Reader
	closers []io.Closer
}

// Writer is a buffered trace output. Close flushes everything down to the
// backing file and closes it, but never the process's stdout.
type Writer struct {
	*bufio.Writer
	closers []io.Closer
}

// Input opens path for reading with a bufSize-byte buffer.
func Input(path string, bufSize int) (*Reader, error) {
	r := &Reader{}

	var src io.Reader = os.Stdin
	if path != "" && path != Stdio {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		src = f
		r.closers = append(r.closers, f)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(src)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("open gzip input: %w", err)
		}
		src = gz
		r.closers = append(r.closers, gz)
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(src)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("open zstd input: %w", err)
		}
		rc := zr.IOReadCloser()
		src = rc
		r.closers = append(r.closers, rc)
	}

	r.Reader = bufio.NewReaderSize(src, bufSize)
	return r, nil
}

// Close releases the input wrappers in reverse acquisition order.
func (r *Reader) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

// Output creates path for writing with a bufSize-byte buffer. An existing file
// is truncated.
func Output(path string, bufSize int) (*Writer, error) {
	w := &Writer{}

	var dst io.Writer = os.Stdout
	if path != "" && path != Stdio {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output: %w", err)
		}
		dst = f
		w.closers = append(w.closers, f)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz := gzip.NewWriter(dst)
		dst = gz
		w.closers = append(w.closers, gz)
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(dst)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("create zstd output: %w", err)
		}
		dst = zw
		w.closers = append(w.closers, zw)
	}

	w.Writer = bufio.NewWriterSize(dst, bufSize)
	return w, nil
}

// Close flushes buffered data and closes the output wrappers in reverse
// acquisition order, so compressed streams get their trailing frames.
func (w *Writer) Close() error {
	var firstErr error
	if w.Writer != nil {
		if err := w.Writer.Flush(); err != nil {
			firstErr = err
		}
	}
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.closers = nil
	return firstErr
}
