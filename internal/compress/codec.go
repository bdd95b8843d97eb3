// Package compress provides the compression codecs used for rotated log
// generations. Gzip is the default and what the `.gz` artifact naming
// refers to; zstd, lz4 and snappy are selectable per group. All codecs
// produce streaming formats readable by the standard tools for each
// (gunzip, unzstd, lz4, and the snappy framing format).
package compress

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownCodec is returned when a codec name is not registered.
var ErrUnknownCodec = errors.New("compress: unknown codec")

// Codec compresses and decompresses generation artifacts.
type Codec interface {
	// Name is the codec name used in configuration (e.g. "gzip").
	Name() string

	// Ext is the artifact filename extension including the dot (e.g. ".gz").
	Ext() string

	// NewWriter returns a compressing writer. Codecs whose container
	// format records a modification time (gzip) store modTime in the
	// header; others ignore it. The writer must be closed to flush.
	NewWriter(w io.Writer, modTime time.Time) (io.WriteCloser, error)

	// NewReader returns a decompressing reader.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// registry holds all known codecs in default-first order.
var registry = []Codec{gzipCodec{}, zstdCodec{}, lz4Codec{}, snappyCodec{}}

// Default returns the gzip codec.
func Default() Codec {
	return registry[0]
}

// ForName returns the codec with the given configuration name.
func ForName(name string) (Codec, error) {
	for _, c := range registry {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// ForExt returns the codec for a filename extension (with the dot).
func ForExt(ext string) (Codec, bool) {
	for _, c := range registry {
		if c.Ext() == ext {
			return c, true
		}
	}
	return nil, false
}

// Extensions returns every registered artifact extension, default first.
func Extensions() []string {
	exts := make([]string, len(registry))
	for i, c := range registry {
		exts[i] = c.Ext()
	}
	return exts
}

// Names returns every registered codec name, default first.
func Names() []string {
	names := make([]string, len(registry))
	for i, c := range registry {
		names[i] = c.Name()
	}
	return names
}

type gzipCodec struct{}

func (gzipCodec) Name() string { return "gzip" }
func (gzipCodec) Ext() string  { return ".gz" }

func (gzipCodec) NewWriter(w io.Writer, modTime time.Time) (io.WriteCloser, error) {
	zw := gzip.NewWriter(w)
	if !modTime.IsZero() {
		zw.ModTime = modTime.UTC()
	}
	return zw, nil
}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

type zstdCodec struct{}

func (zstdCodec) Name() string { return "zstd" }
func (zstdCodec) Ext() string  { return ".zst" }

func (zstdCodec) NewWriter(w io.Writer, _ time.Time) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

type lz4Codec struct{}

func (lz4Codec) Name() string { return "lz4" }
func (lz4Codec) Ext() string  { return ".lz4" }

func (lz4Codec) NewWriter(w io.Writer, _ time.Time) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }
func (snappyCodec) Ext() string  { return ".sz" }

func (snappyCodec) NewWriter(w io.Writer, _ time.Time) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func (snappyCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}
