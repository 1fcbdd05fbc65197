// Package codec provides the streaming compression adapters the archive
// writer and reader push bytes through. Only gzip is actually implemented;
// the lz4 and zstd tags exist in the on-disk format but are not supported by
// this core. On the writing side Resolve turns them into gzip; NewDecoder
// rejects them with an error.
package codec

import (
	"compress/gzip"
	"io"

	"github.com/Euclidae/khrowno-sub000/internal/errors"
)

// Tag identifies the compression algorithm recorded in the archive header.
type Tag uint8

const (
	TagNone Tag = 0
	TagGzip Tag = 1
	TagLZ4  Tag = 2
	TagZstd Tag = 3
)

// Resolve maps a requested tag to the tag that will actually be used. lz4
// and zstd are not implemented, so requesting either silently downgrades to
// gzip — the caller must rewrite the header to the returned tag so a reader
// never attempts an unimplemented codec.
func Resolve(requested Tag) Tag {
	switch requested {
	case TagNone, TagGzip:
		return requested
	case TagLZ4, TagZstd:
		return TagGzip
	default:
		return TagGzip
	}
}

// Encoder is a streaming compressor: writes pushed to it are compressed and
// forwarded to the underlying sink. Finish must be called exactly once to
// flush the compressor's trailer; further writes after Finish are invalid.
type Encoder interface {
	io.Writer
	Finish() error
}

// Decoder is a streaming decompressor reading from an underlying source.
type Decoder interface {
	io.Reader
}

type passthroughEncoder struct{ io.Writer }

func (passthroughEncoder) Finish() error { return nil }

type gzipEncoder struct {
	zw *gzip.Writer
}

func (g *gzipEncoder) Write(p []byte) (int, error) {
	n, err := g.zw.Write(p)
	if err != nil {
		return n, errors.NewCryptoError("gzip-write", errors.ErrCompressionFailed)
	}
	return n, nil
}

func (g *gzipEncoder) Finish() error {
	if err := g.zw.Close(); err != nil {
		return errors.NewCryptoError("gzip-close", errors.ErrCompressionFailed)
	}
	return nil
}

// NewEncoder returns a streaming encoder over sink for the resolved tag.
// Pass the result of Resolve, not the originally requested tag.
func NewEncoder(sink io.Writer, tag Tag) (Encoder, error) {
	switch tag {
	case TagNone:
		return passthroughEncoder{sink}, nil
	case TagGzip:
		return &gzipEncoder{zw: gzip.NewWriter(sink)}, nil
	default:
		return nil, errors.NewCryptoError("codec-new-encoder", errors.ErrCompressionFailed)
	}
}

type gzipDecoder struct {
	zr *gzip.Reader
}

func (g *gzipDecoder) Read(p []byte) (int, error) {
	n, err := g.zr.Read(p)
	if err != nil && err != io.EOF {
		return n, errors.NewCryptoError("gzip-read", errors.ErrDecompressionFailed)
	}
	return n, err
}

// NewDecoder returns a streaming decoder over source for the stored tag.
// Any tag other than none/gzip is a format error: a valid archive never
// records lz4/zstd because the writer downgrades via Resolve before the
// header is finalised.
func NewDecoder(source io.Reader, tag Tag) (Decoder, error) {
	switch tag {
	case TagNone:
		return source, nil
	case TagGzip:
		zr, err := gzip.NewReader(source)
		if err != nil {
			return nil, errors.NewCryptoError("gzip-new-reader", errors.ErrDecompressionFailed)
		}
		return &gzipDecoder{zr: zr}, nil
	default:
		return nil, errors.NewArchiveError("compression-tag", errors.ErrDecompressionFailed)
	}
}
