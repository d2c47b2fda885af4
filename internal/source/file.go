package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"

	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/domain/product"
)

var _ fetch.Source = (*FileSource)(nil)

// FileSource reads the catalog from a snapshot written by WriteFile. Paths
// ending in ".gz" are gzip-compressed.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource reading path on every Fetch.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the snapshot file.
func (s *FileSource) Fetch(ctx context.Context) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Err: err}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if isGzip(s.path) {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, &MalformedError{Reason: "invalid gzip stream", Err: err}
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := readLimited(r)
	if err != nil {
		return nil, err
	}
	return Decode(jx.DecodeBytes(data))
}

// WriteFile stores items as a snapshot at path, gzip-compressed when path
// ends in ".gz". The file is written to a temporary name and renamed.
func WriteFile(path string, items []product.Product) (rerr error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	Encode(e, items)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		if rerr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if isGzip(path) {
		gz := pgzip.NewWriter(tmp)
		if _, err := gz.Write(e.Bytes()); err != nil {
			return errors.Wrap(err, "write gzip")
		}
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, "close gzip")
		}
	} else if _, err := tmp.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

func isGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}
