package tree

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
)

// Compression identifies how a tree file is stored on disk.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "none"
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// maxTreeSize bounds the decompressed size of a tree.
const maxTreeSize = 64 << 20

// File is a loaded tree together with facts about its source.
type File struct {
	Path        string
	Program     *ast.Program
	Fingerprint string
	Compression Compression
}

// Detect reports the compression of data by its magic number.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	}
	return None
}

// Decompress returns the plain YAML text of a possibly compressed tree.
func Decompress(data []byte) ([]byte, error) {
	var r io.Reader
	switch Detect(data) {
	case Gzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip tree: %w", err)
		}
		defer gz.Close()
		r = gz
	case Zstd:
		dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(maxTreeSize))
		if err != nil {
			return nil, fmt.Errorf("opening zstd tree: %w", err)
		}
		defer dec.Close()
		r = dec
	default:
		return data, nil
	}

	plain, err := io.ReadAll(io.LimitReader(r, maxTreeSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing tree: %w", err)
	}
	if len(plain) > maxTreeSize {
		return nil, fmt.Errorf("tree exceeds %d bytes", maxTreeSize)
	}
	return plain, nil
}

// Compress encodes plain tree text in the given format.
func Compress(data []byte, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case Gzip:
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return nil, err
		}
		if err := gz.Close(); err != nil {
			return nil, err
		}
	case Zstd:
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of the raw file bytes.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decode decompresses data if needed and parses the tree.
func Decode(data []byte) (*ast.Program, error) {
	plain, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	return Parse(plain)
}

// ReadFile loads the tree stored at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	program, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{
		Path:        path,
		Program:     program,
		Fingerprint: Fingerprint(data),
		Compression: Detect(data),
	}, nil
}
