// Package extract unpacks downloaded dataset archives in place. ZIP
// archives cover the common publishing format, including LZMA and
// zstd compressed members; tarballs cover the gzip, zstd, lz4 and xz
// families.
package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Extractor unpacks one archive format.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Registry maps archive name suffixes to extractors. The longest
// matching suffix wins, so ".tar.gz" is tried before ".gz" would be.
type Registry struct {
	entries []registryEntry
}

type registryEntry struct {
	suffix string
	ext    Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an extractor for a suffix like ".tar.zst". Matching is
// case-insensitive.
func (r *Registry) Register(suffix string, ext Extractor) {
	r.entries = append(r.entries, registryEntry{suffix: strings.ToLower(suffix), ext: ext})
}

// ForPath returns the extractor for path, preferring the longest
// matching suffix.
func (r *Registry) ForPath(path string) (Extractor, bool) {
	name := strings.ToLower(filepath.Base(path))
	var best *registryEntry
	for i := range r.entries {
		e := &r.entries[i]
		if strings.HasSuffix(name, e.suffix) && (best == nil || len(e.suffix) > len(best.suffix)) {
			best = e
		}
	}
	if best == nil {
		return nil, false
	}
	return best.ext, true
}

// Supports reports whether path has a registered archive suffix.
func (r *Registry) Supports(path string) bool {
	_, ok := r.ForPath(path)
	return ok
}

// Default returns a registry covering the formats dataset publishers
// actually use.
func Default() *Registry {
	r := NewRegistry()
	r.Register(".zip", zipExtractor{})
	r.Register(".tar", tarExtractor{decompress: plainReader})
	r.Register(".tar.gz", tarExtractor{decompress: gzipReader})
	r.Register(".tgz", tarExtractor{decompress: gzipReader})
	r.Register(".tar.zst", tarExtractor{decompress: zstdReader})
	r.Register(".tar.lz4", tarExtractor{decompress: lz4Reader})
	r.Register(".tar.xz", tarExtractor{decompress: xzReader})
	r.Register(".txz", tarExtractor{decompress: xzReader})
	r.Register(".tar.lzma", tarExtractor{decompress: lzmaReader})
	r.Register(".tlz", tarExtractor{decompress: lzmaReader})
	return r
}

// ZIP compression method IDs beyond the built-in store and deflate.
const (
	zipMethodLZMA uint16 = 14
	zipMethodZstd uint16 = 93
)

type zipExtractor struct{}

func (zipExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	zr.RegisterDecompressor(zipMethodLZMA, lzmaZipDecompressor)
	zr.RegisterDecompressor(zipMethodZstd, zstdZipDecompressor)

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeZipEntry(f, destDir); err != nil {
			return fmt.Errorf("entry %s: %w", f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, destDir string) error {
	target, err := secureJoin(destDir, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeFileAtomic(target, rc, f.Mode())
}

type tarExtractor struct {
	decompress func(io.Reader) (io.ReadCloser, error)
}

func (t tarExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	body, err := t.decompress(f)
	if err != nil {
		return fmt.Errorf("open archive stream: %w", err)
	}
	defer body.Close()

	tr := tar.NewReader(body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := secureJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFileAtomic(target, tr, hdr.FileInfo().Mode()); err != nil {
				return fmt.Errorf("entry %s: %w", hdr.Name, err)
			}
		default:
			// Links and special files do not occur in dataset
			// archives; skip them rather than fail the whole run.
		}
	}
}

func plainReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func gzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func zstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

func lz4Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func xzReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

func lzmaReader(r io.Reader) (io.ReadCloser, error) {
	lr, err := lzma.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(lr), nil
}

// lzmaZipDecompressor reads ZIP method 14 members. The member starts
// with a version word and a properties block; the classic LZMA header
// wants the properties followed by an unknown-size marker, after which
// the stream is terminated by its end-of-stream marker.
func lzmaZipDecompressor(r io.Reader) io.ReadCloser {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return failReadCloser{err: fmt.Errorf("lzma member header: %w", err)}
	}
	propLen := int(binary.LittleEndian.Uint16(hdr[2:4]))
	props := make([]byte, propLen)
	if _, err := io.ReadFull(r, props); err != nil {
		return failReadCloser{err: fmt.Errorf("lzma member properties: %w", err)}
	}
	if propLen != 5 {
		return failReadCloser{err: fmt.Errorf("lzma member: unexpected properties length %d", propLen)}
	}

	classic := make([]byte, 13)
	copy(classic, props)
	for i := 5; i < 13; i++ {
		classic[i] = 0xFF
	}
	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(classic), r))
	if err != nil {
		return failReadCloser{err: fmt.Errorf("lzma member: %w", err)}
	}
	return io.NopCloser(lr)
}

func zstdZipDecompressor(r io.Reader) io.ReadCloser {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return failReadCloser{err: err}
	}
	return dec.IOReadCloser()
}

type failReadCloser struct{ err error }

func (f failReadCloser) Read([]byte) (int, error) { return 0, f.err }
func (f failReadCloser) Close() error             { return nil }

// secureJoin resolves an archive member name inside destDir and
// rejects names that would escape it.
func secureJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe entry path %q", name)
	}
	return filepath.Join(destDir, clean), nil
}

// writeFileAtomic stages the entry next to its target and renames it
// into place, so an interrupted extraction never leaves a truncated
// file under the final name.
func writeFileAtomic(target string, r io.Reader, mode os.FileMode) error {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	tmp := target + ".partial"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
