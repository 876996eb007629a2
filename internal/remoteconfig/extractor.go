package remoteconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/simpleg-eu/cp-core/internal/apperr"
)

// Extractor unpacks a configuration package into a directory.
type Extractor interface {
	Extract(data []byte, dir string) error
}

// ZipExtractor unpacks zip archives.
type ZipExtractor struct{}

// Extract writes every entry of the archive under dir. Entries whose path
// would land outside dir are rejected.
func (ZipExtractor) Extract(data []byte, dir string) error {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return apperr.Wrap(apperr.KindCompressionFailure, "failed to open configuration package", err)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return apperr.Wrap(apperr.KindCompressionFailure, "failed to resolve target directory", err)
	}

	for _, f := range archive.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return apperr.Newf(apperr.KindCompressionFailure, "entry '%s' escapes target directory", f.Name)
		}
		if err := extractFile(f, target); err != nil {
			return apperr.Wrap(apperr.KindCompressionFailure, fmt.Sprintf("failed to extract '%s'", f.Name), err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
