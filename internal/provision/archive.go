package provision

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
)

const (
	// TokenPrefix marks archive names generated by this service. The
	// download handler refuses anything without it, so externally
	// supplied names can never address a file.
	TokenPrefix = "temp_"

	ArchiveExt = ".zip"
)

var displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// NewToken returns a fresh unguessable archive name.
func NewToken() string {
	return TokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + ArchiveExt
}

// ValidToken reports whether name is a well-formed archive token:
// prefix-marked, no path traversal, no separators.
func ValidToken(name string) bool {
	if !strings.HasPrefix(name, TokenPrefix) {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.HasSuffix(name, ArchiveExt)
}

// SafeDisplayName validates a caller-supplied download name and forces
// the archive suffix. Empty input falls back to the token without its
// prefix.
func SafeDisplayName(name, token string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return strings.TrimPrefix(token, TokenPrefix), true
	}
	if !displayNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return "", false
	}
	if !strings.HasSuffix(name, ArchiveExt) {
		name += ArchiveExt
	}
	return name, true
}

// BuildArchive zips both ecosystem areas (under their area names) plus
// the named workbook at archive root.
func BuildArchive(session *Session, workbookName string) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, area := range []string{AreaAvaya, AreaAscom} {
		entries, err := os.ReadDir(filepath.Join(session.root, area))
		if err != nil {
			return nil, fmt.Errorf("read %s area: %w", area, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := addFile(zw, filepath.Join(session.root, area, entry.Name()), path.Join(area, entry.Name())); err != nil {
				return nil, err
			}
		}
	}

	if err := addFile(zw, filepath.Join(session.root, workbookName), workbookName); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}
