// Package upload stores featured images under collision-resistant generated names
package upload

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/go-while/go-newsroom/internal/slug"
)

// sniffLen is how many leading bytes are read for content type detection
const sniffLen = 3072

// fallback base name when the client filename slugs to nothing
const defaultBaseName = "image"

var (
	// ErrStore wraps every failure to write the upload into the storage directory
	ErrStore = errors.New("upload store failed")
	// ErrUnsupportedType is returned for content that is not an allowed image type
	ErrUnsupportedType = errors.New("unsupported upload type")
)

// AllowedImageTypes lists the detected MIME types accepted as featured image
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/avif", "image/svg+xml"}

// Storage writes uploads into Dir
type Storage struct {
	Dir string

	// NewToken returns the uniqueness token appended to the slug; uuid by default
	NewToken func() string
}

// NewStorage returns a Storage writing into dir
func NewStorage(dir string) *Storage {
	return &Storage{
		Dir:      dir,
		NewToken: newToken,
	}
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FileName builds "{slug(base)}-{token}.{ext}" from the client filename and the detected extension
func (s *Storage) FileName(clientName, ext string) string {
	base := filepath.Base(strings.ReplaceAll(clientName, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return slug.MakeOr(base, defaultBaseName) + "-" + s.NewToken() + "." + ext
}

// Store copies the uploaded file into Dir under a generated name and returns that name.
// On error the returned name is the one that was attempted, or "" when detection failed first.
func (s *Storage) Store(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open upload %s: %v", ErrStore, fh.Filename, err)
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: read upload %s: %v", ErrStore, fh.Filename, err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), AllowedImageTypes...) {
		return "", fmt.Errorf("%w: %s detected as %s", ErrUnsupportedType, fh.Filename, mtype.String())
	}

	name := s.FileName(fh.Filename, mtype.Extension())
	if err := s.write(name, head, src); err != nil {
		return name, err
	}
	log.Printf("[UPLOAD]: stored %s (%s, %d bytes) as %s", fh.Filename, mtype.String(), fh.Size, name)
	return name, nil
}

// write streams head+rest into a temp file inside Dir and renames it into place
func (s *Storage) write(name string, head []byte, rest io.Reader) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", ErrStore, s.Dir, err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStore, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(head); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %v", ErrStore, name, err)
	}
	if _, err := io.Copy(tmp, rest); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %v", ErrStore, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrStore, name, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod %s: %v", ErrStore, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: move into place %s: %v", ErrStore, name, err)
	}
	return nil
}
