package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

const tempPrefix = ".tmp-"

// FileBlobStore keeps one file per document in a flat directory.
type FileBlobStore struct {
	dir    string
	logger *logger_i.Logger
}

func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs dir %s: %w", dir, err)
	}
	return &FileBlobStore{dir: dir, logger: logger_i.NewLogger("blob_store")}, nil
}

// ValidateName rejects names that would escape the docs directory or collide
// with sidecar and temp files.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", commonModels.ErrInvalidDocumentName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", commonModels.ErrInvalidDocumentName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", commonModels.ErrInvalidDocumentName, name)
	case strings.HasSuffix(name, config.SidecarSuffix):
		return fmt.Errorf("%w: %q is reserved for metadata", commonModels.ErrInvalidDocumentName, name)
	}
	return nil
}

func (s *FileBlobStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Write replaces the blob atomically: readers see either the old or the new
// bytes, never a partial file.
func (s *FileBlobStore) Write(ctx context.Context, name string, content []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(s.dir, s.path(name), content)
}

func (s *FileBlobStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", commonModels.ErrDocumentNotFound, name)
	}
	return content, err
}

func (s *FileBlobStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Debug("Blob removed", "name", name)
	return true, nil
}

func (s *FileBlobStore) Stat(ctx context.Context, name string) (commonModels.BlobInfo, bool, error) {
	if err := ValidateName(name); err != nil {
		return commonModels.BlobInfo{}, false, err
	}
	info, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return commonModels.BlobInfo{}, false, nil
	}
	if err != nil {
		return commonModels.BlobInfo{}, false, err
	}
	return commonModels.BlobInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, true, nil
}

// List returns every document blob sorted by name. Sidecars, temp files and
// directories are skipped.
func (s *FileBlobStore) List(ctx context.Context) ([]commonModels.BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	blobs := make([]commonModels.BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || ValidateName(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		blobs = append(blobs, commonModels.BlobInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}

func writeFileAtomic(dir string, target string, content []byte) error {
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err = os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
