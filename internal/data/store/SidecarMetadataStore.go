package store

import (
	"context"
	"encoding/json"
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

// SidecarMetadataStore keeps "<name>.meta.json" next to each blob.
type SidecarMetadataStore struct {
	dir               string
	defaultDepartment string
	logger            *logger_i.Logger
}

func NewSidecarMetadataStore(dir string, defaultDepartment string) (*SidecarMetadataStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating metadata dir %s: %w", dir, err)
	}
	return &SidecarMetadataStore{
		dir:               dir,
		defaultDepartment: defaultDepartment,
		logger:            logger_i.NewLogger("sidecar_store"),
	}, nil
}

func (s *SidecarMetadataStore) path(name string) string {
	return filepath.Join(s.dir, name+config.SidecarSuffix)
}

// Get returns the stored sidecar, or the public default when none exists.
// A sidecar that cannot be decoded is treated the same way as a missing one,
// and missing keys take their default values.
func (s *SidecarMetadataStore) Get(ctx context.Context, name string) (commonModels.MetadataSidecar, error) {
	if err := ValidateName(name); err != nil {
		return commonModels.MetadataSidecar{}, err
	}
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return commonModels.DefaultSidecar(s.defaultDepartment), nil
	}
	if err != nil {
		return commonModels.MetadataSidecar{}, err
	}

	var meta commonModels.MetadataSidecar
	if err = json.Unmarshal(raw, &meta); err != nil {
		s.logger.Warn("Unreadable sidecar, using default", "name", name, "error", err)
		return commonModels.DefaultSidecar(s.defaultDepartment), nil
	}
	return meta.WithDefaults(s.defaultDepartment), nil
}

func (s *SidecarMetadataStore) Put(ctx context.Context, name string, meta commonModels.MetadataSidecar) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.dir, s.path(name), raw)
}

func (s *SidecarMetadataStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *SidecarMetadataStore) List(ctx context.Context) ([]commonModels.MetadataEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var result []commonModels.MetadataEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), config.SidecarSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), config.SidecarSuffix)
		if ValidateName(name) != nil {
			continue
		}
		meta, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		result = append(result, commonModels.MetadataEntry{Name: name, Meta: meta})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
