package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// DiskStore keeps every bucket and asset as a plain file below basePath.
type DiskStore struct {
	d        *diskv.Diskv
	basePath string
	now      func() time.Time
}

// NewDiskStore opens (and creates) a file backed store rooted at basePath.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if basePath == "" {
		return nil, errors.New("storage: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &DiskStore{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathKey,
			InverseTransform:  pathKeyToKey,
			TempDir:           filepath.Join(basePath, ".tmp"),
			CacheSizeMax:      0, // no cache: other programs edit the bucket files
			PathPerm:          0o755,
			FilePerm:          0o644,
		}),
		basePath: basePath,
		now:      time.Now,
	}, nil
}

// BasePath returns the data directory.
func (s *DiskStore) BasePath() string {
	return s.basePath
}

func (s *DiskStore) LoadBucket(_ context.Context, name string) ([]byte, error) {
	rc, err := s.d.ReadStream(name, true)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("bucket %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (s *DiskStore) SaveBucket(_ context.Context, name string, data []byte) error {
	if err := s.d.Write(name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *DiskStore) EnsureAssetDirs(_ context.Context) error {
	for _, c := range []Category{Images, PDFs} {
		if err := os.MkdirAll(filepath.Join(s.basePath, AssetRoot, string(c)), 0o755); err != nil {
			return fmt.Errorf("failed to create %s asset directory: %w", c, err)
		}
	}
	return nil
}

func (s *DiskStore) SaveBinaryAsset(_ context.Context, category Category, originalName string, data []byte) (string, error) {
	if err := validCategory(category); err != nil {
		return "", err
	}
	key := AssetPath(category, UniqueAssetName(originalName, s.now()))
	for s.d.Has(key) {
		key = AssetPath(category, UniqueAssetName(originalName, s.now()))
	}
	if err := s.d.Write(key, data); err != nil {
		return "", fmt.Errorf("failed to save %s asset: %w", category, err)
	}
	return key, nil
}

func (s *DiskStore) LoadAssetAsRenderable(_ context.Context, relPath string) (string, bool) {
	key, err := cleanAssetPath(relPath)
	if err != nil {
		return "", false
	}
	data, err := s.d.Read(key)
	if err != nil {
		return "", false
	}
	return DataURI(data), true
}

func (s *DiskStore) BackupBucket(ctx context.Context, name, stamp string) (string, error) {
	data, err := s.LoadBucket(ctx, name)
	if err != nil {
		return "", err
	}
	key := backupKey(name, stamp)
	if err := s.d.Write(key, data); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", name, err)
	}
	return key, nil
}

// Close is a no-op; files are written synchronously.
func (s *DiskStore) Close() error {
	return nil
}

func keyToPathKey(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathKeyToKey(pk *diskv.PathKey) string {
	return path.Join(append(append([]string{}, pk.Path...), pk.FileName)...)
}
