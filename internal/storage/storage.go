// Package storage persists JSON buckets and binary CV assets.
package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Bucket names. They match the file names earlier releases wrote, so existing
// data directories keep working.
const (
	ApplicationsBucket = "job-applications.json"
	CVBucket           = "cv-collection.json"
	SettingsBucket     = "settings.json"
)

// AssetRoot is the prefix of every relative asset path.
const AssetRoot = "cv-assets"

const backupRoot = "backups"

// Category is a logical asset folder.
type Category string

const (
	Images Category = "images"
	PDFs   Category = "pdfs"
)

// ErrNotFound is returned when a bucket or asset does not exist. Callers treat
// it as an empty state rather than a failure.
var ErrNotFound = errors.New("not found")

// ErrInvalidAssetPath is returned for asset paths outside the asset root.
var ErrInvalidAssetPath = errors.New("invalid asset path")

// Service is the persistence contract shared by all handlers.
type Service interface {
	// LoadBucket returns the raw JSON document stored under name, or ErrNotFound.
	LoadBucket(ctx context.Context, name string) ([]byte, error)
	// SaveBucket overwrites the whole document stored under name.
	SaveBucket(ctx context.Context, name string, data []byte) error
	// EnsureAssetDirs creates the image and pdf asset folders. It is idempotent.
	EnsureAssetDirs(ctx context.Context) error
	// SaveBinaryAsset stores data under a collision free name and returns its
	// relative path, e.g. cv-assets/images/cv_1718000000000_a1b2c3.png.
	SaveBinaryAsset(ctx context.Context, category Category, originalName string, data []byte) (string, error)
	// LoadAssetAsRenderable returns a data URI for the asset. ok is false when
	// the asset cannot be read; callers show a placeholder.
	LoadAssetAsRenderable(ctx context.Context, relPath string) (uri string, ok bool)
	// BackupBucket copies the bucket to backups/<name>.<stamp> and returns the backup key.
	BackupBucket(ctx context.Context, name, stamp string) (string, error)
	Close() error
}

// LoadJSON decodes the bucket into v.
func LoadJSON(ctx context.Context, s Service, name string, v any) error {
	data, err := s.LoadBucket(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Bucket: name, Err: err}
	}
	return nil
}

// SaveJSON writes v to the bucket as indented JSON.
func SaveJSON(ctx context.Context, s Service, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.SaveBucket(ctx, name, data)
}

// DecodeError reports a bucket whose contents are not the expected JSON.
type DecodeError struct {
	Bucket string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed data in %s: %v", e.Bucket, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UniqueAssetName derives a collision free file name from the uploaded name.
func UniqueAssetName(originalName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	base = strings.TrimSuffix(base, ext)
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "asset"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s_%d_%s%s", base, now.UnixMilli(), suffix, strings.ToLower(ext))
}

// AssetPath joins a category and file name into a relative asset path.
func AssetPath(category Category, name string) string {
	return path.Join(AssetRoot, string(category), name)
}

// cleanAssetPath normalises a relative asset path and rejects anything that
// escapes the asset root.
func cleanAssetPath(relPath string) (string, error) {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	if !strings.HasPrefix(p, AssetRoot+"/") || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetPath, relPath)
	}
	return p, nil
}

func validCategory(c Category) error {
	if c != Images && c != PDFs {
		return fmt.Errorf("unknown asset category %q", c)
	}
	return nil
}

func backupKey(name, stamp string) string {
	return path.Join(backupRoot, name+"."+stamp)
}

// DataURI embeds data as a data: URI with a sniffed media type.
func DataURI(data []byte) string {
	mediaType := strings.TrimSpace(strings.Split(mimetype.Detect(data).String(), ";")[0])
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// BackupStamp formats the daily backup suffix.
func BackupStamp(t time.Time) string {
	return t.Format("2006-01-02")
}

// PreserveUnreadable copies a bucket that failed to decode aside before the
// caller falls back to an empty state and eventually overwrites it. It
// returns the backup key, or "" when err is not a decode failure.
func PreserveUnreadable(ctx context.Context, s Service, err error, now time.Time) (string, error) {
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		return "", nil
	}
	return s.BackupBucket(ctx, decodeErr.Bucket, "unreadable-"+now.Format("20060102T150405"))
}
