package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func backends(t *testing.T) map[string]Service {
	t.Helper()
	disk, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	lite, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "jobbies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })
	return map[string]Service{
		"disk":   disk,
		"sqlite": lite,
		"memory": NewMemoryStore(),
	}
}

func TestServiceBuckets(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadBucket(ctx, ApplicationsBucket)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SaveBucket(ctx, ApplicationsBucket, []byte(`[1]`)))
			require.NoError(t, s.SaveBucket(ctx, ApplicationsBucket, []byte(`[1,2]`)))
			data, err := s.LoadBucket(ctx, ApplicationsBucket)
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(data))

			key, err := s.BackupBucket(ctx, ApplicationsBucket, "2024-05-01")
			require.NoError(t, err)
			assert.Equal(t, "backups/job-applications.json.2024-05-01", key)

			_, err = s.BackupBucket(ctx, SettingsBucket, "2024-05-01")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDiskStoreReadsExternalEdits(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewDiskStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveBucket(ctx, ApplicationsBucket, []byte(`[{"id":"a"}]`)))
	data, err := s.LoadBucket(ctx, ApplicationsBucket)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(data))

	edited := `[{"id":"a"},{"id":"b"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ApplicationsBucket), []byte(edited), 0o644))

	data, err = s.LoadBucket(ctx, ApplicationsBucket)
	require.NoError(t, err)
	assert.Equal(t, edited, string(data))
}

func TestServiceAssets(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.EnsureAssetDirs(ctx))
			require.NoError(t, s.EnsureAssetDirs(ctx))

			first, err := s.SaveBinaryAsset(ctx, Images, "My CV.PNG", pngHeader)
			require.NoError(t, err)
			second, err := s.SaveBinaryAsset(ctx, Images, "My CV.PNG", pngHeader)
			require.NoError(t, err)
			assert.NotEqual(t, first, second)
			assert.True(t, strings.HasPrefix(first, "cv-assets/images/My_CV_"), first)
			assert.True(t, strings.HasSuffix(first, ".png"), first)

			uri, ok := s.LoadAssetAsRenderable(ctx, first)
			require.True(t, ok)
			assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri)

			_, ok = s.LoadAssetAsRenderable(ctx, "cv-assets/images/missing.png")
			assert.False(t, ok)
			_, ok = s.LoadAssetAsRenderable(ctx, "../settings.json")
			assert.False(t, ok)

			_, err = s.SaveBinaryAsset(ctx, Category("videos"), "a.mp4", []byte("x"))
			assert.Error(t, err)
		})
	}
}

func TestUniqueAssetName(t *testing.T) {
	now := time.UnixMilli(1718000000000)
	pattern := regexp.MustCompile(`^resume_1718000000000_[0-9a-f]{6}\.pdf$`)

	tests := []struct {
		in   string
		want *regexp.Regexp
	}{
		{"resume.PDF", pattern},
		{`C:\Users\me\resume.pdf`, pattern},
		{"../../resume.pdf", pattern},
		{"", regexp.MustCompile(`^asset_1718000000000_[0-9a-f]{6}$`)},
		{"my résumé (final).pdf", regexp.MustCompile(`^my_r_sum_final_1718000000000_[0-9a-f]{6}\.pdf$`)},
	}
	for _, tt := range tests {
		got := UniqueAssetName(tt.in, now)
		assert.Regexp(t, tt.want, got, "input %q", tt.in)
	}
}

func TestCleanAssetPath(t *testing.T) {
	good, err := cleanAssetPath(`cv-assets\images\a.png`)
	require.NoError(t, err)
	assert.Equal(t, "cv-assets/images/a.png", good)

	for _, bad := range []string{"settings.json", "cv-assets/../settings.json", "/etc/passwd", "cv-assets"} {
		_, err := cleanAssetPath(bad)
		assert.ErrorIs(t, err, ErrInvalidAssetPath, bad)
	}
}

func TestDataURI(t *testing.T) {
	assert.True(t, strings.HasPrefix(DataURI([]byte("%PDF-1.4\n%...")), "data:application/pdf;base64,"))
	assert.Equal(t, "data:text/plain;base64,aGk=", DataURI([]byte("hi")))
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var v []int
	assert.ErrorIs(t, LoadJSON(ctx, m, CVBucket, &v), ErrNotFound)

	m.Put(CVBucket, []byte(`{not json`))
	err := LoadJSON(ctx, m, CVBucket, &v)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, CVBucket, decodeErr.Bucket)

	require.NoError(t, SaveJSON(ctx, m, CVBucket, []int{1, 2}))
	require.NoError(t, LoadJSON(ctx, m, CVBucket, &v))
	assert.Equal(t, []int{1, 2}, v)
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	boom := errors.New("disk full")

	m.FailSave(SettingsBucket, boom)
	assert.ErrorIs(t, m.SaveBucket(ctx, SettingsBucket, []byte("{}")), boom)
	assert.Equal(t, 0, m.Saves(SettingsBucket))

	m.FailSave(SettingsBucket, nil)
	require.NoError(t, m.SaveBucket(ctx, SettingsBucket, []byte("{}")))
	assert.Equal(t, 1, m.Saves(SettingsBucket))

	m.FailLoad(SettingsBucket, boom)
	_, err := m.LoadBucket(ctx, SettingsBucket)
	assert.ErrorIs(t, err, boom)
}

func TestPreserveUnreadable(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Put(SettingsBucket, []byte(`{broken`))
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

	var v map[string]any
	err := LoadJSON(ctx, m, SettingsBucket, &v)
	key, perr := PreserveUnreadable(ctx, m, err, now)
	require.NoError(t, perr)
	assert.Equal(t, "backups/settings.json.unreadable-20240615T093000", key)
	raw, ok := m.Raw(key)
	require.True(t, ok)
	assert.Equal(t, `{broken`, string(raw))

	key, perr = PreserveUnreadable(ctx, m, ErrNotFound, now)
	assert.NoError(t, perr)
	assert.Empty(t, key)
}
