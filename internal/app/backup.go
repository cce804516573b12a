package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/KarimYounus/jobbies/internal/storage"
)

const backupMarker = "backups/last-run"

// DailyBackup copies every bucket to backups/<bucket>.<YYYY-MM-DD> the first
// time it runs on a given day. Buckets that do not exist yet are skipped.
func (a *App) DailyBackup(ctx context.Context) error {
	today := storage.BackupStamp(a.now())

	last, err := a.Store.LoadBucket(ctx, backupMarker)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read backup marker: %w", err)
	}
	if string(last) == today {
		return nil
	}

	var errs []error
	for _, bucket := range []string{storage.ApplicationsBucket, storage.CVBucket, storage.SettingsBucket} {
		key, err := a.Store.BackupBucket(ctx, bucket, today)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			continue
		case err != nil:
			errs = append(errs, err)
		default:
			a.Logger.Info().Str("backup", key).Msg("bucket backed up")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := a.Store.SaveBucket(ctx, backupMarker, []byte(today)); err != nil {
		return fmt.Errorf("failed to save backup marker: %w", err)
	}
	return nil
}
