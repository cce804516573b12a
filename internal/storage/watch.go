package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// BucketEvent reports that a bucket file changed on disk.
type BucketEvent struct {
	Bucket string
}

// Watch streams bucket change events until ctx is cancelled. Writes made by
// other processes (or a text editor) show up here. Rapid bursts of writes to
// the same bucket are coalesced. The channel is closed when ctx is done.
func (s *DiskStore) Watch(ctx context.Context, logger zerolog.Logger) (<-chan BucketEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.basePath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.basePath, err)
	}

	events := make(chan BucketEvent, 16)
	send := func(ev BucketEvent) {
		select {
		case events <- ev:
		default:
			// consumer is busy; it will re-read the bucket anyway
		}
	}

	go func() {
		defer close(events)
		defer watcher.Close()

		throttle := newBucketThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("watcher error")
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if bucket := bucketForPath(evt.Name); bucket != "" {
					throttle.Enqueue(bucket, send)
				}
			}
		}
	}()

	return events, nil
}

func bucketForPath(p string) string {
	switch name := filepath.Base(p); {
	case strings.HasPrefix(name, "."):
		return ""
	case name == ApplicationsBucket, name == CVBucket, name == SettingsBucket:
		return name
	default:
		return ""
	}
}

// bucketThrottle delivers each changed bucket once per burst.
type bucketThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	delay   time.Duration
	stopped bool
}

func newBucketThrottle(delay time.Duration) *bucketThrottle {
	return &bucketThrottle{delay: delay, pending: make(map[string]struct{})}
}

func (t *bucketThrottle) Enqueue(bucket string, send func(BucketEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.pending[bucket] = struct{}{}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() { t.flush(send) })
	}
}

// flush holds the lock while sending so Stop cannot race a send onto a
// closed channel. send never blocks.
func (t *bucketThrottle) flush(send func(BucketEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	for bucket := range t.pending {
		send(BucketEvent{Bucket: bucket})
	}
	t.pending = make(map[string]struct{})
	t.timer = nil
}

func (t *bucketThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
