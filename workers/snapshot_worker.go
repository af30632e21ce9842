// workers/snapshot_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"progress-engine/repos"
	"progress-engine/services"
	"progress-engine/utils"
)

// Uploader stores one finished snapshot object.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// SnapshotRow is one JSON line of the export.
type SnapshotRow struct {
	UserID       string     `json:"user_id"`
	TotalXP      int64      `json:"xp"`
	Level        int        `json:"level"`
	Rank         string     `json:"rank"`
	Points       int64      `json:"points"`
	Streak       int        `json:"streak"`
	LastActiveOn *time.Time `json:"last_active_on,omitempty"`
}

// SnapshotWorker periodically exports every profile as JSON lines for offline analytics.
type SnapshotWorker struct {
	store    repos.Store
	uploader Uploader
	interval time.Duration
	pageSize int
	log      *utils.Logger
	now      func() time.Time

	sched    gocron.Scheduler
	stopOnce sync.Once
}

func NewSnapshotWorker(store repos.Store, uploader Uploader, interval time.Duration, baseLog *utils.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &SnapshotWorker{
		store:    store,
		uploader: uploader,
		interval: interval,
		pageSize: 500,
		log:      baseLog.With("worker", "SnapshotWorker"),
		now:      time.Now,
	}
}

// RunOnce pages through all profiles and uploads a single object. It returns the
// object location and the number of rows written.
func (w *SnapshotWorker) RunOnce(ctx context.Context) (string, int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	rows := 0
	after := ""
	for {
		page, err := w.store.ListProfiles(ctx, after, w.pageSize)
		if err != nil {
			return "", rows, fmt.Errorf("list profiles after %q: %w", after, err)
		}
		for _, p := range page {
			// Level is recomputed from XP so the export never carries a stale cached value.
			lvl := services.LevelFor(p.TotalXP)
			if err := enc.Encode(SnapshotRow{
				UserID:       p.ExternalUserID,
				TotalXP:      p.TotalXP,
				Level:        lvl.Level,
				Rank:         services.RankFor(lvl.Level),
				Points:       p.Points,
				Streak:       p.Streak,
				LastActiveOn: p.LastActiveOn,
			}); err != nil {
				return "", rows, err
			}
			rows++
		}
		if len(page) < w.pageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	key := fmt.Sprintf("snapshots/profiles/%s.jsonl", w.now().UTC().Format("20060102T150405Z"))
	loc, err := w.uploader.Put(ctx, key, "application/x-ndjson", buf.Bytes())
	if err != nil {
		return "", rows, err
	}
	return loc, rows, nil
}

// Start schedules RunOnce every interval until ctx is done or Stop is called.
func (w *SnapshotWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()
			loc, n, err := w.RunOnce(runCtx)
			if err != nil {
				w.log.Error("snapshot export failed", "error", err)
				return
			}
			w.log.Info("snapshot exported", "location", loc, "rows", n)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule snapshot job: %w", err)
	}
	w.sched = sched
	sched.Start()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

func (w *SnapshotWorker) Stop() {
	if w.sched == nil {
		return
	}
	w.stopOnce.Do(func() {
		if err := w.sched.Shutdown(); err != nil {
			w.log.Warn("snapshot scheduler shutdown", "error", err)
		}
	})
}
