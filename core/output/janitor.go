package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Janitor periodically removes expired uploads and generated documents.
type Janitor struct {
	dirs      []string
	retention time.Duration
	interval  time.Duration
	cron      *cron.Cron
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewJanitor creates a Janitor sweeping dirs every interval and removing
// regular files older than retention.
func NewJanitor(dirs []string, retention, interval time.Duration, log logrus.FieldLogger) *Janitor {
	return &Janitor{
		dirs:      dirs,
		retention: retention,
		interval:  interval,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		log:       log,
		now:       time.Now,
	}
}

// Start sweeps once and schedules further sweeps.
func (j *Janitor) Start() error {
	if j.interval <= 0 || j.retention <= 0 {
		j.log.Info("file cleanup disabled")
		return nil
	}

	if _, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), j.run); err != nil {
		return fmt.Errorf("scheduling cleanup: %w", err)
	}

	j.run()
	j.cron.Start()
	return nil
}

// Stop cancels future sweeps and waits for a running one to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) run() {
	removed, err := j.Sweep()
	if err != nil {
		j.log.WithError(err).Warn("file cleanup incomplete")
	}
	if removed > 0 {
		j.log.WithField("removed", removed).Info("expired files removed")
	}
}

// Sweep removes expired files now and reports how many were removed.
func (j *Janitor) Sweep() (int, error) {
	cutoff := j.now().Add(-j.retention)

	var removed int
	var errs []error
	for _, dir := range j.dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", dir, err))
			continue
		}

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
