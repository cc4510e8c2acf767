package jobs

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

type DictionaryReloaderService interface {
	Reload(ctx context.Context) (int, error)
}

// DictionaryReloader refreshes store-backed taxonomy tables so edits to the
// dictionary sheets reach lookups without a restart.
type DictionaryReloader struct {
	dictionary DictionaryReloaderService
	interval   time.Duration
}

func NewDictionaryReloader(dictionary DictionaryReloaderService, interval time.Duration) *DictionaryReloader {
	return &DictionaryReloader{dictionary: dictionary, interval: interval}
}

func (d *DictionaryReloader) Start(ctx context.Context) {
	// Load once before the first tick
	d.reload(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Info("Dictionary reloader cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping dictionary reloader...")
			return
		case <-ticker.C:
			d.reload(ctx)
		}
	}
}

func (d *DictionaryReloader) reload(ctx context.Context) {
	n, err := d.dictionary.Reload(ctx)
	if err != nil {
		log.Errorf("Reloader: failed to reload dictionary: %v", err)
		return
	}
	log.Debugf("Reloader: loaded %d dictionary entries", n)
}
