package jobs

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
	"perdecomp/cmd/internal/utils"
)

const (
	CacheTTLMillis = 10 * 60 * 60 * 1000
	CleanInterval  = 1 * time.Hour
)

type CompanyRepository interface {
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}

type CompanyCacheCleaner struct {
	companyRepo CompanyRepository
}

func NewCompanyCacheCleaner(repo CompanyRepository) *CompanyCacheCleaner {
	return &CompanyCacheCleaner{companyRepo: repo}
}

func (c *CompanyCacheCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(CleanInterval)
	defer ticker.Stop()

	log.Info("Company cache cleaner cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping company cache cleaner...")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *CompanyCacheCleaner) cleanup(ctx context.Context) {
	now := utils.NowUTC()
	cutoff := now - CacheTTLMillis

	n, err := c.companyRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		log.Errorf("Cleaner: failed to delete expired company cache: %v", err)
		return
	}

	log.Debugf("Cleaner: swept %d company caches older than %s", n, utils.FormatEpoch(cutoff))
}
