// File: /jobs/stats_refresh_job.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"communehub-api/repositories"
)

// StatsRefreshJob recomputes the per-community stats aggregates (weekly
// growth, recent activity) on a schedule. Discovery scoring reads these
// aggregates; member_count stays exact and is never written here.
type StatsRefreshJob struct {
	statsRepo *repositories.StatsRepository
	ticker    *time.Ticker
	done      chan bool
}

// NewStatsRefreshJob creates a new stats refresh job
func NewStatsRefreshJob(db *gorm.DB, cache *redis.Client, interval time.Duration) *StatsRefreshJob {
	return &StatsRefreshJob{
		statsRepo: repositories.NewStatsRepository(db, cache),
		ticker:    time.NewTicker(interval),
		done:      make(chan bool),
	}
}

// Start begins the refresh job
func (j *StatsRefreshJob) Start() {
	fmt.Println("Stats refresh job started")

	go func() {
		// Run immediately on start
		j.refresh()

		// Then run on schedule
		for {
			select {
			case <-j.ticker.C:
				j.refresh()
			case <-j.done:
				fmt.Println("Stats refresh job stopped")
				return
			}
		}
	}()
}

// Stop stops the refresh job
func (j *StatsRefreshJob) Stop() {
	j.ticker.Stop()
	j.done <- true
}

func (j *StatsRefreshJob) refresh() {
	fmt.Println("Running community stats refresh...")

	if err := j.statsRepo.RefreshAll(context.Background()); err != nil {
		fmt.Printf("Error during stats refresh: %v\n", err)
		return
	}

	fmt.Println("Community stats refresh completed successfully")
}
