package avatar

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultSweepInterval is the interval between two sweeps if none is configured
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically removes expired entries from a Cache, independent of
// read and write traffic.
type Sweeper struct {
	cron     *cron.Cron
	cache    *Cache
	interval time.Duration
	start    sync.Once
}

// NewSweeper creates a Sweeper for cache. Intervals below one second are
// rounded up to one second.
func NewSweeper(cache *Cache, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		cron:     cron.New(),
		cache:    cache,
		interval: interval,
	}
}

// Start schedules the periodic sweep. Further calls are no-ops.
func (s *Sweeper) Start() {
	s.start.Do(s.schedule)
}

func (s *Sweeper) schedule() {
	s.cron.Schedule(
		cron.Every(s.interval), cron.FuncJob(
			func() {
				if n := s.cache.Sweep(); n > 0 {
					log.WithField("removed", n).Debug("swept expired avatar cache entries")
				}
			},
		),
	)
	s.cron.Start()
	log.WithField("interval", s.interval).Info("avatar cache sweeper started")
}

// Stop stops the sweeper and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("avatar cache sweeper stopped")
}
