package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// IdleReaper discards in-flight authentications not advanced since cutoff.
type IdleReaper interface {
	ReapIdle(ctx context.Context, cutoff time.Time) int
}

// ReaperJob periodically drops authentications a user walked away from so
// their remote connections do not linger.
type ReaperJob struct {
	reaper      IdleReaper
	idleTimeout time.Duration
	interval    time.Duration
	now         func() time.Time
	done        chan struct{}
}

func NewReaperJob(reaper IdleReaper, idleTimeout, interval time.Duration) *ReaperJob {
	return &ReaperJob{
		reaper:      reaper,
		idleTimeout: idleTimeout,
		interval:    interval,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

func (j *ReaperJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("idleTimeout", j.idleTimeout).
		Msg("reaper job started")
}

func (j *ReaperJob) Stop() {
	close(j.done)
	log.Info().Msg("reaper job stopped")
}

func (j *ReaperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.reap()
		}
	}
}

func (j *ReaperJob) reap() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := j.now().Add(-j.idleTimeout)
	if count := j.reaper.ReapIdle(ctx, cutoff); count > 0 {
		log.Info().Int("count", count).Msg("reaped idle authentications")
	}
}
