// scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/warden/logging"
)

// JobDescriptor declares what to run and how often, decoupled from how the
// scheduler dispatches it. Failures are logged and left for the next run; no
// retry happens here.
type JobDescriptor struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler dispatches registered jobs on their fixed intervals.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Register schedules the job described by desc. The first run happens one
// interval after Start.
func (s *Scheduler) Register(desc JobDescriptor) {
	s.cron.Schedule(cron.Every(desc.Interval), cron.FuncJob(func() {
		start := time.Now()
		if err := desc.Run(context.Background()); err != nil {
			logger.Error("Scheduled job failed",
				zap.String("job", desc.Name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		logger.Info("Scheduled job completed",
			zap.String("job", desc.Name),
			zap.Duration("elapsed", time.Since(start)))
	}))
	logger.Info("Scheduled job registered",
		zap.String("job", desc.Name),
		zap.Duration("interval", desc.Interval))
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
