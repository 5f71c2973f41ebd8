// Package sweeper closes rematch windows that nobody touched after their
// deadline passed.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/obslog"
)

// Coordinator is the part of the match coordinator the sweeper drives.
type Coordinator interface {
	FinishedMatchesAwaitingRematch(ctx context.Context) ([]string, error)
	CheckRematchTimeout(ctx context.Context, matchID string) (bool, error)
}

type Sweeper struct {
	coord    Coordinator
	interval time.Duration
	timeout  time.Duration
	sched    gocron.Scheduler
	logger   *zap.Logger
}

func New(coord Coordinator, interval time.Duration) *Sweeper {
	return &Sweeper{coord: coord, interval: interval, timeout: 30 * time.Second, logger: obslog.L()}
}

// Sweep checks every finished match that still has an open rematch window
// and returns how many windows it closed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.coord.FinishedMatchesAwaitingRematch(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending rematches: %w", err)
	}
	closed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		fired, err := s.coord.CheckRematchTimeout(ctx, id)
		if err != nil {
			s.logger.Warn("rematch_sweep_error", zap.String("match_id", id), zap.Error(err))
			continue
		}
		if fired {
			closed++
		}
	}
	return closed, nil
}

// Start runs Sweep every interval until Stop.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Warn("rematch_sweep_failed", zap.Error(err))
				return
			}
			if n > 0 {
				s.logger.Info("rematch_sweep", zap.Int("closed", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule rematch sweep: %w", err)
	}
	sched.Start()
	s.sched = sched
	return nil
}

func (s *Sweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
