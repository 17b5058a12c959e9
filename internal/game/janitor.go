package game

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Janitor periodically removes lobbies nobody started.
type Janitor struct {
	scheduler gocron.Scheduler
}

// StartJanitor runs ExpireWaitingRooms every interval for rooms older than
// ttl. Stop it with Shutdown.
func StartJanitor(ctx context.Context, repo *Repository, ttl, interval time.Duration) (*Janitor, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed, err := repo.ExpireWaitingRooms(ctx, repo.now().Add(-ttl))
			if err != nil {
				logrus.WithError(err).Error("expire waiting rooms failed")
				return
			}
			if removed > 0 {
				logrus.WithField("removed", removed).Info("expired waiting rooms")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule room janitor: %w", err)
	}
	scheduler.Start()
	logrus.WithFields(logrus.Fields{"ttl": ttl.String(), "interval": interval.String()}).Info("room janitor started")
	return &Janitor{scheduler: scheduler}, nil
}

func (j *Janitor) Shutdown() error {
	return j.scheduler.Shutdown()
}
