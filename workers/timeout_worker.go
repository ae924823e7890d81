// workers/timeout_worker.go
package workers

import (
	"log"
	"time"

	"chess-match-system/services"

	"github.com/go-co-op/gocron/v2"
)

// StartTimeoutSweeper runs the idle-game sweep every minute. Games whose
// player on turn sat past gameTimeout are closed with a TIMEOUT result.
func StartTimeoutSweeper(gameService *services.GameService, gameTimeout time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			closed, err := gameService.SweepTimeouts(gameTimeout)
			if err != nil {
				log.Printf("[TimeoutSweeper] sweep error: %v", err)
				return
			}
			if closed > 0 {
				log.Printf("[TimeoutSweeper] closed %d timed-out game(s)", closed)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
