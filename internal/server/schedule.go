package server

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// StartSchedule runs job on the cron spec until the returned scheduler is
// stopped. Overlapping runs are skipped.
func StartSchedule(spec string, job func()) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c.Start()
	log.Printf("Scheduled re-runs: %s", spec)
	return c, nil
}
