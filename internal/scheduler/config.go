package scheduler

import (
	"strings"

	"github.com/smallbiznis/bookingsync/internal/config"
)

// Config selects which jobs this process runs. Timing comes from the
// reloadable sync config.
type Config struct {
	EnabledJobs []string
}

func ProvideConfig(cfg config.Config) Config {
	jobs := make([]string, 0, len(cfg.SchedulerJobs))
	for _, job := range cfg.SchedulerJobs {
		if job = strings.TrimSpace(job); job != "" {
			jobs = append(jobs, job)
		}
	}
	return Config{EnabledJobs: jobs}
}
