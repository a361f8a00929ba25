package service

import (
	"slices"

	"job_alert_service/internal/domain/model"
)

// Filter holds the optional allow-lists applied to jobs before alerting. An
// empty list does not restrict.
type Filter struct {
	Creators   []string
	Operations []string
}

// FilterJobs keeps the valid jobs that pass both allow-lists. A job without a
// creator (or operation) fails a non-empty creator (or operation) list.
func FilterJobs(jobs []*model.Job, f Filter) []*model.Job {
	kept := make([]*model.Job, 0, len(jobs))
	for _, job := range jobs {
		if !job.IsValid() {
			continue
		}
		if !allowed(f.Creators, job.Creator) || !allowed(f.Operations, job.Operation) {
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

func allowed(list []string, value *string) bool {
	if len(list) == 0 {
		return true
	}
	return value != nil && slices.Contains(list, *value)
}
