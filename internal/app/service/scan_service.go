package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/domain/repository"
	"job_alert_service/internal/platform/logger"
)

type Processor interface {
	Process(ctx context.Context, uris []string) ProcessSummary
}

// ScanSettings are the monitored statuses and configured filters the scan
// query is restricted to.
type ScanSettings struct {
	Statuses   []string
	Operations []string
	Creators   []string
}

type ScanResult struct {
	Found   int `json:"found"`
	Created int `json:"created"`
}

type DryRunResult struct {
	Count int                `json:"count"`
	Jobs  []model.JobSummary `json:"jobs"`
}

// ScanService finds jobs in a monitored status that have no alert yet. It is
// the reconciliation path for anything the delta path missed.
type ScanService struct {
	jobRepo  repository.JobRepository
	pipeline Processor
	settings ScanSettings
	log      *zap.SugaredLogger
}

func NewScanService(jobRepo repository.JobRepository, pipeline Processor, settings ScanSettings, log *zap.SugaredLogger) *ScanService {
	return &ScanService{jobRepo: jobRepo, pipeline: pipeline, settings: settings, log: log}
}

// CreateAlerts creates the missing alerts for jobs modified at or after since
// (all jobs when since is nil). Created counts emails actually written.
func (s *ScanService) CreateAlerts(ctx context.Context, since *time.Time) (ScanResult, error) {
	jobs, err := s.find(ctx, since)
	if err != nil {
		return ScanResult{}, err
	}
	s.log.Infow("Found jobs without alerts", logger.FieldCount, len(jobs), logger.FieldSince, since)
	if len(jobs) == 0 {
		return ScanResult{}, nil
	}

	uris := make([]string, len(jobs))
	for i, job := range jobs {
		uris[i] = job.URI
	}
	summary := s.pipeline.Process(ctx, uris)
	s.log.Infow("Scan finished",
		"found", len(jobs),
		"created", summary.Created,
		"existing", summary.Existing,
		"failed", summary.Failed,
	)
	return ScanResult{Found: len(jobs), Created: summary.Created}, nil
}

// DryRun reports the jobs CreateAlerts would alert on without writing.
func (s *ScanService) DryRun(ctx context.Context, since *time.Time) (DryRunResult, error) {
	jobs, err := s.find(ctx, since)
	if err != nil {
		return DryRunResult{}, err
	}
	s.log.Infow("Dry run", logger.FieldCount, len(jobs), logger.FieldSince, since)
	return DryRunResult{Count: len(jobs), Jobs: jobs}, nil
}

func (s *ScanService) find(ctx context.Context, since *time.Time) ([]model.JobSummary, error) {
	return s.jobRepo.FindJobsWithoutAlerts(ctx, repository.JobQuery{
		Statuses:   s.settings.Statuses,
		Since:      since,
		Operations: s.settings.Operations,
		Creators:   s.settings.Creators,
	})
}
