package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/domain/repository"
	"job_alert_service/internal/platform/logger"
)

type AlertCreator interface {
	Create(ctx context.Context, job *model.Job) (model.AlertResult, error)
}

// ProcessSummary counts what happened to one batch. Requested counts distinct
// URIs; the ones that could not be fetched are Requested - Fetched.
type ProcessSummary struct {
	Requested int `json:"requested"`
	Fetched   int `json:"fetched"`
	Invalid   int `json:"invalid"`
	Filtered  int `json:"filtered"`
	Created   int `json:"created"`
	Existing  int `json:"existing"`
	Failed    int `json:"failed"`
}

// AlertPipeline is the fetch, filter, create sequence shared by the delta
// and scan paths. One job's failure never affects the others.
type AlertPipeline struct {
	jobRepo     repository.JobRepository
	alerts      AlertCreator
	filter      Filter
	concurrency int
	log         *zap.SugaredLogger
}

func NewAlertPipeline(jobRepo repository.JobRepository, alerts AlertCreator, filter Filter, concurrency int, log *zap.SugaredLogger) *AlertPipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AlertPipeline{
		jobRepo:     jobRepo,
		alerts:      alerts,
		filter:      filter,
		concurrency: concurrency,
		log:         log,
	}
}

func (p *AlertPipeline) Process(ctx context.Context, uris []string) ProcessSummary {
	uris = dedupe(uris)
	summary := ProcessSummary{Requested: len(uris)}
	if len(uris) == 0 {
		return summary
	}

	fetched := p.fetch(ctx, uris)
	var valid []*model.Job
	for _, job := range fetched {
		if job == nil {
			continue
		}
		summary.Fetched++
		if !job.IsValid() {
			summary.Invalid++
			p.log.Warnw("Skipping job without URI or status", logger.FieldJob, job.URI)
			continue
		}
		valid = append(valid, job)
	}

	jobs := FilterJobs(valid, p.filter)
	summary.Filtered = len(valid) - len(jobs)
	if summary.Filtered > 0 {
		p.log.Debugw("Jobs excluded by creator/operation filters", logger.FieldCount, summary.Filtered)
	}

	results := make([]outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i].result, results[i].err = p.alerts.Create(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		uri := jobs[i].URI
		switch {
		case r.err != nil:
			summary.Failed++
			p.log.Errorw("Failed to create alert", logger.FieldJob, uri, logger.FieldError, r.err)
		case r.result.Created:
			summary.Created++
			p.log.Infow("Created alert", logger.FieldJob, uri, logger.FieldEmail, r.result.Email.URI)
		default:
			summary.Existing++
			p.log.Infow("Alert not created", logger.FieldJob, uri, logger.FieldReason, r.result.Reason)
		}
	}
	return summary
}

type outcome struct {
	result model.AlertResult
	err    error
}

// fetch loads the jobs in parallel. Slots for jobs that could not be loaded
// stay nil.
func (p *AlertPipeline) fetch(ctx context.Context, uris []string) []*model.Job {
	jobs := make([]*model.Job, len(uris))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, uri := range uris {
		i, uri := i, uri
		g.Go(func() error {
			job, err := p.jobRepo.FindByURI(ctx, uri)
			switch {
			case errors.Is(err, common.ErrNotFound):
				p.log.Warnw("Job not found", logger.FieldJob, uri)
			case err != nil:
				p.log.Warnw("Failed to fetch job", logger.FieldJob, uri, logger.FieldError, err)
			default:
				jobs[i] = job
			}
			return nil
		})
	}
	_ = g.Wait()
	return jobs
}

func dedupe(uris []string) []string {
	seen := make(map[string]struct{}, len(uris))
	unique := make([]string, 0, len(uris))
	for _, uri := range uris {
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		unique = append(unique, uri)
	}
	return unique
}
