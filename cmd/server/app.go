package main

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"job_alert_service/internal/app/mail"
	"job_alert_service/internal/app/service"
	"job_alert_service/internal/domain/repository"
	"job_alert_service/internal/platform/config"
	"job_alert_service/internal/platform/lock"
	"job_alert_service/internal/platform/logger"
	"job_alert_service/internal/platform/sparql"
)

// application holds the wired services shared by every command.
type application struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	pipeline *service.AlertPipeline
	scan     *service.ScanService
	closers  []func()
}

func newApplication(ctx context.Context) (*application, error) {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	log, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	app := &application{cfg: cfg, log: log}
	app.closers = append(app.closers, func() { _ = log.Sync() })
	app.logConfiguration()

	// 2. Initialize SPARQL client
	client := sparql.NewClient(sparql.Config{
		Endpoint:   cfg.SPARQLEndpoint,
		Sudo:       cfg.SPARQLSudo,
		Timeout:    cfg.SPARQLTimeout,
		MaxRetries: cfg.SPARQLMaxRetries,
	}, log)

	// 3. Initialize alert lock
	var locker service.Locker = lock.NoopLocker{}
	if cfg.AlertLockEnabled() {
		rdb, err := lock.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		locker = lock.NewRedisLocker(rdb, cfg.AlertLockTTL, log)
		log.Infow("Alert lock enabled", "redis", cfg.RedisAddr, "ttl", cfg.AlertLockTTL)
	}

	// 4. Initialize Repositories
	graphs := repository.Graphs{Job: cfg.GraphJob, Email: cfg.GraphEmail}
	jobRepo := repository.NewSparqlJobRepository(client, graphs)
	emailRepo := repository.NewSparqlEmailRepository(client, graphs)

	// 5. Initialize Template
	renderer, err := mail.NewRenderer(cfg.TemplatePath, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	// 6. Initialize Services
	alerts := service.NewAlertService(emailRepo, renderer, locker, service.EmailSettings{
		Base:       cfg.EmailBase,
		Folder:     cfg.EmailFolder,
		From:       cfg.EmailFrom,
		To:         cfg.EmailTo,
		ServiceURI: cfg.ServiceURI,
	}, log)
	filter := service.Filter{Creators: cfg.Creators, Operations: cfg.JobOperations}
	app.pipeline = service.NewAlertPipeline(jobRepo, alerts, filter, cfg.AlertConcurrency, log)
	app.scan = service.NewScanService(jobRepo, app.pipeline, service.ScanSettings{
		Statuses:   cfg.JobStatuses,
		Operations: cfg.JobOperations,
		Creators:   cfg.Creators,
	}, log)

	return app, nil
}

func (a *application) logConfiguration() {
	a.log.Info("Job Alert Service starting...")
	a.log.Infof("Monitoring job statuses: %s", strings.Join(a.cfg.JobStatuses, ", "))
	if len(a.cfg.JobOperations) > 0 {
		a.log.Infof("Filtering by operations: %s", strings.Join(a.cfg.JobOperations, ", "))
	}
	if len(a.cfg.Creators) > 0 {
		a.log.Infof("Filtering by creators: %s", strings.Join(a.cfg.Creators, ", "))
	}
	a.log.Debugw("Full config",
		"base", a.cfg.Base,
		"service_uri", a.cfg.ServiceURI,
		"email_folder", a.cfg.EmailFolder,
		"email_base", a.cfg.EmailBase,
		"graph_email", a.cfg.GraphEmail,
		"graph_job", a.cfg.GraphJob,
		"sparql_endpoint", a.cfg.SPARQLEndpoint,
		"template", a.cfg.TemplatePath,
		"admin_auth", a.cfg.AdminAuthEnabled(),
	)
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
