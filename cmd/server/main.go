package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/spf13/cobra"

	"job_alert_service/internal/api"
	"job_alert_service/internal/api/handler"
	"job_alert_service/internal/app/worker"
	"job_alert_service/internal/common/security"
	"job_alert_service/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:   "job-alert-service",
	Short: "Writes alert emails for jobs that reach a monitored status",
	Long: `job-alert-service watches the job graph of a triplestore and writes one
alert email per job that enters a monitored status.

Without a subcommand it serves the HTTP API (same as "serve").`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the delta webhook and the admin endpoints",
	RunE:  runServe,
}

var createAlertsCmd = &cobra.Command{
	Use:   "create-alerts",
	Short: "Create the missing alerts for jobs in a monitored status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, false)
	},
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "List the jobs create-alerts would alert on, without writing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, true)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an admin token for the protected endpoints (needs ADMIN_JWT_SECRET)",
	RunE:  runToken,
}

func init() {
	for _, cmd := range []*cobra.Command{createAlertsCmd, dryRunCmd} {
		cmd.Flags().String("since", "", "only jobs modified at or after this ISO-8601 date or date-time")
	}
	tokenCmd.Flags().String("subject", "operator", "subject claim of the token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, createAlertsCmd, dryRunCmd, tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg, log := app.cfg, app.log

	// 7. Initialize Alert Worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	alertWorker := worker.NewAlertWorker(app.pipeline, cfg.DeltaWorkers, cfg.DeltaQueueSize, log)
	alertWorker.Start(workerCtx)

	// 8. Initialize Router & HTTP Server
	var tokenAuth *jwtauth.JWTAuth
	if cfg.AdminAuthEnabled() {
		tokenAuth = security.NewTokenAuth(cfg.AdminJWTSecret)
		log.Info("Admin endpoints require an admin token")
	}
	router := api.NewRouter(api.RouterDeps{
		Delta:     handler.NewDeltaHandler(alertWorker, cfg.JobStatuses, log),
		Alerts:    handler.NewAlertHandler(app.scan, log),
		TokenAuth: tokenAuth,
		Timeout:   cfg.RequestTimeout,
		Log:       log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 9. Graceful Shutdown
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- errors.Wrapf(err, "could not listen on %s", cfg.APIPort)
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", logger.FieldError, err)
	}
	workerCancel()
	alertWorker.Wait()

	log.Info("Server and worker stopped gracefully.")
	return nil
}

func runScan(cmd *cobra.Command, dryRun bool) error {
	ctx := cmd.Context()
	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sinceFlag, _ := cmd.Flags().GetString("since")
	since, err := handler.ParseSince(sinceFlag)
	if err != nil {
		return err
	}

	if dryRun {
		result, err := app.scan.DryRun(ctx, since)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run completed. Found %d job(s) that would receive alerts.\n", result.Count)
		for _, job := range result.Jobs {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\t%s\n", job.URI, job.StatusLabel)
		}
		return nil
	}

	result, err := app.scan.CreateAlerts(ctx, since)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d alert(s) for %d matching job(s).\n", result.Created, result.Found)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := security.GenerateToken(security.NewTokenAuth([]byte(secret)), subject, security.RoleAdmin, ttl)
	if err != nil {
		return errors.Wrap(err, "failed to sign token")
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
