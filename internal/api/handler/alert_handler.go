package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"job_alert_service/internal/api/middleware"
	"job_alert_service/internal/app/service"
	"job_alert_service/internal/common"
	"job_alert_service/internal/platform/logger"
)

type Scanner interface {
	CreateAlerts(ctx context.Context, since *time.Time) (service.ScanResult, error)
	DryRun(ctx context.Context, since *time.Time) (service.DryRunResult, error)
}

type AlertHandler struct {
	scan Scanner
	log  *zap.SugaredLogger
}

func NewAlertHandler(scan Scanner, log *zap.SugaredLogger) *AlertHandler {
	return &AlertHandler{scan: scan, log: log}
}

func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create-alerts", h.createAlerts)
	r.Post("/dry-run", h.dryRun)
}

type createAlertsResponse struct {
	Message string `json:"message"`
	service.ScanResult
}

type dryRunResponse struct {
	Message string `json:"message"`
	service.DryRunResult
}

func (h *AlertHandler) createAlerts(w http.ResponseWriter, r *http.Request) {
	since, err := ParseSince(r.URL.Query().Get("since"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, invalidSinceMessage)
		return
	}
	h.logTrigger(r, "Manual alert creation triggered", since)

	result, err := h.scan.CreateAlerts(r.Context(), since)
	if err != nil {
		h.log.Errorw("Error creating alerts", logger.FieldError, err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, createAlertsResponse{
		Message:    fmt.Sprintf("Created %d alert(s) for %d matching job(s).", result.Created, result.Found),
		ScanResult: result,
	})
}

func (h *AlertHandler) dryRun(w http.ResponseWriter, r *http.Request) {
	since, err := ParseSince(r.URL.Query().Get("since"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, invalidSinceMessage)
		return
	}
	h.logTrigger(r, "Dry run triggered", since)

	result, err := h.scan.DryRun(r.Context(), since)
	if err != nil {
		h.log.Errorw("Error during dry run", logger.FieldError, err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, dryRunResponse{
		Message:      fmt.Sprintf("Dry run completed. Found %d job(s) that would receive alerts.", result.Count),
		DryRunResult: result,
	})
}

func (h *AlertHandler) logTrigger(r *http.Request, msg string, since *time.Time) {
	fields := []interface{}{logger.FieldSince, since}
	if subject, ok := middleware.GetSubjectFromContext(r.Context()); ok {
		fields = append(fields, "subject", subject)
	}
	h.log.Infow(msg, fields...)
}
