package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/platform/logger"
)

// Submitter accepts a batch of job URIs for background processing.
type Submitter interface {
	Submit(uris []string) bool
}

// maxDeltaBytes caps a delta body. Larger bodies are dropped like malformed
// ones; the next scan picks up the jobs they carried.
const maxDeltaBytes = 16 << 20

type DeltaHandler struct {
	worker   Submitter
	statuses []string
	maxBody  int64
	log      *zap.SugaredLogger
}

func NewDeltaHandler(worker Submitter, monitoredStatuses []string, log *zap.SugaredLogger) *DeltaHandler {
	return &DeltaHandler{worker: worker, statuses: monitoredStatuses, maxBody: maxDeltaBytes, log: log}
}

func (h *DeltaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/delta", h.handleDelta)
}

// handleDelta answers 204 for every body. Malformed bodies are only logged.
func (h *DeltaHandler) handleDelta(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	defer body.Close()

	var delta model.Delta
	if err := json.NewDecoder(body).Decode(&delta); err != nil {
		h.log.Warnw("Ignoring malformed delta body", logger.FieldError, err)
		common.RespondNoContent(w)
		return
	}

	uris := delta.CandidateJobs(h.statuses)
	h.log.Debugw("Received delta", "inserts", len(delta.Inserts()), logger.FieldJobs, uris)

	if len(uris) == 0 {
		h.log.Debug("Delta did not contain any jobs with monitored status, awaiting next batch")
		common.RespondNoContent(w)
		return
	}

	h.log.Infow("Found jobs with monitored status in delta", logger.FieldCount, len(uris))
	h.worker.Submit(uris)
	common.RespondNoContent(w)
}
