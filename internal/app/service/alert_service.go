package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"job_alert_service/internal/app/mail"
	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/domain/repository"
	"job_alert_service/internal/platform/logger"
)

// Locker guards alert creation for one job. lock.RedisLocker and
// lock.NoopLocker implement it.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

type Renderer interface {
	Render(job *model.Job) (string, error)
}

// EmailSettings are the fixed fields of every alert email.
type EmailSettings struct {
	Base       string // emails are minted as <Base>/<uuid>
	Folder     string
	From       string
	To         string
	ServiceURI string
}

type AlertService struct {
	emailRepo repository.EmailRepository
	renderer  Renderer
	locker    Locker
	settings  EmailSettings
	log       *zap.SugaredLogger

	newUUID func() string
	now     func() time.Time
}

func NewAlertService(
	emailRepo repository.EmailRepository,
	renderer Renderer,
	locker Locker,
	settings EmailSettings,
	log *zap.SugaredLogger,
) *AlertService {
	return &AlertService{
		emailRepo: emailRepo,
		renderer:  renderer,
		locker:    locker,
		settings:  settings,
		log:       log,
		newUUID:   uuid.NewString,
		now:       time.Now,
	}
}

// Create writes the alert email for job unless one already references it.
// An existing alert is reported through the result, not as an error. Check
// and insert are not atomic; without a distributed locker two concurrent
// callers can both insert.
func (s *AlertService) Create(ctx context.Context, job *model.Job) (model.AlertResult, error) {
	if !job.IsValid() {
		return model.AlertResult{}, errors.Wrap(common.ErrValidation, "job needs a URI and a status")
	}

	release, acquired, err := s.locker.Acquire(ctx, job.URI)
	if err != nil {
		return model.AlertResult{}, err
	}
	if !acquired {
		return model.AlertResult{Reason: model.ReasonAlertLocked}, nil
	}
	defer release()

	exists, err := s.emailRepo.ExistsForJob(ctx, job.URI)
	if err != nil {
		return model.AlertResult{}, err
	}
	if exists {
		return model.AlertResult{Reason: model.ReasonAlertExists}, nil
	}

	content, err := s.renderer.Render(job)
	if err != nil {
		return model.AlertResult{}, err
	}

	id := s.newUUID()
	email := &model.Email{
		Resource:  model.Resource{URI: s.settings.Base + "/" + id, UUID: id},
		Folder:    s.settings.Folder,
		Subject:   mail.Subject(job),
		Content:   content,
		To:        s.settings.To,
		From:      s.settings.From,
		Creator:   s.settings.ServiceURI,
		Reference: job.URI,
		Created:   s.now(),
	}
	if err := s.emailRepo.Create(ctx, email); err != nil {
		return model.AlertResult{}, err
	}

	s.log.Debugw("Alert email written", logger.FieldJob, job.URI, logger.FieldEmail, email.URI)
	return model.AlertResult{Created: true, Email: email}, nil
}
