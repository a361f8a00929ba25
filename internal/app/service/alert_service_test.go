package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/platform/lock"
)

var testSettings = EmailSettings{
	Base:       "http://example.org/emails",
	Folder:     "http://example.org/folders/outbox",
	From:       "noreply@example.org",
	To:         "ops@example.org",
	ServiceURI: "http://example.org/services/job-alert-service",
}

func newTestAlertService(repo *memoryEmailRepo, locker Locker) *AlertService {
	s := NewAlertService(repo, fakeRenderer{}, locker, testSettings, zap.NewNop().Sugar())
	s.newUUID = func() string { return "fixed-uuid" }
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestAlertService_CreateWritesEmail(t *testing.T) {
	repo := &memoryEmailRepo{}
	s := newTestAlertService(repo, lock.NoopLocker{})

	job := failedJob("http://example.org/jobs/1")
	job.Operation = ptr("http://example.org/ops/harvest")
	job.Modified = ptr(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC))

	res, err := s.Create(context.Background(), job)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.NotNil(t, res.Email)

	email := res.Email
	assert.Equal(t, "http://example.org/emails/fixed-uuid", email.URI)
	assert.Equal(t, "fixed-uuid", email.UUID)
	assert.Equal(t, "[JOB FAILED] 2024-05-01T11:00:00.000Z | harvest", email.Subject)
	assert.Equal(t, "<p>http://example.org/jobs/1</p>", email.Content)
	assert.Equal(t, testSettings.Folder, email.Folder)
	assert.Equal(t, testSettings.ServiceURI, email.Creator)
	assert.Equal(t, job.URI, email.Reference)
	assert.Equal(t, 1, repo.count())
}

func TestAlertService_CreateIsIdempotent(t *testing.T) {
	repo := &memoryEmailRepo{}
	s := newTestAlertService(repo, lock.NoopLocker{})
	job := failedJob("http://example.org/jobs/1")

	first, err := s.Create(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := s.Create(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, model.ReasonAlertExists, second.Reason)
	assert.Nil(t, second.Email)
	assert.Equal(t, 1, repo.count())
}

func TestAlertService_CreateRejectsInvalidJob(t *testing.T) {
	repo := &memoryEmailRepo{}
	s := newTestAlertService(repo, lock.NoopLocker{})

	_, err := s.Create(context.Background(), &model.Job{Resource: model.Resource{URI: "http://example.org/jobs/1"}})
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Zero(t, repo.asks)
}

func TestAlertService_CreatePropagatesStoreErrors(t *testing.T) {
	repo := &memoryEmailRepo{askErr: common.ErrServiceUnavailable}
	s := newTestAlertService(repo, lock.NoopLocker{})

	_, err := s.Create(context.Background(), failedJob("http://example.org/jobs/1"))
	assert.True(t, errors.Is(err, common.ErrServiceUnavailable))

	repo = &memoryEmailRepo{saveErr: errors.New("insert failed")}
	s = newTestAlertService(repo, lock.NoopLocker{})
	_, err = s.Create(context.Background(), failedJob("http://example.org/jobs/1"))
	assert.EqualError(t, err, "insert failed")
}

func TestAlertService_CreateRenderFailureWritesNothing(t *testing.T) {
	repo := &memoryEmailRepo{}
	s := NewAlertService(repo, fakeRenderer{err: errors.New("bad template")}, lock.NoopLocker{}, testSettings, zap.NewNop().Sugar())

	_, err := s.Create(context.Background(), failedJob("http://example.org/jobs/1"))
	require.Error(t, err)
	assert.Zero(t, repo.count())
}

func TestAlertService_CreateHonoursLock(t *testing.T) {
	repo := &memoryEmailRepo{}
	held := &fakeLocker{acquired: false}
	s := newTestAlertService(repo, held)

	res, err := s.Create(context.Background(), failedJob("http://example.org/jobs/1"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, model.ReasonAlertLocked, res.Reason)
	assert.Zero(t, repo.asks)

	free := &fakeLocker{acquired: true}
	s = newTestAlertService(repo, free)
	res, err = s.Create(context.Background(), failedJob("http://example.org/jobs/1"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 1, free.released)

	broken := &fakeLocker{err: errors.New("redis down")}
	s = newTestAlertService(repo, broken)
	_, err = s.Create(context.Background(), failedJob("http://example.org/jobs/2"))
	assert.EqualError(t, err, "redis down")
}
