package service

import (
	"context"
	"sync"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/domain/repository"
)

type fakeJobRepo struct {
	FindByURIFn             func(ctx context.Context, uri string) (*model.Job, error)
	FindJobsWithoutAlertsFn func(ctx context.Context, q repository.JobQuery) ([]model.JobSummary, error)
}

func (f *fakeJobRepo) FindByURI(ctx context.Context, uri string) (*model.Job, error) {
	return f.FindByURIFn(ctx, uri)
}

func (f *fakeJobRepo) FindTasksByJobURI(context.Context, string) ([]model.Task, error) {
	return nil, nil
}

func (f *fakeJobRepo) FindJobsWithoutAlerts(ctx context.Context, q repository.JobQuery) ([]model.JobSummary, error) {
	return f.FindJobsWithoutAlertsFn(ctx, q)
}

// memoryEmailRepo behaves like the email graph: Create makes ExistsForJob
// true for the referenced job.
type memoryEmailRepo struct {
	mu      sync.Mutex
	emails  []*model.Email
	asks    int
	askErr  error
	saveErr error
}

func (m *memoryEmailRepo) ExistsForJob(_ context.Context, jobURI string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asks++
	if m.askErr != nil {
		return false, m.askErr
	}
	for _, e := range m.emails {
		if e.Reference == jobURI {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryEmailRepo) Create(_ context.Context, email *model.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.emails = append(m.emails, email)
	return nil
}

func (m *memoryEmailRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emails)
}

type fakeRenderer struct {
	err error
}

func (f fakeRenderer) Render(job *model.Job) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "<p>" + job.URI + "</p>", nil
}

type fakeLocker struct {
	acquired bool
	err      error
	released int
}

func (f *fakeLocker) Acquire(context.Context, string) (func(), bool, error) {
	if f.err != nil || !f.acquired {
		return func() {}, false, f.err
	}
	return func() { f.released++ }, true, nil
}

// jobStore serves FindByURI from a map.
func jobStore(jobs ...*model.Job) func(context.Context, string) (*model.Job, error) {
	byURI := make(map[string]*model.Job, len(jobs))
	for _, j := range jobs {
		byURI[j.URI] = j
	}
	return func(_ context.Context, uri string) (*model.Job, error) {
		if j, ok := byURI[uri]; ok {
			return j, nil
		}
		return nil, common.ErrNotFound
	}
}

func ptr[T any](v T) *T { return &v }

func failedJob(uri string) *model.Job {
	return &model.Job{Resource: model.Resource{URI: uri, UUID: "uuid-" + uri}, Status: model.JobStatusFailed}
}
