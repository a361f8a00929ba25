package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/platform/sparql"
)

type fakeStore struct {
	queries []string
	asks    []string
	updates []string

	rows     [][]sparql.Row // consumed one per Query call
	askValue bool
	err      error
}

func (f *fakeStore) Query(_ context.Context, q string) ([]sparql.Row, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	next := f.rows[0]
	f.rows = f.rows[1:]
	return next, nil
}

func (f *fakeStore) Ask(_ context.Context, q string) (bool, error) {
	f.asks = append(f.asks, q)
	return f.askValue, f.err
}

func (f *fakeStore) Update(_ context.Context, u string) error {
	f.updates = append(f.updates, u)
	return f.err
}

var testGraphs = Graphs{Job: "http://example.org/graphs/jobs", Email: "http://example.org/graphs/email"}

const jobURI = "http://example.org/jobs/1"

func TestFindByURI_ReturnsJobWithOrderedTasks(t *testing.T) {
	modified := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{rows: [][]sparql.Row{
		{{"uuid": "job-1", "status": model.JobStatusFailed, "operation": "http://example.org/ops/harvest", "modified": modified}},
		{
			{"uri": "http://example.org/tasks/a", "uuid": "task-a", "index": int64(0), "errorMessage": "boom"},
			{"uri": "http://example.org/tasks/b", "uuid": "task-b"},
		},
	}}
	repo := NewSparqlJobRepository(store, testGraphs)

	job, err := repo.FindByURI(context.Background(), jobURI)
	require.NoError(t, err)

	assert.Equal(t, jobURI, job.URI)
	assert.Equal(t, "job-1", job.UUID)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.Modified)
	assert.True(t, modified.Equal(*job.Modified))
	assert.Nil(t, job.Created)
	assert.Nil(t, job.Creator)

	require.Len(t, job.Tasks, 2)
	require.NotNil(t, job.Tasks[0].Index)
	assert.Equal(t, 0, *job.Tasks[0].Index)
	assert.Equal(t, "boom", *job.Tasks[0].Error)
	assert.Nil(t, job.Tasks[1].Index)

	require.Len(t, store.queries, 2)
	assert.Contains(t, store.queries[0], "GRAPH <http://example.org/graphs/jobs>")
	assert.Contains(t, store.queries[0], "<"+jobURI+"> a cogs:Job")
	assert.Contains(t, store.queries[1], "dcterms:isPartOf <"+jobURI+">")
	assert.Contains(t, store.queries[1], "ORDER BY ?index")
}

func TestFindByURI_NotFoundAndAmbiguous(t *testing.T) {
	store := &fakeStore{}
	repo := NewSparqlJobRepository(store, testGraphs)

	_, err := repo.FindByURI(context.Background(), jobURI)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	store.rows = [][]sparql.Row{{{"uuid": "a", "status": "s"}, {"uuid": "b", "status": "s"}}}
	_, err = repo.FindByURI(context.Background(), jobURI)
	assert.True(t, errors.Is(err, common.ErrMultipleResults))

	_, err = repo.FindByURI(context.Background(), "")
	assert.True(t, errors.Is(err, common.ErrBadRequest))
}

func TestFindByURI_StoreErrorIsWrapped(t *testing.T) {
	store := &fakeStore{err: errors.Mark(errors.New("down"), common.ErrServiceUnavailable)}
	repo := NewSparqlJobRepository(store, testGraphs)

	_, err := repo.FindByURI(context.Background(), jobURI)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrServiceUnavailable))
	assert.Contains(t, err.Error(), "FindByURI")
}

func TestFindJobsWithoutAlerts_BuildsFilters(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{rows: [][]sparql.Row{{
		{"job": jobURI, "uuid": "job-1", "status": model.JobStatusFailed, "operation": "http://example.org/ops/harvest"},
	}}}
	repo := NewSparqlJobRepository(store, testGraphs)

	jobs, err := repo.FindJobsWithoutAlerts(context.Background(), JobQuery{
		Statuses:   []string{model.JobStatusFailed},
		Since:      &since,
		Operations: []string{"http://example.org/ops/harvest"},
		Creators:   []string{"http://example.org/creators/x"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "failed", jobs[0].StatusLabel)
	assert.Equal(t, "harvest", *jobs[0].OperationLabel)

	q := store.queries[0]
	assert.Contains(t, q, "FILTER (?status IN (<"+model.JobStatusFailed+">))")
	assert.Contains(t, q, `FILTER (?modified >= "2024-01-01T00:00:00.000Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>)`)
	assert.Contains(t, q, "FILTER (?operation IN (<http://example.org/ops/harvest>))")
	assert.Contains(t, q, "FILTER (?creator IN (<http://example.org/creators/x>))")
	assert.Contains(t, q, "FILTER NOT EXISTS")
	assert.Contains(t, q, "GRAPH <http://example.org/graphs/email>")
}

func TestFindJobsWithoutAlerts_OmitsUnsetFilters(t *testing.T) {
	store := &fakeStore{}
	repo := NewSparqlJobRepository(store, testGraphs)

	jobs, err := repo.FindJobsWithoutAlerts(context.Background(), JobQuery{Statuses: []string{model.JobStatusFailed}})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	q := store.queries[0]
	assert.NotContains(t, q, "?modified >=")
	assert.NotContains(t, q, "?operation IN")
	assert.NotContains(t, q, "?creator IN")
}

func TestFindJobsWithoutAlerts_RequiresStatuses(t *testing.T) {
	store := &fakeStore{}
	repo := NewSparqlJobRepository(store, testGraphs)

	_, err := repo.FindJobsWithoutAlerts(context.Background(), JobQuery{})
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Empty(t, store.queries)
}

func TestEmailRepository_ExistsForJob(t *testing.T) {
	store := &fakeStore{askValue: true}
	repo := NewSparqlEmailRepository(store, testGraphs)

	exists, err := repo.ExistsForJob(context.Background(), jobURI)
	require.NoError(t, err)
	assert.True(t, exists)
	require.Len(t, store.asks, 1)
	assert.Contains(t, store.asks[0], "dcterms:references <"+jobURI+">")
	assert.Contains(t, store.asks[0], "GRAPH <http://example.org/graphs/email>")
}

func TestEmailRepository_CreateEscapesValues(t *testing.T) {
	store := &fakeStore{}
	repo := NewSparqlEmailRepository(store, testGraphs)

	email := &model.Email{
		Resource:  model.Resource{URI: "http://example.org/emails/e1", UUID: "e1"},
		Folder:    "http://example.org/folders/outbox",
		Subject:   `[JOB FAILED] "quoted"`,
		Content:   "<p>line\r\n</p>",
		To:        "ops@example.org",
		From:      "noreply@example.org",
		Creator:   "http://example.org/services/job-alert-service",
		Reference: jobURI,
		Created:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), email))
	require.Len(t, store.updates, 1)

	u := store.updates[0]
	assert.Contains(t, u, "INSERT DATA")
	assert.Contains(t, u, "<http://example.org/emails/e1> a nmo:Email")
	assert.Contains(t, u, `nmo:messageSubject """[JOB FAILED] \"quoted\""""`)
	assert.Contains(t, u, `nmo:htmlMessageContent """<p>line\r`+"\n</p>"+`"""`)
	assert.Contains(t, u, "dcterms:references <"+jobURI+">")
	assert.Contains(t, u, `dcterms:created "2024-01-02T03:04:05.000Z"`)
}

func TestEmailRepository_CreateRejectsIncompleteEmail(t *testing.T) {
	store := &fakeStore{}
	repo := NewSparqlEmailRepository(store, testGraphs)

	err := repo.Create(context.Background(), &model.Email{})
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Empty(t, store.updates)
}

func TestEmailRepository_CreateKeepsHostileReferenceInsideIRI(t *testing.T) {
	store := &fakeStore{}
	repo := NewSparqlEmailRepository(store, testGraphs)

	hostile := jobURI + "> . } } ; DROP GRAPH <" + testGraphs.Job + "> ; INSERT DATA { GRAPH <x> { <a> <b> <c"
	email := &model.Email{
		Resource:  model.Resource{URI: "http://example.org/emails/e2", UUID: "e2"},
		Reference: hostile,
		Created:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), email))
	require.Len(t, store.updates, 1)

	u := store.updates[0]
	assert.Contains(t, u, "dcterms:references <"+jobURI+"%3E%20.%20%7D%20%7D%20;%20DROP%20GRAPH%20%3C")
	assert.NotContains(t, u, "DROP GRAPH")
}
