package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/platform/sparql"
)

type JobRepository interface {
	// FindByURI returns the job with its tasks. common.ErrNotFound when the
	// job graph has no such job, common.ErrMultipleResults when it has more
	// than one row for it.
	FindByURI(ctx context.Context, uri string) (*model.Job, error)
	FindTasksByJobURI(ctx context.Context, jobURI string) ([]model.Task, error)
	// FindJobsWithoutAlerts returns the jobs matching q that no Email in the
	// email graph references.
	FindJobsWithoutAlerts(ctx context.Context, q JobQuery) ([]model.JobSummary, error)
}

// JobQuery restricts FindJobsWithoutAlerts. Empty lists and a nil Since do
// not restrict.
type JobQuery struct {
	Statuses   []string
	Since      *time.Time
	Operations []string
	Creators   []string
}

type sparqlJobRepository struct {
	store  Store
	graphs Graphs
}

func NewSparqlJobRepository(store Store, graphs Graphs) JobRepository {
	return &sparqlJobRepository{store: store, graphs: graphs}
}

func (r *sparqlJobRepository) FindByURI(ctx context.Context, uri string) (*model.Job, error) {
	if uri == "" {
		return nil, errors.Wrap(common.ErrBadRequest, "job URI is required")
	}
	job := sparql.URI(uri)
	query := prefixes + fmt.Sprintf(`
SELECT ?uuid ?status ?operation ?created ?modified ?creator
WHERE {
  GRAPH %s {
    %s a cogs:Job ;
      mu:uuid ?uuid ;
      adms:status ?status .
    OPTIONAL { %s task:operation ?operation . }
    OPTIONAL { %s dcterms:created ?created . }
    OPTIONAL { %s dcterms:modified ?modified . }
    OPTIONAL { %s dcterms:creator ?creator . }
  }
}`, sparql.URI(r.graphs.Job), job, job, job, job, job)

	rows, err := r.store.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "sparqlJobRepository.FindByURI <%s>", uri)
	}
	switch {
	case len(rows) == 0:
		return nil, errors.Wrapf(common.ErrNotFound, "no job found for URI <%s>", uri)
	case len(rows) > 1:
		return nil, errors.Wrapf(common.ErrMultipleResults, "%d jobs found for URI <%s>", len(rows), uri)
	}

	row := rows[0]
	tasks, err := r.FindTasksByJobURI(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &model.Job{
		Resource:  model.Resource{URI: uri, UUID: row.String("uuid")},
		Status:    row.String("status"),
		Operation: row.StringPtr("operation"),
		Created:   row.TimePtr("created"),
		Modified:  row.TimePtr("modified"),
		Creator:   row.StringPtr("creator"),
		Tasks:     tasks,
	}, nil
}

func (r *sparqlJobRepository) FindTasksByJobURI(ctx context.Context, jobURI string) ([]model.Task, error) {
	query := prefixes + fmt.Sprintf(`
SELECT ?uri ?uuid ?status ?operation ?index ?created ?modified ?errorMessage
WHERE {
  GRAPH %s {
    ?uri a task:Task ;
      mu:uuid ?uuid ;
      dcterms:isPartOf %s .
    OPTIONAL { ?uri adms:status ?status . }
    OPTIONAL { ?uri task:operation ?operation . }
    OPTIONAL { ?uri task:index ?index . }
    OPTIONAL { ?uri dcterms:created ?created . }
    OPTIONAL { ?uri dcterms:modified ?modified . }
    OPTIONAL {
      ?error a task:Error ;
        task:task ?uri ;
        task:message ?errorMessage .
    }
  }
}
ORDER BY ?index`, sparql.URI(r.graphs.Job), sparql.URI(jobURI))

	rows, err := r.store.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "sparqlJobRepository.FindTasksByJobURI <%s>", jobURI)
	}
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, model.Task{
			Resource:  model.Resource{URI: row.String("uri"), UUID: row.String("uuid")},
			Status:    row.StringPtr("status"),
			Operation: row.StringPtr("operation"),
			Index:     row.IntPtr("index"),
			Created:   row.TimePtr("created"),
			Modified:  row.TimePtr("modified"),
			Error:     row.StringPtr("errorMessage"),
		})
	}
	return tasks, nil
}

func (r *sparqlJobRepository) FindJobsWithoutAlerts(ctx context.Context, q JobQuery) ([]model.JobSummary, error) {
	if len(q.Statuses) == 0 {
		return nil, errors.Wrap(common.ErrValidation, "at least one status is required")
	}
	query := prefixes + fmt.Sprintf(`
SELECT DISTINCT ?job ?uuid ?status ?operation ?created ?modified ?creator
WHERE {
  GRAPH %s {
    ?job a cogs:Job ;
      adms:status ?status .
    OPTIONAL { ?job mu:uuid ?uuid . }
    OPTIONAL { ?job task:operation ?operation . }
    OPTIONAL { ?job dcterms:creator ?creator . }
    OPTIONAL { ?job dcterms:created ?created . }
    OPTIONAL { ?job dcterms:modified ?modified . }
    %s
  }
  FILTER NOT EXISTS {
    GRAPH %s {
      ?email a nmo:Email ;
        dcterms:references ?job .
    }
  }
}`, sparql.URI(r.graphs.Job), jobFilters(q), sparql.URI(r.graphs.Email))

	rows, err := r.store.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "sparqlJobRepository.FindJobsWithoutAlerts")
	}
	jobs := make([]model.JobSummary, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, model.NewJobSummary(
			row.String("job"),
			row.StringPtr("uuid"),
			row.String("status"),
			row.StringPtr("operation"),
			row.TimePtr("created"),
			row.TimePtr("modified"),
			row.StringPtr("creator"),
		))
	}
	return jobs, nil
}

// jobFilters renders the FILTER clauses for q. They sit inside the job graph
// pattern so configured filters apply before the anti-join.
func jobFilters(q JobQuery) string {
	filters := []string{fmt.Sprintf("FILTER (?status IN (%s))", sparql.URIList(q.Statuses))}
	if q.Since != nil {
		filters = append(filters, fmt.Sprintf("FILTER (?modified >= %s)", sparql.DateTime(*q.Since)))
	}
	if len(q.Operations) > 0 {
		filters = append(filters, fmt.Sprintf("FILTER (?operation IN (%s))", sparql.URIList(q.Operations)))
	}
	if len(q.Creators) > 0 {
		filters = append(filters, fmt.Sprintf("FILTER (?creator IN (%s))", sparql.URIList(q.Creators)))
	}
	return strings.Join(filters, "\n    ")
}
