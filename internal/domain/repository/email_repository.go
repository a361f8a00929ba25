package repository

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"job_alert_service/internal/common"
	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/platform/sparql"
)

type EmailRepository interface {
	// ExistsForJob reports whether any Email in the email graph references
	// the job.
	ExistsForJob(ctx context.Context, jobURI string) (bool, error)
	// Create writes the email as a single INSERT DATA.
	Create(ctx context.Context, email *model.Email) error
}

type sparqlEmailRepository struct {
	store  Store
	graphs Graphs
}

func NewSparqlEmailRepository(store Store, graphs Graphs) EmailRepository {
	return &sparqlEmailRepository{store: store, graphs: graphs}
}

func (r *sparqlEmailRepository) ExistsForJob(ctx context.Context, jobURI string) (bool, error) {
	query := prefixes + fmt.Sprintf(`
ASK {
  GRAPH %s {
    ?email a nmo:Email ;
      dcterms:references %s .
  }
}`, sparql.URI(r.graphs.Email), sparql.URI(jobURI))

	exists, err := r.store.Ask(ctx, query)
	if err != nil {
		return false, errors.Wrapf(err, "sparqlEmailRepository.ExistsForJob <%s>", jobURI)
	}
	return exists, nil
}

func (r *sparqlEmailRepository) Create(ctx context.Context, email *model.Email) error {
	if email == nil || email.URI == "" || email.Reference == "" {
		return errors.Wrap(common.ErrValidation, "email needs a URI and a job reference")
	}
	update := prefixes + fmt.Sprintf(`
INSERT DATA {
  GRAPH %s {
    %s a nmo:Email ;
      mu:uuid %s ;
      nmo:messageSubject %s ;
      nmo:htmlMessageContent %s ;
      nmo:emailTo %s ;
      nmo:messageFrom %s ;
      nie:url %s ;
      dcterms:creator %s ;
      dcterms:references %s ;
      dcterms:created %s .
  }
}`,
		sparql.URI(r.graphs.Email),
		sparql.URI(email.URI),
		sparql.String(email.UUID),
		sparql.String(email.Subject),
		sparql.String(email.Content),
		sparql.String(email.To),
		sparql.String(email.From),
		sparql.URI(email.Folder),
		sparql.URI(email.Creator),
		sparql.URI(email.Reference),
		sparql.DateTime(email.Created),
	)

	if err := r.store.Update(ctx, update); err != nil {
		return errors.Wrapf(err, "sparqlEmailRepository.Create <%s>", email.URI)
	}
	return nil
}
