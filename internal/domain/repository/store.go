package repository

import (
	"context"

	"job_alert_service/internal/platform/sparql"
)

// Store is the triplestore as seen by the repositories. *sparql.Client
// implements it.
type Store interface {
	Query(ctx context.Context, query string) ([]sparql.Row, error)
	Ask(ctx context.Context, query string) (bool, error)
	Update(ctx context.Context, update string) error
}

// Graphs names the two logical graphs this service touches.
type Graphs struct {
	Job   string // read only, owned upstream
	Email string // the only graph this service writes to
}

const prefixes = `
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
PREFIX adms: <http://www.w3.org/ns/adms#>
PREFIX cogs: <http://vocab.deri.ie/cogs#>
PREFIX task: <http://redpencil.data.gift/vocabularies/tasks/>
PREFIX nmo: <http://www.semanticdesktop.org/ontologies/2007/03/22/nmo#>
PREFIX nie: <http://www.semanticdesktop.org/ontologies/2007/01/19/nie#>
`
