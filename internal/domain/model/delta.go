package model

// Term is one position of a triple as delivered by the delta-notifier.
type Term struct {
	Type     string `json:"type,omitempty"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
}

type Triple struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

type ChangeSet struct {
	Inserts []Triple `json:"inserts"`
	Deletes []Triple `json:"deletes"`
}

// Delta is the body of a delta-notifier webhook call.
type Delta []ChangeSet

// Inserts flattens the inserted triples of all change-sets, in order.
func (d Delta) Inserts() []Triple {
	var inserts []Triple
	for _, cs := range d {
		inserts = append(inserts, cs.Inserts...)
	}
	return inserts
}

// SubjectsFor returns the subjects of inserted triples with the given
// predicate whose object is one of objects. Duplicates are kept.
func (d Delta) SubjectsFor(predicate string, objects []string) []string {
	wanted := make(map[string]struct{}, len(objects))
	for _, o := range objects {
		wanted[o] = struct{}{}
	}
	var subjects []string
	for _, t := range d.Inserts() {
		if t.Predicate.Value != predicate {
			continue
		}
		if _, ok := wanted[t.Object.Value]; !ok {
			continue
		}
		subjects = append(subjects, t.Subject.Value)
	}
	return subjects
}

// CandidateJobs extracts the job URIs whose status was set to one of the
// monitored statuses.
func (d Delta) CandidateJobs(monitoredStatuses []string) []string {
	return d.SubjectsFor(PredicateStatus, monitoredStatuses)
}
