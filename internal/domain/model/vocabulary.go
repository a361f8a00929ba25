package model

const (
	NsADMS = "http://www.w3.org/ns/adms#"

	// PredicateStatus is the predicate the delta path watches for.
	PredicateStatus = NsADMS + "status"

	JobStatusFailed = "http://redpencil.data.gift/id/concept/JobStatus/failed"
)
