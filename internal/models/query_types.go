// internal/models/query_types.go
package models

// QueryType names a scheme catalog lookup.
type QueryType string

const (
	QueryTypeSchemeByID    QueryType = "scheme_by_id"
	QueryTypeSchemesByName QueryType = "schemes_by_name"
)
