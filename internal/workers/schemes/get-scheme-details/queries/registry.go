// internal/workers/schemes/get-scheme-details/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scheme-matcher/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrNotFound         = errors.New("scheme not in catalog")
)

// QueryFunc returns the matching schemes and the execution time in ms.
type QueryFunc func(ctx context.Context, db *sql.DB, params map[string]interface{}) ([]models.Scheme, int64, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeSchemeByID:    SchemeByID,
	models.QueryTypeSchemesByName: SchemesByName,
}

func Execute(ctx context.Context, db *sql.DB, queryType models.QueryType, params map[string]interface{}) ([]models.Scheme, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(ctx, db, params)
}
