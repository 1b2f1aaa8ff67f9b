// internal/workers/schemes/get-scheme-details/queries/scheme.go
package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scheme-matcher/internal/models"
)

const defaultNameLimit = 5

// SchemeByID loads one scheme. The catalog keeps the indexed document in a
// JSONB payload column next to the id.
func SchemeByID(ctx context.Context, db *sql.DB, params map[string]interface{}) ([]models.Scheme, int64, error) {
	schemeID, ok := params["schemeId"].(string)
	if !ok || schemeID == "" {
		return nil, 0, ErrMissingParam
	}

	start := time.Now()

	var id string
	var payload []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, payload
		FROM schemes
		WHERE id = $1`, schemeID).Scan(&id, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, schemeID)
		}
		return nil, 0, err
	}

	s, err := decodeScheme(id, payload)
	if err != nil {
		return nil, 0, err
	}
	return []models.Scheme{s}, time.Since(start).Milliseconds(), nil
}

// SchemesByName finds schemes whose name contains the given text.
func SchemesByName(ctx context.Context, db *sql.DB, params map[string]interface{}) ([]models.Scheme, int64, error) {
	name, ok := params["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, 0, ErrMissingParam
	}
	limit, ok := params["limit"].(int)
	if !ok || limit <= 0 {
		limit = defaultNameLimit
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, payload
		FROM schemes
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2`, "%"+strings.TrimSpace(name)+"%", limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []models.Scheme
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, 0, err
		}
		s, err := decodeScheme(id, payload)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(results) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return results, time.Since(start).Milliseconds(), nil
}

func decodeScheme(id string, payload []byte) (models.Scheme, error) {
	var s models.Scheme
	if err := json.Unmarshal(payload, &s); err != nil {
		return models.Scheme{}, fmt.Errorf("decode scheme %s: %w", id, err)
	}
	s.ID = id
	return s, nil
}
