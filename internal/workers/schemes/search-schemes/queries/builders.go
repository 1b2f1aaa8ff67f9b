// internal/workers/schemes/search-schemes/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex = errors.New("index name is required")
	ErrEmptyQuery   = errors.New("search text is required")
)

// searchFields are the scheme document fields matched against the query,
// with name and benefit boosted.
var searchFields = []string{
	"name^3",
	"benefit_summary^2",
	"description",
	"eligibility",
	"eligibility_criteria",
	"service_type",
	"beneficiary_type",
	"name_of_state",
}

// SchemeQuery is one keyword search over a scheme index.
type SchemeQuery struct {
	Index string
	Text  string
	// ExcludeNames are phrase-matched against the name field and removed.
	ExcludeNames []string
	Size         int
}

// BuildQuery renders the search body for q.
func BuildQuery(q SchemeQuery) (*esapi.SearchRequest, error) {
	if q.Index == "" {
		return nil, ErrMissingIndex
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(buildSchemeSearchQuery(q))
	if err != nil {
		return nil, err
	}

	size := q.Size
	return &esapi.SearchRequest{
		Index:          []string{q.Index},
		Body:           strings.NewReader(string(body)),
		Size:           &size,
		TrackTotalHits: true,
	}, nil
}

func buildSchemeSearchQuery(q SchemeQuery) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  q.Text,
					"fields": searchFields,
					"type":   "best_fields",
				},
			},
		},
	}

	var mustNot []interface{}
	for _, name := range q.ExcludeNames {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		mustNot = append(mustNot, map[string]interface{}{
			"match_phrase": map[string]interface{}{"name": name},
		})
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
