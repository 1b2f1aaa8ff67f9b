// pkg/registry/validate.go
package registry

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// documentSchema checks the shape of a registry file before it is decoded
// into RuleRegistry. Pattern syntax is checked later when the tables compile.
const documentSchema = `{
  "type": "object",
  "required": ["version", "amount", "registrations", "intents", "persona"],
  "definitions": {
    "words": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "keywordGroup": {
      "type": "object",
      "required": ["name", "keywords"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "keywords": {"$ref": "#/definitions/words"}
      }
    },
    "patternGroup": {
      "type": "object",
      "required": ["name", "patterns"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "patterns": {"$ref": "#/definitions/words"}
      }
    }
  },
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "amount": {
      "type": "object",
      "required": ["units"],
      "properties": {
        "units": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["name", "words", "multiplier"],
            "properties": {
              "name": {"type": "string"},
              "words": {"$ref": "#/definitions/words"},
              "multiplier": {"type": "number", "minimum": 0}
            }
          }
        }
      }
    },
    "registrations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key", "reason", "patterns"],
        "properties": {
          "key": {"type": "string", "minLength": 1},
          "reason": {"type": "string", "minLength": 1},
          "patterns": {"$ref": "#/definitions/words"},
          "exclusions": {"$ref": "#/definitions/words"}
        }
      }
    },
    "intents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "query", "scheme"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "query": {"$ref": "#/definitions/words"},
          "scheme": {"$ref": "#/definitions/words"}
        }
      }
    },
    "supportTypes": {"type": "array", "items": {"$ref": "#/definitions/keywordGroup"}},
    "activities": {"type": "array", "items": {"$ref": "#/definitions/keywordGroup"}},
    "states": {"type": "array", "items": {"$ref": "#/definitions/keywordGroup"}},
    "constitutions": {"type": "array", "items": {"$ref": "#/definitions/patternGroup"}},
    "gender": {"type": "array", "items": {"$ref": "#/definitions/patternGroup"}},
    "socialCategories": {"type": "array", "items": {"$ref": "#/definitions/patternGroup"}},
    "msmeSize": {"type": "array", "items": {"$ref": "#/definitions/patternGroup"}},
    "persona": {
      "type": "object",
      "required": ["farmer", "msme"],
      "properties": {
        "farmer": {"$ref": "#/definitions/words"},
        "msme": {"$ref": "#/definitions/words"}
      }
    }
  }
}`

var documentLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateDocument checks raw registry YAML against the document schema and
// returns one message per violation. A nil slice means the shape is valid.
func ValidateDocument(data []byte) ([]string, error) {
	var doc interface{}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rule registry: %w", err)
	}

	res, err := gojsonschema.Validate(documentLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate rule registry: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}

	var problems []string
	for _, e := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	sort.Strings(problems)
	return problems, nil
}

// Duplicates reports group names used twice within the same table.
func (r *RuleRegistry) Duplicates() []string {
	var out []string
	check := func(table string, names []string) {
		seen := map[string]bool{}
		for _, n := range names {
			if seen[n] {
				out = append(out, fmt.Sprintf("%s: duplicate %q", table, n))
			}
			seen[n] = true
		}
	}

	regs := make([]string, 0, len(r.Registrations))
	for _, reg := range r.Registrations {
		regs = append(regs, reg.Key)
	}
	check("registrations", regs)

	intents := make([]string, 0, len(r.Intents))
	for _, in := range r.Intents {
		intents = append(intents, in.Name)
	}
	check("intents", intents)

	check("supportTypes", keywordNames(r.SupportTypes))
	check("activities", keywordNames(r.Activities))
	check("states", keywordNames(r.States))
	return out
}

func keywordNames(groups []KeywordGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Name)
	}
	return out
}

// AddKeyword appends keyword to the named group of a keyword table. The
// tables are "intent-query", "intent-scheme", "support", "activity",
// "state", "exclusion" (a registration's exclusions) and "persona-farmer" or
// "persona-msme" (group is ignored for persona). It reports whether the
// keyword was new.
func (r *RuleRegistry) AddKeyword(table, group, keyword string) (bool, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false, fmt.Errorf("keyword is empty")
	}

	var list *[]string
	switch table {
	case "intent-query", "intent-scheme":
		in := r.Intent(group)
		if in == nil {
			return false, fmt.Errorf("unknown intent %q", group)
		}
		list = &in.Query
		if table == "intent-scheme" {
			list = &in.Scheme
		}
	case "support":
		list = groupKeywords(r.SupportTypes, group)
	case "activity":
		list = groupKeywords(r.Activities, group)
	case "state":
		list = groupKeywords(r.States, group)
	case "exclusion":
		if reg := r.Registration(group); reg != nil {
			list = &reg.Exclusions
		}
	case "persona-farmer":
		list = &r.Persona.Farmer
	case "persona-msme":
		list = &r.Persona.MSME
	default:
		return false, fmt.Errorf("unknown table %q", table)
	}
	if list == nil {
		return false, fmt.Errorf("%s has no group %q", table, group)
	}

	for _, k := range *list {
		if strings.EqualFold(k, keyword) {
			return false, nil
		}
	}
	*list = append(*list, keyword)
	return true, nil
}

func groupKeywords(groups []KeywordGroup, name string) *[]string {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i].Keywords
		}
	}
	return nil
}

// BumpVersion advances a "YYYY.MM" or "YYYY.MM.N" version to the next patch,
// so "2025.11" becomes "2025.11.1" and "2025.11.1" becomes "2025.11.2".
// Any other shape gets ".1" appended.
func (r *RuleRegistry) BumpVersion() string {
	parts := strings.Split(r.Version, ".")
	if len(parts) == 3 {
		if n, err := strconv.Atoi(parts[2]); err == nil {
			parts[2] = strconv.Itoa(n + 1)
			r.Version = strings.Join(parts, ".")
			return r.Version
		}
	}
	r.Version += ".1"
	return r.Version
}
