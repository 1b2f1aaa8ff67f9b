// internal/matching/filters/state.go
package filters

import (
	"strings"

	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/matching/textnorm"
	"scheme-matcher/internal/models"
)

// NormState canonicalises a region name: upper case, single spaces, "&" as AND.
func NormState(s string) string {
	s = strings.ReplaceAll(strings.ToUpper(s), "&", " AND ")
	return strings.Join(strings.Fields(s), " ")
}

// SchemeRegions returns the normalised regions a scheme declares. A single
// comma-separated entry is split.
func SchemeRegions(s models.Scheme) []string {
	var out []string
	for _, entry := range s.NameOfState {
		for _, part := range strings.Split(entry, ",") {
			if r := NormState(part); r != "" {
				out = append(out, r)
			}
		}
	}
	return out
}

// IsNationwide reports whether the regions contain a nationwide marker.
func IsNationwide(regions []string, tables *rules.Tables) bool {
	for _, r := range regions {
		for _, n := range tables.NationwideRegions {
			if r == n {
				return true
			}
		}
	}
	return false
}

// FilterByState keeps schemes that apply in userState or nationwide. A scheme
// that declares no region is dropped since its applicability cannot be
// confirmed. An empty userState keeps everything.
func FilterByState(schemes []models.Scheme, userState string, tables *rules.Tables) (kept []models.Scheme, dropped []models.ExcludedScheme) {
	want := NormState(userState)
	if want == "" {
		return schemes, nil
	}

	kept = make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		regions := SchemeRegions(s)
		switch {
		case len(regions) == 0:
			dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: "no applicable region declared"})
		case IsNationwide(regions, tables) || contains(regions, want):
			kept = append(kept, s)
		default:
			dropped = append(dropped, models.ExcludedScheme{Name: s.Name, Reason: "not available in " + userState})
		}
	}
	return kept, dropped
}

// SchemeTypeKind resolves a caller's scheme type filter ("central",
// "state government", "केंद्रीय", ...) to "central", "state" or "".
func SchemeTypeKind(filter string, tables *rules.Tables) string {
	f := strings.TrimSpace(textnorm.Fold(filter))
	if f == "" {
		return ""
	}
	for _, c := range tables.CentralFilter {
		if f == c {
			return "central"
		}
	}
	for _, s := range tables.StateFilter {
		if f == s {
			return "state"
		}
	}
	return ""
}

// FilterBySchemeType narrows to central or state schemes by the scheme_type
// field. When nothing survives the input is returned unchanged so a sparse
// catalog never produces an empty answer.
func FilterBySchemeType(schemes []models.Scheme, filter string, tables *rules.Tables) []models.Scheme {
	kind := SchemeTypeKind(filter, tables)
	if kind == "" {
		return schemes
	}

	kept := make([]models.Scheme, 0, len(schemes))
	for _, s := range schemes {
		t := strings.ToLower(s.SchemeType)
		switch kind {
		case "central":
			if strings.Contains(t, "central") {
				kept = append(kept, s)
			}
		case "state":
			if strings.Contains(t, "state") || (t != "" && !strings.Contains(t, "central")) {
				kept = append(kept, s)
			}
		}
	}
	if len(kept) == 0 {
		return schemes
	}
	return kept
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
