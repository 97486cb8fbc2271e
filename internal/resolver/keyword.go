package resolver

import "strings"

// roleLexicon is the fixed keyword fallback table (spec.md §4.3): a
// case-insensitive substring match against each role's candidate terms, in
// priority order. Extend by adding terms, never by adding special cases in
// resolveKeyword itself.
var roleLexicon = map[string][]string{
	"quantity": {"quantity", "qty", "amount", "units", "volume"},
	"target":   {"target", "planned", "goal", "expected"},
	"actual":   {"actual", "achieved", "produced"},
	"date":     {"date", "time", "timestamp"},
	"entity":   {"name", "id", "entity", "key"},
	"defect":   {"defect", "reject", "scrap", "fail"},
	"rate":     {"rate", "ratio", "percent", "pct"},
}

// resolveKeyword matches a single role name against roleLexicon's terms (the
// role name itself is also tried as a term, so callers can pass arbitrary
// role labels that happen to equal a lexicon key) and returns the first
// column whose name contains a matching term. Returns "" when nothing
// matches; never errors.
func resolveKeyword(role string, columns []string) string {
	terms := roleLexicon[strings.ToLower(role)]
	if len(terms) == 0 {
		terms = []string{strings.ToLower(role)}
	}
	for _, term := range terms {
		for _, col := range columns {
			if strings.Contains(strings.ToLower(col), term) {
				return col
			}
		}
	}
	return ""
}

// fallback resolves every requested role via the keyword lexicon. It never
// fails: unresolved roles simply map to nil.
func fallback(req Request) *Result {
	out := &Result{Columns: make(map[string]*string, len(req.Roles)), FromFallback: true}
	for _, role := range req.Roles {
		if col := resolveKeyword(role, req.Columns); col != "" {
			c := col
			out.Columns[role] = &c
		} else {
			out.Columns[role] = nil
		}
	}
	return out
}
