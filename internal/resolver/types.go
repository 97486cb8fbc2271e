package resolver

// Request describes one resolution call: a caller-chosen set of role names
// to map onto the table's actual columns, plus enough schema context for
// both the LLM prompt and the keyword fallback.
type Request struct {
	// Roles are the caller-chosen labels to resolve, e.g. "actual",
	// "target", "timestamp". Order is preserved in Result.Columns only
	// for determinism of iteration in tests; the map is the contract.
	Roles []string

	// Purpose is the free-form intent phrase, e.g. "calculate efficiency
	// (actual vs target)" or "extract line number from composite column".
	Purpose string

	// Columns is the full list of column names available in the table.
	Columns []string

	// SampleRow is one representative row, column name to stringified
	// value, included in the prompt so the model can disambiguate
	// near-duplicate column names by their data shape.
	SampleRow map[string]string
}

// Extraction describes a composite-column extraction: SourceColumn's string
// values are matched against ExtractPattern, and capture group 1 becomes
// the derived column's value.
type Extraction struct {
	SourceColumn   string
	ExtractPattern string
}

// Result is the resolver's output: a role-to-column mapping (nil entries
// mean "no match found for this role"), an optional composite extraction,
// and whether the mapping came from the LLM or the keyword fallback.
type Result struct {
	Columns     map[string]*string
	Extraction  *Extraction
	FromFallback bool
}

// Column returns the resolved column for role, or "" if unresolved.
func (r *Result) Column(role string) string {
	if r == nil {
		return ""
	}
	if c := r.Columns[role]; c != nil {
		return *c
	}
	return ""
}
