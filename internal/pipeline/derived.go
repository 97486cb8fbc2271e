package pipeline

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DerivedColumnSpec describes a composite-column extraction emitted by the
// semantic column resolver (spec.md §4.3): a single stored column whose
// string values encode multiple logical attributes, extractable by a regex
// with exactly one capture group.
type DerivedColumnSpec struct {
	DerivedName     string
	SourceColumn    string
	ExtractPattern  string
}

// BuildDerivedProjectStage injects an upstream $project stage synthesizing
// DerivedName via a regex capture-1 match against SourceColumn. Mongo's
// $regexFind operator returns null when the pattern doesn't match at all;
// extraction failure (no row matches) is detected by the caller after
// running the pipeline, per DerivedColumnError's documented trigger.
func BuildDerivedProjectStage(spec DerivedColumnSpec, available []string) (bson.D, error) {
	if !contains(available, spec.SourceColumn) {
		return nil, &UnknownColumnError{Column: spec.SourceColumn, Available: available}
	}
	re, err := regexp.Compile(spec.ExtractPattern)
	if err != nil {
		return nil, &DerivedColumnError{Column: spec.SourceColumn, Pattern: spec.ExtractPattern}
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("extraction pattern %q must have exactly one capture group", spec.ExtractPattern)
	}

	return bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "row." + spec.DerivedName, Value: bson.D{
			{Key: "$let", Value: bson.D{
				{Key: "vars", Value: bson.D{
					{Key: "m", Value: bson.D{{Key: "$regexFind", Value: bson.D{
						{Key: "input", Value: "$row." + spec.SourceColumn},
						{Key: "regex", Value: spec.ExtractPattern},
					}}}},
				}},
				{Key: "in", Value: bson.D{
					{Key: "$arrayElemAt", Value: bson.A{"$$m.captures", 0}},
				}},
			}},
		}},
	}}}, nil
}
