package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRangeSentinel mirrors internal/tools/timeseries_analyzer.go's
// dateRangeRequiredResult — the controller only needs the fields that
// drive the clarification handshake.
type DateRangeSentinel struct {
	RequiresDateRange bool       `json:"requires_date_range"`
	MinDate           *time.Time `json:"min_date,omitempty"`
	MaxDate           *time.Time `json:"max_date,omitempty"`
	TimeColumn        string     `json:"time_column"`
}

// DetectDateRangeSentinel reports whether a tool observation is the
// unbounded-time-window clarification sentinel (spec.md §4.5).
func DetectDateRangeSentinel(content string) (*DateRangeSentinel, bool) {
	if !strings.Contains(content, `"requires_date_range"`) {
		return nil, false
	}
	var s DateRangeSentinel
	if err := json.Unmarshal([]byte(content), &s); err != nil || !s.RequiresDateRange {
		return nil, false
	}
	return &s, true
}

// ClarificationPrompt builds the user-visible message asking for a date
// range, anchored to the dataset's own min/max rather than wall-clock time.
func ClarificationPrompt(s *DateRangeSentinel) string {
	var sb strings.Builder
	sb.WriteString("This table spans a large time range")
	if s.MinDate != nil && s.MaxDate != nil {
		sb.WriteString(fmt.Sprintf(" (%s to %s)", s.MinDate.Format("2006-01-02"), s.MaxDate.Format("2006-01-02")))
	}
	sb.WriteString(". Please narrow the question to a date range — for example \"last 30 days\", " +
		"\"since 2025-01-01\", or \"between 2025-01-01 and 2025-03-31\".")
	return sb.String()
}

var (
	betweenISOPattern = regexp.MustCompile(`(?i)between\s+(\d{4}-\d{2}-\d{2})\s+and\s+(\d{4}-\d{2}-\d{2})`)
	isoPairPattern    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|,|and|-{1,2}>?)\s*(\d{4}-\d{2}-\d{2})`)
	sinceISOPattern   = regexp.MustCompile(`(?i)since\s+(\d{4}-\d{2}-\d{2})`)
	lastNPattern      = regexp.MustCompile(`(?i)last\s+(\d+)\s+(day|days|week|weeks|month|months)`)
)

// ResolveDateRange parses the user's reply to a clarification prompt into a
// concrete [start, end] pair, resolved against the dataset's own max_date
// rather than wall-clock time (spec.md §4.5). Returns ok=false when the
// reply cannot be parsed as any of the documented formats.
func ResolveDateRange(reply string, datasetMax time.Time) (start, end time.Time, ok bool) {
	if m := betweenISOPattern.FindStringSubmatch(reply); m != nil {
		return mustParseDate(m[1]), mustParseDate(m[2]), true
	}
	if m := isoPairPattern.FindStringSubmatch(reply); m != nil {
		return mustParseDate(m[1]), mustParseDate(m[2]), true
	}
	if m := sinceISOPattern.FindStringSubmatch(reply); m != nil {
		return mustParseDate(m[1]), datasetMax, true
	}
	if m := lastNPattern.FindStringSubmatch(reply); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		unit := strings.ToLower(m[2])
		var d time.Duration
		switch {
		case strings.HasPrefix(unit, "day"):
			d = time.Duration(n) * 24 * time.Hour
		case strings.HasPrefix(unit, "week"):
			d = time.Duration(n) * 7 * 24 * time.Hour
		case strings.HasPrefix(unit, "month"):
			d = time.Duration(n) * 30 * 24 * time.Hour
		}
		return datasetMax.Add(-d), datasetMax, true
	}
	return time.Time{}, time.Time{}, false
}

func mustParseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// InjectDateRange rewrites a pending timeseries_analyzer tool call's
// pipe-delimited arguments with a resolved start/end pair, replacing the
// trailing two positional fields (file_id|table|time_col|metric_col|freq|
// agg|start?|end?).
func InjectDateRange(args string, start, end time.Time) string {
	fields := strings.Split(args, "|")
	for len(fields) < 8 {
		fields = append(fields, "")
	}
	fields[6] = start.Format("2006-01-02")
	fields[7] = end.Format("2006-01-02")
	return strings.Join(fields, "|")
}
