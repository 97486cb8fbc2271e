package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"time"

	"github.com/codeready-toolchain/tabletalk/internal/agent"
)

// maxPromptTokens bounds the LLM reply size (spec.md §4.3: "max tokens
// small (≤ 256)").
const maxPromptTokens = 256

// Resolver issues the LLM JSON-mapping call described in spec.md §4.3,
// falling back to a keyword heuristic on any failure, and caches results
// for identical inputs within a TTL.
type Resolver struct {
	llm   agent.LLMClient
	cache *cache
}

// New builds a Resolver. ttl <= 0 selects DefaultTTL.
func New(llm agent.LLMClient, ttl time.Duration) *Resolver {
	return &Resolver{llm: llm, cache: newCache(ttl)}
}

// Resolve maps req.Roles onto req.Columns, preferring an LLM call and
// degrading to the keyword lexicon on any failure. It never returns an
// error for a resolvable request: invalid LLM output is treated the same
// as an unreachable LLM — both trigger the fallback path.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if cached, ok := r.cache.get(req); ok {
		return cached, nil
	}

	result := r.resolveViaLLM(ctx, req)
	if result == nil {
		result = fallback(req)
	}

	r.cache.put(req, result)
	return result, nil
}

// resolveViaLLM runs the protocol's steps 1-4. It returns nil (never an
// error) on any failure, signaling the caller to fall back.
func (r *Resolver) resolveViaLLM(ctx context.Context, req Request) *Result {
	if r.llm == nil {
		return nil
	}

	prompt := composePrompt(req)
	resp, err := r.llm.Complete(ctx, agent.CompletionRequest{
		System:      "You map free-form column intents to concrete table column names. Reply with exactly one JSON object and nothing else.",
		Messages:    []agent.Message{{Role: agent.RoleUser, Content: prompt}},
		Temperature: 0,
		MaxTokens:   maxPromptTokens,
	})
	if err != nil || resp == nil {
		return nil
	}

	raw, err := parseJSONReply(resp.Text)
	if err != nil {
		return nil
	}

	result, err := validateMapping(raw, req.Columns)
	if err != nil {
		return nil
	}

	if looksLikeExtraction(req.Purpose) {
		if ext, err := extractionFromRaw(raw, req.Columns); err == nil && ext != nil {
			result.Extraction = ext
		}
	}

	return result
}

// composePrompt builds the deterministic prompt: available columns, one
// sample row as JSON, the purpose phrase, and the reply-shape instruction.
func composePrompt(req Request) string {
	sampleJSON, _ := json.Marshal(req.SampleRow)
	var b strings.Builder
	fmt.Fprintf(&b, "Available columns: %s\n", strings.Join(req.Columns, ", "))
	fmt.Fprintf(&b, "Sample row: %s\n", sampleJSON)
	fmt.Fprintf(&b, "Purpose: %s\n", req.Purpose)
	fmt.Fprintf(&b, "Roles to map: %s\n", strings.Join(req.Roles, ", "))
	b.WriteString("Reply with a single JSON object mapping each role to a column name from the list above, or null if none fits.")
	return b.String()
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseJSONReply strips a fenced code block if present, then parses the
// remaining text as a JSON object.
func parseJSONReply(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// validateMapping checks every non-extraction value is null or a known
// column, per spec.md §4.3 step 3.
func validateMapping(raw map[string]any, columns []string) (*Result, error) {
	out := &Result{Columns: make(map[string]*string, len(raw))}
	for role, v := range raw {
		if role == "source_column" || role == "extraction_pattern" {
			continue
		}
		if v == nil {
			out.Columns[role] = nil
			continue
		}
		col, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("resolver: role %q has non-string value %v", role, v)
		}
		if !containsColumn(columns, col) {
			return nil, &RoleUnknownColumnError{Role: role, Column: col, Available: columns}
		}
		c := col
		out.Columns[role] = &c
	}
	return out, nil
}

// looksLikeExtraction matches the phrase the spec gates the extraction
// field behind: "extract ... from composite".
func looksLikeExtraction(purpose string) bool {
	p := strings.ToLower(purpose)
	return strings.Contains(p, "extract") && strings.Contains(p, "composite")
}

func extractionFromRaw(raw map[string]any, columns []string) (*Extraction, error) {
	sourceRaw, hasSource := raw["source_column"]
	patternRaw, hasPattern := raw["extraction_pattern"]
	if !hasSource || !hasPattern {
		return nil, nil
	}
	source, ok := sourceRaw.(string)
	if !ok {
		return nil, fmt.Errorf("resolver: source_column must be a string")
	}
	pattern, ok := patternRaw.(string)
	if !ok {
		return nil, fmt.Errorf("resolver: extraction_pattern must be a string")
	}
	if !containsColumn(columns, source) {
		return nil, &RoleUnknownColumnError{Role: "source_column", Column: source, Available: columns}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ExtractionSpecError{Pattern: pattern, Reason: err.Error()}
	}
	if re.NumSubexp() != 1 {
		return nil, &ExtractionSpecError{Pattern: pattern, Reason: "must have exactly one capture group"}
	}
	return &Extraction{SourceColumn: source, ExtractPattern: pattern}, nil
}

func containsColumn(columns []string, col string) bool {
	for _, c := range columns {
		if c == col {
			return true
		}
	}
	return false
}
