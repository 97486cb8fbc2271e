package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is an in-process Store backed by plain Go slices, interpreting
// the specific aggregation-stage shapes internal/pipeline emits ($match,
// $group, $sort, $limit, $project, $addFields, $facet, $dateTrunc,
// $regexFind, $let, $arrayElemAt). It exists for tests that want real
// pipeline documents evaluated without a live MongoDB deployment — it is
// not a general-purpose aggregation engine.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Document)}
}

// Seed inserts docs into collection, for test setup.
func (s *MemoryStore) Seed(collection string, docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], docs...)
}

func (s *MemoryStore) Aggregate(ctx context.Context, collection string, pipeline []any) ([]Document, error) {
	s.mu.RLock()
	docs := cloneDocs(s.collections[collection])
	s.mu.RUnlock()

	for _, stage := range pipeline {
		d, err := toStageD(stage)
		if err != nil {
			return nil, err
		}
		if len(d) != 1 {
			return nil, fmt.Errorf("memory store: stage must have exactly one operator, got %d", len(d))
		}
		docs, err = runStage(docs, d[0].Key, d[0].Value)
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, filter any) (int64, error) {
	s.mu.RLock()
	docs := cloneDocs(s.collections[collection])
	s.mu.RUnlock()

	d, err := toStageD(filter)
	if err != nil {
		return 0, err
	}
	matched, err := runMatch(docs, d)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *MemoryStore) FindOne(ctx context.Context, collection string, filter any, _ any) (Document, error) {
	s.mu.RLock()
	docs := cloneDocs(s.collections[collection])
	s.mu.RUnlock()

	d, err := toStageD(filter)
	if err != nil {
		return nil, err
	}
	matched, err := runMatch(docs, d)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, nil
	}
	return matched[0], nil
}

func (s *MemoryStore) UpdateOne(ctx context.Context, collection string, filter any, update any, upsert bool) (UpdateAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := toStageD(filter)
	if err != nil {
		return UpdateAck{}, err
	}
	docs := s.collections[collection]
	for i, doc := range docs {
		if matchesDoc(doc, d) {
			applyUpdate(doc, update)
			docs[i] = doc
			return UpdateAck{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	if !upsert {
		return UpdateAck{}, nil
	}
	newDoc := Document{}
	applyUpdate(newDoc, update)
	s.collections[collection] = append(docs, newDoc)
	return UpdateAck{UpsertedID: len(docs)}, nil
}

func applyUpdate(doc Document, update any) {
	d, err := toStageD(update)
	if err != nil {
		return
	}
	for _, e := range d {
		if e.Key != "$set" {
			continue
		}
		setFields, _ := toStageD(e.Value)
		for _, f := range setFields {
			doc[f.Key] = f.Value
		}
	}
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		cp := make(Document, len(d))
		for k, v := range d {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// toStageD normalizes a bson.D/bson.M/map[string]any stage value to bson.D
// via a bson round-trip, so downstream code has one shape to switch on.
func toStageD(v any) (bson.D, error) {
	if v == nil {
		return bson.D{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memory store: marshal stage: %w", err)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("memory store: unmarshal stage: %w", err)
	}
	return d, nil
}

func runStage(docs []Document, op string, value any) ([]Document, error) {
	switch op {
	case "$match":
		d, err := toStageD(value)
		if err != nil {
			return nil, err
		}
		return runMatch(docs, d)
	case "$sort":
		d, err := toStageD(value)
		if err != nil {
			return nil, err
		}
		return runSort(docs, d), nil
	case "$limit":
		n := toInt(value)
		if n < len(docs) {
			return docs[:n], nil
		}
		return docs, nil
	case "$group":
		d, err := toStageD(value)
		if err != nil {
			return nil, err
		}
		return runGroup(docs, d)
	case "$project":
		d, err := toStageD(value)
		if err != nil {
			return nil, err
		}
		return runProject(docs, d), nil
	case "$addFields":
		d, err := toStageD(value)
		if err != nil {
			return nil, err
		}
		return runAddFields(docs, d), nil
	case "$facet":
		d, err := toStageD(value)
		if err != nil {
			return nil, err
		}
		return runFacet(docs, d)
	default:
		return nil, fmt.Errorf("memory store: unsupported stage %q", op)
	}
}

func runMatch(docs []Document, match bson.D) ([]Document, error) {
	var out []Document
	for _, doc := range docs {
		if matchesDoc(doc, match) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func matchesDoc(doc Document, match bson.D) bool {
	for _, e := range match {
		if !matchesField(doc, e.Key, e.Value) {
			return false
		}
	}
	return true
}

func matchesField(doc Document, path string, cond any) bool {
	actual := fieldAt(doc, path)
	switch c := cond.(type) {
	case bson.D:
		for _, op := range c {
			if !matchesOp(actual, op.Key, op.Value) {
				return false
			}
		}
		return true
	default:
		return equalValues(actual, cond)
	}
}

func matchesOp(actual any, op string, operand any) bool {
	switch op {
	case "$eq":
		return equalValues(actual, operand)
	case "$ne":
		return !equalValues(actual, operand)
	case "$gt":
		return compareValues(actual, operand) > 0
	case "$gte":
		return compareValues(actual, operand) >= 0
	case "$lt":
		return compareValues(actual, operand) < 0
	case "$lte":
		return compareValues(actual, operand) <= 0
	case "$in":
		arr, _ := operand.(bson.A)
		for _, v := range arr {
			if equalValues(actual, v) {
				return true
			}
		}
		return false
	case "$nin":
		arr, _ := operand.(bson.A)
		for _, v := range arr {
			if equalValues(actual, v) {
				return false
			}
		}
		return true
	case "$regex":
		s, ok := actual.(string)
		if !ok {
			return false
		}
		pattern, _ := operand.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case "$options":
		return true // consumed alongside $regex
	default:
		return false
	}
}

func fieldAt(doc Document, path string) any {
	parts := strings.Split(path, ".")
	var cur any = map[string]any(doc)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			if d, ok := cur.(Document); ok {
				m = map[string]any(d)
			} else {
				return nil
			}
		}
		cur = m[p]
	}
	return cur
}

func runSort(docs []Document, spec bson.D) []Document {
	out := append([]Document(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool {
		for _, e := range spec {
			dir := toInt(e.Value)
			a, b := fieldAt(out[i], e.Key), fieldAt(out[j], e.Key)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func runGroup(docs []Document, spec bson.D) ([]Document, error) {
	type groupAcc struct {
		id   any
		doc  Document
		sums map[string]float64
		cnts map[string]int
		arr  map[string][]any
		set  map[string]map[string]bool
	}

	var idExpr any
	accumDefs := bson.D{}
	for _, e := range spec {
		if e.Key == "_id" {
			idExpr = e.Value
			continue
		}
		accumDefs = append(accumDefs, e)
	}

	order := []any{}
	groups := map[string]*groupAcc{}

	for _, doc := range docs {
		id := evalExpr(doc, idExpr)
		key := fmt.Sprintf("%v", id)
		g, ok := groups[key]
		if !ok {
			g = &groupAcc{
				id:   id,
				doc:  Document{"_id": id},
				sums: map[string]float64{},
				cnts: map[string]int{},
				arr:  map[string][]any{},
				set:  map[string]map[string]bool{},
			}
			groups[key] = g
			order = append(order, key)
		}
		for _, acc := range accumDefs {
			accD, _ := toStageD(acc.Value)
			if len(accD) != 1 {
				continue
			}
			op, operand := accD[0].Key, accD[0].Value
			switch op {
			case "$sum":
				if n, ok := operand.(int32); ok {
					g.sums[acc.Key] += float64(n)
					g.cnts[acc.Key]++
					continue
				}
				v := evalExpr(doc, operand)
				g.sums[acc.Key] += toFloat(v)
				g.cnts[acc.Key]++
			case "$avg":
				v := evalExpr(doc, operand)
				g.sums[acc.Key] += toFloat(v)
				g.cnts[acc.Key]++
			case "$min":
				v := evalExpr(doc, operand)
				if cur, ok := g.doc[acc.Key]; !ok || compareValues(v, cur) < 0 {
					g.doc[acc.Key] = v
				}
			case "$max":
				v := evalExpr(doc, operand)
				if cur, ok := g.doc[acc.Key]; !ok || compareValues(v, cur) > 0 {
					g.doc[acc.Key] = v
				}
			case "$push":
				v := evalExpr(doc, operand)
				g.arr[acc.Key] = append(g.arr[acc.Key], v)
			case "$addToSet":
				v := evalExpr(doc, operand)
				if g.set[acc.Key] == nil {
					g.set[acc.Key] = map[string]bool{}
				}
				k := fmt.Sprintf("%v", v)
				if !g.set[acc.Key][k] {
					g.set[acc.Key][k] = true
					g.arr[acc.Key] = append(g.arr[acc.Key], v)
				}
			}
		}
	}

	out := make([]Document, 0, len(order))
	for _, key := range order {
		g := groups[key.(string)]
		for field, sum := range g.sums {
			if g.cnts[field] == 0 {
				g.doc[field] = 0.0
				continue
			}
			// $sum accumulators never divide; $avg always does. Distinguish
			// by re-checking the accumulator definition.
			for _, acc := range accumDefs {
				if acc.Key != field {
					continue
				}
				accD, _ := toStageD(acc.Value)
				if len(accD) == 1 && accD[0].Key == "$avg" {
					g.doc[field] = sum / float64(g.cnts[field])
				} else {
					g.doc[field] = sum
				}
			}
		}
		for field, arr := range g.arr {
			g.doc[field] = arr
		}
		out = append(out, g.doc)
	}
	return out, nil
}

func runProject(docs []Document, spec bson.D) []Document {
	out := make([]Document, len(docs))
	for i, doc := range docs {
		nd := Document{}
		for _, e := range spec {
			if b, ok := e.Value.(bool); ok && !b {
				continue
			}
			if b, ok := e.Value.(int32); ok && b == 0 {
				continue
			}
			nd[e.Key] = evalExpr(doc, e.Value)
		}
		out[i] = nd
	}
	return out
}

func runAddFields(docs []Document, spec bson.D) []Document {
	out := make([]Document, len(docs))
	for i, doc := range docs {
		nd := Document{}
		for k, v := range doc {
			nd[k] = v
		}
		for _, e := range spec {
			setNested(nd, e.Key, evalExpr(doc, e.Value))
		}
		out[i] = nd
	}
	return out
}

func setNested(doc Document, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(Document)
		if !ok {
			next = Document{}
			cur[p] = next
		}
		cur = next
	}
}

func runFacet(docs []Document, spec bson.D) ([]Document, error) {
	result := Document{}
	for _, branch := range spec {
		sub, ok := branch.Value.(bson.A)
		if !ok {
			return nil, fmt.Errorf("memory store: facet branch %q must be an array of stages", branch.Key)
		}
		branchDocs := cloneDocs(docs)
		for _, stage := range sub {
			d, err := toStageD(stage)
			if err != nil {
				return nil, err
			}
			if len(d) != 1 {
				return nil, fmt.Errorf("memory store: facet stage must have one operator")
			}
			branchDocs, err = runStage(branchDocs, d[0].Key, d[0].Value)
			if err != nil {
				return nil, err
			}
		}
		result[branch.Key] = branchDocs
	}
	return []Document{result}, nil
}

// evalExpr evaluates the small subset of Mongo expression operators the
// pipeline builder emits: field references ("$col"), $let/$regexFind/
// $arrayElemAt (composite-column extraction), and $dateTrunc. Any other
// shape is returned as a literal.
func evalExpr(doc Document, expr any) any {
	switch v := expr.(type) {
	case string:
		if strings.HasPrefix(v, "$$") {
			return nil // $$ROOT/$$vars resolved inline by callers that need them
		}
		if strings.HasPrefix(v, "$") {
			return fieldAt(doc, strings.TrimPrefix(v, "$"))
		}
		return v
	case bson.D:
		if len(v) == 1 {
			switch v[0].Key {
			case "$let":
				return evalLet(doc, v[0].Value)
			case "$regexFind":
				return evalRegexFind(doc, v[0].Value)
			case "$arrayElemAt":
				return evalArrayElemAt(doc, v[0].Value)
			case "$dateTrunc":
				return evalDateTrunc(doc, v[0].Value)
			}
		}
		return v
	default:
		return v
	}
}

func evalLet(doc Document, spec any) any {
	d, ok := spec.(bson.D)
	if !ok {
		return nil
	}
	var varsExpr, inExpr any
	for _, e := range d {
		switch e.Key {
		case "vars":
			varsExpr = e.Value
		case "in":
			inExpr = e.Value
		}
	}
	varsD, _ := varsExpr.(bson.D)
	scope := Document{}
	for _, v := range varsD {
		scope[v.Key] = evalExpr(doc, v.Value)
	}
	return evalExprWithVars(doc, inExpr, scope)
}

func evalExprWithVars(doc Document, expr any, vars Document) any {
	if arr, ok := expr.(bson.A); ok {
		out := make(bson.A, len(arr))
		for i, e := range arr {
			out[i] = evalExprWithVars(doc, e, vars)
		}
		return out
	}
	s, ok := expr.(string)
	if ok && strings.HasPrefix(s, "$$") {
		parts := strings.SplitN(strings.TrimPrefix(s, "$$"), ".", 2)
		base := vars[parts[0]]
		if len(parts) == 1 {
			return base
		}
		return fieldAtAny(base, parts[1])
	}
	if d, ok := expr.(bson.D); ok && len(d) == 1 && d[0].Key == "$arrayElemAt" {
		arr, _ := d[0].Value.(bson.A)
		if len(arr) != 2 {
			return nil
		}
		a := evalExprWithVars(doc, arr[0], vars)
		idx := toInt(arr[1])
		asArr, ok := a.(bson.A)
		if !ok || idx < 0 || idx >= len(asArr) {
			return nil
		}
		return asArr[idx]
	}
	return evalExpr(doc, expr)
}

func fieldAtAny(v any, path string) any {
	parts := strings.Split(path, ".")
	cur := v
	for _, p := range parts {
		switch m := cur.(type) {
		case Document:
			cur = m[p]
		case map[string]any:
			cur = m[p]
		default:
			return nil
		}
	}
	return cur
}

func evalRegexFind(doc Document, spec any) any {
	d, ok := spec.(bson.D)
	if !ok {
		return nil
	}
	var input, pattern string
	for _, e := range d {
		switch e.Key {
		case "input":
			if s, ok := evalExpr(doc, e.Value).(string); ok {
				input = s
			}
		case "regex":
			if s, ok := e.Value.(string); ok {
				pattern = s
			}
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	m := re.FindStringSubmatch(input)
	if m == nil {
		return nil
	}
	captures := bson.A{}
	for _, c := range m[1:] {
		captures = append(captures, c)
	}
	return Document{"match": m[0], "captures": captures}
}

func evalArrayElemAt(doc Document, spec any) any {
	arr, ok := spec.(bson.A)
	if !ok || len(arr) != 2 {
		return nil
	}
	a := evalExpr(doc, arr[0])
	idx := toInt(arr[1])
	switch v := a.(type) {
	case bson.A:
		if idx < 0 || idx >= len(v) {
			return nil
		}
		return v[idx]
	case []any:
		if idx < 0 || idx >= len(v) {
			return nil
		}
		return v[idx]
	}
	return nil
}

func evalDateTrunc(doc Document, spec any) any {
	d, ok := spec.(bson.D)
	if !ok {
		return nil
	}
	var date time.Time
	unit := "day"
	for _, e := range d {
		switch e.Key {
		case "date":
			if t, ok := evalExpr(doc, e.Value).(time.Time); ok {
				date = t
			}
		case "unit":
			if s, ok := e.Value.(string); ok {
				unit = s
			}
		}
	}
	switch unit {
	case "week":
		offset := (int(date.Weekday()) + 6) % 7 // Monday-start week
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).AddDate(0, 0, -offset)
	case "month":
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	case "quarter":
		q := ((int(date.Month()) - 1) / 3) * 3
		return time.Date(date.Year(), time.Month(q+1), 1, 0, 0, 0, 0, date.Location())
	case "year":
		return time.Date(date.Year(), 1, 1, 0, 0, 0, 0, date.Location())
	default:
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func equalValues(a, b any) bool {
	return compareValues(a, b) == 0
}

func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}
	fa, aIsNum := asFloat(a)
	fb, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)
	return strings.Compare(sa, sb)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
