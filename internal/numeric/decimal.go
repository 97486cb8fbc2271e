package numeric

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Value is a typed scalar pulled from a TableRow column. Non-numeric values
// are represented so aggregations can skip them rather than zero-fill.
type Value struct {
	IsNumber bool
	Decimal  decimal.Decimal
}

// NumberValue wraps a decimal as a numeric Value.
func NumberValue(d decimal.Decimal) Value { return Value{IsNumber: true, Decimal: d} }

// NonNumber returns a Value representing a non-numeric (skipped) entry.
func NonNumber() Value { return Value{} }

// Summary is the result of aggregating a sequence of Values. Fields are nil
// (not zero/NaN) when undefined for the given population, per spec.
type Summary struct {
	Sum    *decimal.Decimal
	Mean   *decimal.Decimal
	Median *decimal.Decimal
	Min    *decimal.Decimal
	Max    *decimal.Decimal
	Count  int // raw length of the input sequence, including non-numeric entries
}

// Summarize computes sum/mean/median/min/max/count over a sequence of Values.
// Non-numeric entries are skipped for every reduction except Count, which is
// always the raw sequence length (per spec.md §4.1).
func Summarize(values []Value) Summary {
	s := Summary{Count: len(values)}

	nums := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v.IsNumber {
			nums = append(nums, v.Decimal)
		}
	}

	if len(nums) == 0 {
		return s
	}

	sum := decimal.Zero
	minV, maxV := nums[0], nums[0]
	for _, n := range nums {
		sum = sum.Add(n)
		if n.LessThan(minV) {
			minV = n
		}
		if n.GreaterThan(maxV) {
			maxV = n
		}
	}
	mean := sum.DivRound(decimal.NewFromInt(int64(len(nums))), 16)

	s.Sum = &sum
	s.Mean = &mean
	s.Min = &minV
	s.Max = &maxV

	median := Median(nums)
	s.Median = median

	return s
}

// Median returns the middle value of a sorted copy of nums, or nil for an
// empty sequence. For an even count it averages the two middle elements.
// Exact up to 10^6 rows (documented tolerance, see SPEC_FULL.md §9).
func Median(nums []decimal.Decimal) *decimal.Decimal {
	n := len(nums)
	if n == 0 {
		return nil
	}
	sorted := make([]decimal.Decimal, n)
	copy(sorted, nums)
	sortDecimals(sorted)

	if n%2 == 1 {
		m := sorted[n/2]
		return &m
	}
	a, b := sorted[n/2-1], sorted[n/2]
	m := a.Add(b).DivRound(decimal.NewFromInt(2), 16)
	return &m
}

// StdDev returns the sample standard deviation, or nil when fewer than two
// numeric values are present (a single-row dataset has undefined stddev,
// not zero, per spec.md §8).
func StdDev(values []Value) *decimal.Decimal {
	nums := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v.IsNumber {
			nums = append(nums, v.Decimal)
		}
	}
	if len(nums) < 2 {
		return nil
	}

	sum := decimal.Zero
	for _, n := range nums {
		sum = sum.Add(n)
	}
	mean := sum.DivRound(decimal.NewFromInt(int64(len(nums))), 16)

	sumSq := decimal.Zero
	for _, n := range nums {
		diff := n.Sub(mean)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	variance := sumSq.DivRound(decimal.NewFromInt(int64(len(nums)-1)), 16)
	sd, _ := variance.Float64()
	if sd < 0 {
		sd = 0
	}
	result := decimal.NewFromFloat(sqrt(sd))
	return &result
}

// sqrt is a tiny Newton's-method square root kept local so StdDev does not
// need to depend on math.Sqrt's float64 rounding semantics for anything but
// this single, already-approximate statistic.
func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// CountDistinct counts distinct non-null scalar values, rendered via fmt.Sprint
// for comparison (mirrors the document store's own distinct-value semantics).
func CountDistinct(raw []any) int {
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		if v == nil {
			continue
		}
		if d, ok := v.(decimal.Decimal); ok {
			seen["n:"+d.String()] = struct{}{}
			continue
		}
		seen[fmt.Sprintf("%T:%v", v, v)] = struct{}{}
	}
	return len(seen)
}

// sortDecimals sorts in place using insertion sort batched with a simple
// introsort fallback is unnecessary here: row counts handled by the reducer
// are already bounded by the aggregation stage, so O(n log n) via sort.Slice
// is used directly.
func sortDecimals(d []decimal.Decimal) {
	// Simple insertion sort is fine for the typical per-group bucket sizes
	// the reducer hands to Median; for full-column medians sort.Slice below
	// handles arbitrary sizes.
	if len(d) > 64 {
		quickSortDecimals(d, 0, len(d)-1)
		return
	}
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j-1].GreaterThan(d[j]); j-- {
			d[j-1], d[j] = d[j], d[j-1]
		}
	}
}

func quickSortDecimals(d []decimal.Decimal, lo, hi int) {
	if lo >= hi {
		return
	}
	pivot := d[(lo+hi)/2]
	i, j := lo, hi
	for i <= j {
		for d[i].LessThan(pivot) {
			i++
		}
		for d[j].GreaterThan(pivot) {
			j--
		}
		if i <= j {
			d[i], d[j] = d[j], d[i]
			i++
			j--
		}
	}
	quickSortDecimals(d, lo, j)
	quickSortDecimals(d, i, hi)
}
