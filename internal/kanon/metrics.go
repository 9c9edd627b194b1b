package kanon

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/kyleking/kanon/internal/errors"
)

// Metric selects how a generalized table is scored against the original.
type Metric int

const (
	// MinimalDistortionMetric counts, per row, the weighted number of quasi
	// cells that differ from the original value.
	MinimalDistortionMetric Metric = iota
	// CertaintyMetric measures how much information a generalization step
	// discarded, relative to the breadth of the hierarchy level or range
	// width it generalized to.
	CertaintyMetric
)

// ParseMetric converts the --metric flag's code ("md" or "c"); any other
// value, including the empty string, defaults to MinimalDistortionMetric
// the same way the engine this is grounded on does.
func ParseMetric(code string) Metric {
	if code == "c" {
		return CertaintyMetric
	}

	return MinimalDistortionMetric
}

// MetricCache holds the two caches scoring and matching share across an
// entire search run: per-row scores, and per-row-prefix match sets.
type MetricCache struct {
	Score *PrefixTree[float64]
	Match *PrefixTree[[]int]
}

// NewMetricCache creates an empty cache pair.
func NewMetricCache() *MetricCache {
	return &MetricCache{
		Score: NewPrefixTree[float64](),
		Match: NewPrefixTree[[]int](),
	}
}

// Disable turns both caches into pass-throughs, for callers honoring
// --no-cache: every score and match is recomputed instead of memoized.
func (c *MetricCache) Disable() {
	c.Score.Disable()
	c.Match.Disable()
}

// Score dispatches to the metric-specific scorer, summing a per-row score
// across the whole table. Lower is better for both metrics: zero means the
// candidate equals the original.
func Score(metric Metric, cache *MetricCache, original, candidate *Table) (float64, error) {
	switch metric {
	case CertaintyMetric:
		return CertaintyScore(cache, original, candidate)
	default:
		return MinimalDistortion(cache, original, candidate)
	}
}

// MinimalDistortion sums, over every row, the weight of each quasi cell
// whose candidate value differs from the original. Per-row results are
// cached by the candidate row's own values, since many candidate rows
// recur across a search's branches.
func MinimalDistortion(cache *MetricCache, original, candidate *Table) (float64, error) {
	var total float64

	oit := original.RowBegin()
	cit := candidate.RowBegin()

	for !cit.Done() {
		row := cit.View()

		if cache.Score.Contains(row, len(row)-1) {
			total += cache.Score.Get(row, len(row)-1)
		} else {
			var rowScore float64

			for i, name := range candidate.Header {
				col := candidate.Columns[name]
				if col.Sensitivity != Quasi {
					continue
				}

				if row[i] != oit.View()[i] {
					rowScore += col.Weight
				}
			}

			if err := cache.Score.Insert(row, rowScore, len(row)-1); err != nil {
				return 0, err
			}

			total += rowScore
		}

		_ = oit.Next()
		_ = cit.Next()
	}

	return total, nil
}

// CertaintyScore sums, over every row, the weighted fraction of remaining
// possibilities each quasi cell's generalization still distinguishes: 0 for
// an unchanged cell, 1 for a suppressed one, Hierarchy.Breadth(value)/
// len(col.Unique) for a hierarchy ancestor, or the mutated range's width
// over the column's overall range for a numeric generalization.
func CertaintyScore(cache *MetricCache, original, candidate *Table) (float64, error) {
	var total float64

	oit := original.RowBegin()
	cit := candidate.RowBegin()

	for !cit.Done() {
		row := cit.View()

		if cache.Score.Contains(row, len(row)-1) {
			total += cache.Score.Get(row, len(row)-1)

			_ = oit.Next()
			_ = cit.Next()

			continue
		}

		var rowScore float64

		for i, name := range candidate.Header {
			col := candidate.Columns[name]
			if col.Sensitivity != Quasi {
				continue
			}

			cellScore, err := certaintyCell(oit.View()[i], row[i], col)
			if err != nil {
				return 0, err
			}

			rowScore += cellScore * col.Weight
		}

		if err := cache.Score.Insert(row, rowScore, len(row)-1); err != nil {
			return 0, err
		}

		total += rowScore

		_ = oit.Next()
		_ = cit.Next()
	}

	return total, nil
}

func certaintyCell(original, candidate string, col *Column) (float64, error) {
	if candidate == original {
		return 0, nil
	}

	if candidate == "*" {
		return 1, nil
	}

	if col.Hierarchy != nil {
		breadth := col.Hierarchy.Breadth(candidate)
		if breadth == 0 {
			return 0, errors.Newf(errors.InvalidMutation,
				"%q is not a node of the %s hierarchy", candidate, col.Name)
		}

		return float64(breadth) / float64(len(col.Unique)), nil
	}

	if col.Type == TypeInteger {
		if r, err := ParseRange(candidate); err == nil {
			if col.Range.Width() == 0 {
				return 0, nil
			}

			return float64(r.Width()) / float64(col.Range.Width()), nil
		}
	}

	return 0, errors.Newf(errors.InvalidMutation, "unrecognized mutation %q for column %s", candidate, col.Name)
}

// MatchRow finds every row in o that is compatible with row on columns
// 0..lastCol inclusive: equal, either side suppressed, a non-quasi column,
// one value being a hierarchy ancestor of the other, or a numeric range
// containing the other value or range. Results are cached by
// row prefix, since k_tree re-derives the same match sets for many rows.
func MatchRow(cache *MetricCache, o *Table, row []string, lastCol int) []int {
	if cache.Match.Contains(row, lastCol) {
		return cache.Match.Get(row, lastCol)
	}

	var out []int

	for oit := o.RowBegin(); !oit.Done(); _ = oit.Next() {
		candidate := oit.View()
		if rowMatches(o, row, candidate, lastCol) {
			out = append(out, oit.Row())
		}
	}

	_ = cache.Match.Insert(row, out, lastCol)

	return out
}

func rowMatches(t *Table, row, candidate []string, lastCol int) bool {
	for i := 0; i <= lastCol; i++ {
		col := t.ColumnAt(i)

		if col.Sensitivity != Quasi {
			continue
		}

		a, b := row[i], candidate[i]
		if a == b || a == "*" || b == "*" {
			continue
		}

		if col.Hierarchy != nil {
			if hierarchyShareAncestor(col.Hierarchy, a, b) {
				continue
			}

			return false
		}

		if col.Type == TypeInteger {
			if rangesOverlapOrContain(a, b) {
				continue
			}
		}

		return false
	}

	return true
}

func hierarchyShareAncestor(h *Hierarchy, a, b string) bool {
	for _, anc := range h.Find(a) {
		if anc == b {
			return true
		}
	}

	for _, anc := range h.Find(b) {
		if anc == a {
			return true
		}
	}

	return false
}

func rangesOverlapOrContain(a, b string) bool {
	ra, erra := ParseRange(a)
	rb, errb := ParseRange(b)

	switch {
	case erra == nil && errb == nil:
		return ra.ContainsRange(rb) || rb.ContainsRange(ra)
	case erra == nil:
		if n, err := strconv.Atoi(b); err == nil {
			return ra.Contains(n)
		}
	case errb == nil:
		if n, err := strconv.Atoi(a); err == nil {
			return rb.Contains(n)
		}
	}

	return false
}

// kTree enumerates every injective assignment of candidate rows to original
// rows consistent with matches (backtracking over rows in order), recording
// into ks[i] the full set of candidates ever assigned to row i across every
// complete assignment found. A naive per-row match count overstates k - two
// rows both matching the same single third row still can't both "use" it -
// so this exhaustive search is what makes the eventual k threshold check
// sound instead of a false positive.
func kTree(matches [][]int, assign []int, used map[int]bool, depth int, ks []map[int]struct{}) {
	if depth == len(matches) {
		for i, c := range assign {
			ks[i][c] = struct{}{}
		}

		return
	}

	for _, cand := range matches[depth] {
		if used[cand] {
			continue
		}

		used[cand] = true
		assign[depth] = cand
		kTree(matches, assign, used, depth+1, ks)
		used[cand] = false
	}
}

func matchSets(cache *MetricCache, candidate, original *Table, lastCol int) ([][]int, []map[int]struct{}, bool) {
	matches := make([][]int, candidate.Rows)

	for it := candidate.RowBegin(); !it.Done(); _ = it.Next() {
		matches[it.Row()] = MatchRow(cache, original, it.View(), lastCol)
		if len(matches[it.Row()]) == 0 {
			return matches, nil, false
		}
	}

	ks := make([]map[int]struct{}, candidate.Rows)
	for i := range ks {
		ks[i] = make(map[int]struct{})
	}

	used := make(map[int]bool)
	assign := make([]int, candidate.Rows)
	kTree(matches, assign, used, 0, ks)

	return matches, ks, true
}

// KAnonymity reports whether every row of candidate has at least k distinct
// globally-consistent matches in original, considering columns 0..lastCol.
// Pass candidate.NumColumns()-1 for lastCol to consider every column.
func KAnonymity(cache *MetricCache, original, candidate *Table, k, lastCol int) bool {
	matches, ks, ok := matchSets(cache, candidate, original, lastCol)
	if !ok {
		return false
	}

	for i := range matches {
		if len(matches[i]) < k {
			return false
		}
	}

	for _, set := range ks {
		if len(set) < k {
			return false
		}
	}

	return true
}

// AvKAnonymity returns the mean, over every row, of the number of distinct
// globally-consistent matches found - a continuous gradient toward
// k-anonymity for tables that aren't there yet, used as the genetic
// algorithm's fitness signal before a table becomes fully k-anonymous.
func AvKAnonymity(cache *MetricCache, original, candidate *Table, lastCol int) float64 {
	_, ks, ok := matchSets(cache, candidate, original, lastCol)
	if !ok {
		return 0
	}

	sizes := make([]float64, len(ks))
	for i, set := range ks {
		sizes[i] = float64(len(set))
	}

	return stat.Mean(sizes, nil)
}
