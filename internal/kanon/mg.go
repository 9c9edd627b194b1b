package kanon

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// MinGenOptions configures an exhaustive branch-and-bound search.
type MinGenOptions struct {
	K         int
	Metric    Metric
	MaxStates uint64 // 0 means unbounded/exhaustive, matching SIZE_MAX in the engine this is grounded on
	// SingleThreaded runs the search on the calling goroutine instead of a
	// background one, so no Observer snapshots are published mid-run.
	SingleThreaded bool
	// NoCache disables the score/match memoization, so every candidate is
	// rescored from scratch.
	NoCache bool
}

// Result is a finished search's tied-best tables and run statistics.
type Result struct {
	Tables   []*Table
	Best     float64
	States   uint64
	Total    uint64
	Duration time.Duration
	Warnings []string
}

// MinGen performs an exhaustive (or bounded) depth-first search over every
// combination of per-cell generalizations, column by column, pruning a
// branch the moment its partial score exceeds the current best (ties are
// kept, so every tied-best table is found) or its partial k-anonymity check (evaluated over columns decided so far)
// already fails - a necessary condition, since adding more generalized
// columns only narrows future matches further.
type MinGen struct {
	original *Table
	working  *Table
	opts     MinGenOptions
	cache    *MetricCache
	observer *Observer

	ctx   context.Context
	total uint64

	states uint64
	best   float64
	tables []*Table
}

// NewMinGen creates a search over a clone of original, left untouched by
// the search itself.
func NewMinGen(original *Table, opts MinGenOptions) *MinGen {
	return &MinGen{
		original: original,
		opts:     opts,
		observer: NewObserver(),
	}
}

// Observer exposes the search's progress snapshots for a renderer to poll.
func (m *MinGen) Observer() *Observer {
	return m.observer
}

// Cache exposes the run's score/match caches for a renderer's stats block.
// Valid only after Run has been called.
func (m *MinGen) Cache() *MetricCache {
	return m.cache
}

func (m *MinGen) reset() {
	m.working = m.original.Clone()
	m.cache = NewMetricCache()

	if m.opts.NoCache {
		m.cache.Disable()
	}

	m.states = 0
	m.best = math.Inf(1)
	m.tables = nil
}

// Run executes the search to completion (or until ctx is canceled or
// MaxStates is hit) and returns the tied-best generalized tables found.
func (m *MinGen) Run(ctx context.Context) (*Result, error) {
	m.reset()

	m.ctx = ctx
	m.total = m.original.DistinctStates(nil)

	lastCol := m.original.NumColumns() - 1
	if KAnonymity(m.cache, m.original, m.working, m.opts.K, lastCol) {
		m.best = 0
		m.tables = []*Table{m.working.Clone()}
		m.publish()

		return &Result{Tables: m.tables, Best: 0, Total: m.total}, nil
	}

	start := time.Now()

	if m.opts.SingleThreaded {
		m.anonymizeWorker(0, 0)
	} else {
		done := make(chan struct{})

		go func() {
			defer close(done)
			m.anonymizeWorker(0, 0)
		}()

		<-done
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.publish()

	result := &Result{
		Tables:   dedupeTables(m.tables),
		Best:     m.best,
		States:   m.states,
		Total:    m.total,
		Duration: time.Since(start),
	}

	if len(result.Tables) == 0 || !KAnonymity(m.cache, m.original, result.Tables[0], m.opts.K, lastCol) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("search exhausted its state budget (%d states) without reaching k=%d", m.states, m.opts.K))
	}

	return result, nil
}

func (m *MinGen) ctxDone() bool {
	return m.ctx != nil && m.ctx.Err() != nil
}

func (m *MinGen) overBudget() bool {
	return m.opts.MaxStates > 0 && m.states >= m.opts.MaxStates
}

// anonymizeWorker recurses row by row within a column before moving to the
// next column, so every row's candidate for the current column is fixed
// before any row starts mutating the next one. Non-quasi columns are
// skipped outright - there is nothing to mutate there. MaxStates bounds the
// number of candidate mutations considered at every (row, col) level, not
// the number of completed tables scored - each candidate in the loop below
// costs one state, whether or not it survives pruning.
func (m *MinGen) anonymizeWorker(row, col int) {
	if m.ctxDone() || m.overBudget() {
		return
	}

	if col == m.working.NumColumns() {
		m.scoreResults()
		return
	}

	curCol := m.working.ColumnAt(col)

	if curCol.Sensitivity != Quasi {
		m.anonymizeWorker(0, col+1)
		return
	}

	randomize := m.opts.MaxStates > 0
	original := curCol.Data[row]
	mutations := m.working.Mutations(original, curCol, randomize)

	for _, mutated := range mutations {
		m.states++
		if m.overBudget() {
			return
		}

		if m.ctxDone() {
			return
		}

		curCol.Data[row] = mutated

		if row < m.working.Rows-1 {
			m.anonymizeWorker(row+1, col)
		} else {
			score, err := Score(m.opts.Metric, m.cache, m.original, m.working)
			scoreOK := err == nil && score <= m.best
			kOK := scoreOK && KAnonymity(m.cache, m.original, m.working, m.opts.K, col)

			if scoreOK && kOK {
				if col == m.working.NumColumns()-1 {
					m.scoreResults()
				} else {
					m.anonymizeWorker(0, col+1)
				}
			}
		}

		curCol.Data[row] = original
	}
}

func (m *MinGen) scoreResults() {
	score, err := Score(m.opts.Metric, m.cache, m.original, m.working)
	if err != nil {
		return
	}

	switch {
	case score < m.best:
		m.best = score
		m.tables = []*Table{m.working.Clone()}
	case score == m.best:
		m.tables = append(m.tables, m.working.Clone())
	}

	if !m.opts.SingleThreaded && m.states%2048 == 0 {
		m.publish()
	}
}

func (m *MinGen) publish() {
	var best *Table
	if len(m.tables) > 0 {
		best = m.tables[0]
	}

	m.observer.Publish(Snapshot{
		BestTable: best,
		BestScore: m.best,
		States:    m.states,
		Total:     m.total,
	})
}

func dedupeTables(tables []*Table) []*Table {
	var out []*Table

	for _, t := range tables {
		dup := false

		for _, o := range out {
			if t.Equal(o) {
				dup = true
				break
			}
		}

		if !dup {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SortKey() < out[j].SortKey() })

	return out
}
