package kanon

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// gaCutoff is the number of top-scoring tables kept as elites each
// generation, matching the fixed value the engine this is grounded on uses.
const gaCutoff = 10

// GeneticAlgorithmOptions configures a population-based search that trades
// the exhaustive search's completeness for tractable runtime on tables too
// large to brute force.
type GeneticAlgorithmOptions struct {
	K              int
	Metric         Metric
	Population     int
	MutationRate   int // percentage points added to the 100-point combine roll
	MaxGenerations uint64
	SingleThreaded bool
	// NoCache disables the score/match memoization, so every candidate is
	// rescored from scratch.
	NoCache bool
}

type instance struct {
	score float64
	table *Table
}

// GeneticAlgorithm searches by evolving a population of randomly
// generalized tables: each generation keeps the best few as elites, breeds
// the rest by combining elite pairs, and escalates its own mutation rate
// over time to keep exploring once the population converges.
type GeneticAlgorithm struct {
	original *Table
	opts     GeneticAlgorithmOptions
	cache    *MetricCache
	observer *Observer

	ctx   context.Context
	total uint64
	cells int

	mRate      int
	iter       uint64
	states     uint64
	best       float64
	generation []instance
}

// NewGeneticAlgorithm creates a search over original, which is never
// mutated directly - every candidate is a clone.
func NewGeneticAlgorithm(original *Table, opts GeneticAlgorithmOptions) *GeneticAlgorithm {
	return &GeneticAlgorithm{
		original: original,
		opts:     opts,
		observer: NewObserver(),
	}
}

// Observer exposes the search's progress snapshots for a renderer to poll.
func (g *GeneticAlgorithm) Observer() *Observer {
	return g.observer
}

// Cache exposes the run's score/match caches for a renderer's stats block.
// Valid only after Run has been called.
func (g *GeneticAlgorithm) Cache() *MetricCache {
	return g.cache
}

func (g *GeneticAlgorithm) reset() {
	g.cache = NewMetricCache()

	if g.opts.NoCache {
		g.cache.Disable()
	}

	g.mRate = g.opts.MutationRate
	g.iter = 0
	g.states = 0
	g.best = math.Inf(-1)
	g.generation = nil
	g.cells = g.original.NumColumns() * g.original.Rows
}

// Run evolves the population for MaxGenerations generations (or until ctx
// is canceled) and returns the tied-best tables from the final generation.
func (g *GeneticAlgorithm) Run(ctx context.Context) (*Result, error) {
	g.reset()

	g.ctx = ctx
	g.total = g.original.DistinctStates(nil)

	lastCol := g.original.NumColumns() - 1
	if KAnonymity(g.cache, g.original, g.original, g.opts.K, lastCol) {
		return &Result{Tables: []*Table{g.original.Clone()}, Best: math.Inf(1), Total: g.total}, nil
	}

	g.generation = make([]instance, g.opts.Population)

	for i := range g.generation {
		t := g.original.Random()
		score, err := g.fitness(t)
		if err != nil {
			return nil, err
		}

		g.generation[i] = instance{score: score, table: t}
	}

	sortByFitnessDesc(g.generation)

	start := time.Now()

	if g.opts.SingleThreaded {
		g.anonymizeWorker()
	} else {
		done := make(chan struct{})

		go func() {
			defer close(done)
			g.anonymizeWorker()
		}()

		<-done
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.publish()

	best := g.generation[0].score

	var tied []*Table

	for _, in := range g.generation {
		if in.score == best {
			tied = append(tied, in.table)
		}
	}

	result := &Result{
		Tables:   dedupeTables(tied),
		Best:     best,
		States:   g.states,
		Total:    g.total,
		Duration: time.Since(start),
	}

	if !KAnonymity(g.cache, g.original, result.Tables[0], g.opts.K, lastCol) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("best table after %d generations is not yet k-anonymous for k=%d", g.iter, g.opts.K))
	}

	return result, nil
}

func (g *GeneticAlgorithm) halted() bool {
	return g.ctx != nil && g.ctx.Err() != nil
}

func (g *GeneticAlgorithm) anonymizeWorker() {
	escalateEvery := g.opts.MaxGenerations / 10
	if escalateEvery == 0 {
		escalateEvery = 1
	}

	for g.iter = 0; g.iter < g.opts.MaxGenerations; g.iter++ {
		if g.halted() {
			return
		}

		if g.iter > 0 && g.iter%escalateEvery == 0 {
			g.mRate *= 2
			g.publish()
		}

		cutoff := gaCutoff
		if cutoff > len(g.generation) {
			cutoff = len(g.generation)
		}

		elites := g.generation[:cutoff]
		offspring := (g.opts.Population - cutoff) / cutoff

		next := make([]instance, 0, g.opts.Population)

		for _, elite := range elites {
			g.states++
			next = append(next, elite)

			for i := 0; i < offspring; i++ {
				g.states++

				partner := elites[rand.Intn(len(elites))] //nolint:gosec
				child := g.combine(elite.table, partner.table)

				score, err := g.fitness(child)
				if err != nil {
					continue
				}

				next = append(next, instance{score: score, table: child})
			}
		}

		sortByFitnessDesc(next)

		if len(next) > g.opts.Population {
			next = next[:g.opts.Population]
		}

		g.generation = next

		if g.generation[0].score > g.best {
			g.best = g.generation[0].score
		}
	}
}

// combine breeds a child from two parent tables. Per quasi cell, a roll out
// of 100+mRate decides its fate: above 100, replace it with a fresh random
// mutation drawn from the ORIGINAL cell's own mutation space (not the
// parent's current value's), which is what keeps mutation from narrowing
// toward whatever the population has already converged on; below 50,
// inherit from second; otherwise inherit from first.
func (g *GeneticAlgorithm) combine(first, second *Table) *Table {
	child := first.Clone()

	for _, name := range child.Header {
		col := child.Columns[name]
		if col.Sensitivity != Quasi {
			continue
		}

		origCol := g.original.Columns[name]

		for row := range col.Data {
			roll := rand.Intn(100 + g.mRate) //nolint:gosec

			switch {
			case roll > 100:
				mutations := g.original.Mutations(origCol.Data[row], origCol, true)
				col.Data[row] = mutations[0]
			case roll < 50:
				col.Data[row] = second.Columns[name].Data[row]
			}
		}
	}

	return child
}

// fitness scores a candidate table: k*cells/score for a table that is
// already k-anonymous, or the continuous av_k_anonymity/k gradient
// otherwise, which rewards getting closer even before crossing the
// threshold. The two branches are not ordered against each other: a
// non-k-anonymous table with a high average match count can score above
// a heavily generalized (or heavily weighted) k-anonymous one.
func (g *GeneticAlgorithm) fitness(t *Table) (float64, error) {
	lastCol := t.NumColumns() - 1

	if KAnonymity(g.cache, g.original, t, g.opts.K, lastCol) {
		score, err := Score(g.opts.Metric, g.cache, g.original, t)
		if err != nil {
			return 0, err
		}

		if score == 0 {
			return math.Inf(1), nil
		}

		return float64(g.opts.K) * float64(g.cells) / score, nil
	}

	return AvKAnonymity(g.cache, g.original, t, lastCol) / float64(g.opts.K), nil
}

func (g *GeneticAlgorithm) publish() {
	var best *Table
	if len(g.generation) > 0 {
		best = g.generation[0].table
	}

	g.observer.Publish(Snapshot{
		BestTable: best,
		BestScore: g.best,
		States:    g.states,
		Total:     g.total,
	})
}

func sortByFitnessDesc(gen []instance) {
	sort.Slice(gen, func(i, j int) bool { return gen[i].score > gen[j].score })
}
