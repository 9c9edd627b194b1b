package kanon

import (
	"context"
	"testing"

	"github.com/kyleking/kanon/internal/testutil"
)

func TestMinGenBackgroundWorkerHasNoDataRaces(t *testing.T) {
	testutil.AssertNoRaces(t, func() {
		tbl := twoRowAgeTable("20", "30")
		mg := NewMinGen(tbl, MinGenOptions{K: 2, Metric: MinimalDistortionMetric})

		done := make(chan struct{})

		go func() {
			defer close(done)
			_, _ = mg.Run(context.Background())
		}()

		mg.Observer().Snapshot()
		<-done
	}, 8)
}

func TestGeneticAlgorithmBackgroundWorkerHasNoDataRaces(t *testing.T) {
	testutil.AssertNoRaces(t, func() {
		tbl := twoRowAgeTable("20", "30")
		ga := NewGeneticAlgorithm(tbl, GeneticAlgorithmOptions{
			K: 2, Metric: MinimalDistortionMetric, Population: 20, MutationRate: 10, MaxGenerations: 3,
		})

		done := make(chan struct{})

		go func() {
			defer close(done)
			_, _ = ga.Run(context.Background())
		}()

		ga.Observer().Snapshot()
		<-done
	}, 8)
}
