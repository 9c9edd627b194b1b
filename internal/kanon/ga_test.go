package kanon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneticAlgorithmShortCircuitsWhenAlreadyKAnonymous(t *testing.T) {
	tbl := twoRowAgeTable("30", "30")

	ga := NewGeneticAlgorithm(tbl, GeneticAlgorithmOptions{
		K: 2, Metric: MinimalDistortionMetric, Population: 20, MutationRate: 10, MaxGenerations: 5,
	})

	result, err := ga.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tables, 1)
	assert.True(t, result.Tables[0].Equal(tbl))
	assert.Empty(t, result.Warnings)
}

func TestGeneticAlgorithmFitnessRewardsKAnonymousTableByScore(t *testing.T) {
	original := twoRowAgeTable("20", "30")

	ga := NewGeneticAlgorithm(original, GeneticAlgorithmOptions{K: 2, Metric: MinimalDistortionMetric})
	ga.reset()

	suppressed := original.Clone()
	suppressed.Columns["Age"].Data = []string{"*", "*"}

	score, err := ga.fitness(suppressed)
	require.NoError(t, err)
	assert.InDelta(t, float64(2*2)/2.0, score, 0.0001) // k * cells / minimal-distortion score
}

func TestGeneticAlgorithmFitnessFallsBackToAvKAnonymityGradient(t *testing.T) {
	original := twoRowAgeTable("20", "30")

	ga := NewGeneticAlgorithm(original, GeneticAlgorithmOptions{K: 2, Metric: MinimalDistortionMetric})
	ga.reset()

	score, err := ga.fitness(original.Clone())
	require.NoError(t, err)
	assert.Less(t, score, 1.0)
}

func TestGeneticAlgorithmCombineNeverTouchesNonQuasiColumns(t *testing.T) {
	original := NewTable([]string{"Age", "Zip"})
	original.Rows = 2

	age := original.Columns["Age"]
	age.Type = TypeInteger
	age.Sensitivity = Quasi
	age.Data = []string{"20", "30"}
	original.generateRanges(age)

	zip := original.Columns["Zip"]
	zip.Type = TypeString
	zip.Sensitivity = Sensitive
	zip.Data = []string{"11111", "22222"}

	ga := NewGeneticAlgorithm(original, GeneticAlgorithmOptions{K: 2, MutationRate: 10})
	ga.reset()

	first := original.Clone()
	second := original.Clone()
	second.Columns["Zip"].Data = []string{"99999", "88888"}

	child := ga.combine(first, second)
	assert.Equal(t, first.Columns["Zip"].Data, child.Columns["Zip"].Data)
}
