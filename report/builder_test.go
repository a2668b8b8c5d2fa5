package report

import (
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/stretchr/testify/require"
)

func TestBuildEmpty(t *testing.T) {
	r := Build(nil, 5)

	require.Zero(t, r.Count)
	require.Zero(t, r.Average)
	require.Zero(t, r.Min)
	require.Zero(t, r.Max)
	require.Empty(t, r.Top)
	require.Empty(t, r.Ranked)
}

func TestBuildStatistics(t *testing.T) {
	products := []models.Product{
		{Name: "a", Price: 10},
		{Name: "b", Price: 30},
		{Name: "c", Price: 20},
	}

	r := Build(products, 2)

	require.Equal(t, 3, r.Count)
	require.InDelta(t, 20.0, r.Average, 1e-9)
	require.Equal(t, 10.0, r.Min)
	require.Equal(t, 30.0, r.Max)
	require.Equal(t, []models.Product{{Name: "b", Price: 30}, {Name: "c", Price: 20}}, r.Top)
	require.Equal(t, "a", products[0].Name, "input must not be reordered")
}

func TestBuildTiesKeepAggregationOrder(t *testing.T) {
	products := []models.Product{
		{Name: "first", Price: 5},
		{Name: "cheap", Price: 1},
		{Name: "second", Price: 5},
		{Name: "third", Price: 5},
	}

	r := Build(products, 3)

	names := make([]string, 0, len(r.Top))
	for _, p := range r.Top {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"first", "second", "third"}, names)
	require.Equal(t, "cheap", r.Ranked[3].Name)
}

func TestBuildFewerThanTopN(t *testing.T) {
	products := []models.Product{{Name: "x", Price: 2}, {Name: "y", Price: 3}}

	r := Build(products, DefaultTopN)

	require.Len(t, r.Top, 2)
	require.Equal(t, "y", r.Top[0].Name)
}

func TestBuildCountsIncompleteProducts(t *testing.T) {
	products := []models.Product{
		{Name: "ok", Price: 12},
		{Name: "", Price: 8},
		{Name: "no price", Price: 0},
	}

	r := Build(products, 5)

	require.Equal(t, 2, r.Incomplete)
	require.Equal(t, 3, r.Count)
	require.Equal(t, 0.0, r.Min)
	require.InDelta(t, 20.0/3, r.Average, 1e-9)
}

func TestBuildNegativeTopN(t *testing.T) {
	r := Build([]models.Product{{Name: "a", Price: 1}}, -1)
	require.Empty(t, r.Top)
	require.Len(t, r.Ranked, 1)
}
