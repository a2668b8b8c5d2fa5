package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/stretchr/testify/require"
)

func TestBarChartRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "top.png")
	bc := BarChart{Path: path, Width: 800, Height: 600}

	err := bc.Render(ChartTitle(2), []models.Product{
		{Name: "Long dress", Price: 299.99},
		{Name: "Short dress", Price: 149.5},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected a PNG file")
}

func TestBarChartRenderNoProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.png")
	bc := BarChart{Path: path, Width: 800, Height: 600}

	require.ErrorIs(t, bc.Render(ChartTitle(5), nil), ErrNoBars)
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestChartTitle(t *testing.T) {
	require.Equal(t, "Top 5 Most Expensive Products", ChartTitle(5))
}
