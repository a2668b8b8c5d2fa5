package report

import (
	"errors"
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-catalog/models"
	chart "github.com/wcharczuk/go-chart/v2"
)

// ErrNoBars is returned when there is nothing to plot.
var ErrNoBars = errors.New("report: no products to chart")

// ChartRenderer draws a titled chart of product prices.
type ChartRenderer interface {
	Render(title string, products []models.Product) error
}

// BarChart renders a PNG bar chart, one bar per product, to Path.
type BarChart struct {
	Path   string
	Width  int
	Height int
}

// ChartTitle is the title used for the top-n chart.
func ChartTitle(n int) string {
	return fmt.Sprintf("Top %d Most Expensive Products", n)
}

// Render implements ChartRenderer.
func (bc BarChart) Render(title string, products []models.Product) error {
	if len(products) == 0 {
		return ErrNoBars
	}

	bars := make([]chart.Value, 0, len(products))
	ceiling := 0.0
	for _, p := range products {
		bars = append(bars, chart.Value{Label: p.Name, Value: p.Price})
		if p.Price > ceiling {
			ceiling = p.Price
		}
	}
	if ceiling <= 0 {
		ceiling = 1
	}

	graph := chart.BarChart{
		Title:  title,
		Width:  bc.Width,
		Height: bc.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: barWidth(bc.Width, len(bars)),
		YAxis: chart.YAxis{
			Name:  "Price",
			Range: &chart.ContinuousRange{Min: 0, Max: ceiling * 1.1},
		},
		Bars: bars,
	}

	if err := ensureDir(bc.Path); err != nil {
		return err
	}
	f, err := os.Create(bc.Path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}

// barWidth spreads bars over roughly two thirds of the canvas.
func barWidth(width, bars int) int {
	if bars <= 0 {
		return 0
	}
	w := width * 2 / 3 / bars
	if w < 10 {
		w = 10
	}
	if w > 120 {
		w = 120
	}
	return w
}
