// Package visualization renders simulation results as charts and tables.
package visualization

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/runner"
)

// Format specifies the output format for result rendering.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Series colors.
const (
	colorPopulation = "blue"
	colorMaternal   = "red"
	colorPaternal   = "green"
)

// ChartOptions sizes the SVG chart.
type ChartOptions struct {
	Width  int
	Height int
}

// DefaultChartOptions returns an 800x400 chart.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 800, Height: 400}
}

const chartMargin = 50.0

// LineageRow is one row of the merged lineage table. A count of -1 means the
// lineage was not computed.
type LineageRow struct {
	Time     float64
	Paternal int
	Maternal int
}

// LineageRows merges the paternal and maternal trajectories on the union of
// their times. Each count is the step value in effect at that time.
func LineageRows(paternal, maternal []coalescence.Point) []LineageRow {
	times := make([]float64, 0, len(paternal)+len(maternal))
	for _, p := range paternal {
		times = append(times, p.Time)
	}
	for _, p := range maternal {
		times = append(times, p.Time)
	}
	slices.Sort(times)
	times = slices.Compact(times)

	rows := make([]LineageRow, 0, len(times))
	pi, mi := -1, -1
	for _, t := range times {
		for pi+1 < len(paternal) && paternal[pi+1].Time <= t {
			pi++
		}
		for mi+1 < len(maternal) && maternal[mi+1].Time <= t {
			mi++
		}
		rows = append(rows, LineageRow{Time: t, Paternal: countAt(paternal, pi), Maternal: countAt(maternal, mi)})
	}
	return rows
}

func countAt(points []coalescence.Point, i int) int {
	if i < 0 {
		return -1
	}
	return points[i].Lineages
}

type plot struct {
	opts         ChartOptions
	tmax, ymax   float64
	plotW, plotH float64
}

func (p plot) x(t float64) float64 { return chartMargin + t/p.tmax*p.plotW }
func (p plot) y(n float64) float64 { return chartMargin + p.plotH - n/p.ymax*p.plotH }

// RenderSVG draws the population samples and both lineage trajectories on a
// common calendar-time axis: lineage curves run backward from the horizon.
func RenderSVG(w io.Writer, res *runner.Result, opts ChartOptions) error {
	if res == nil {
		return fmt.Errorf("result is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultChartOptions()
	}

	p := plot{
		opts:  opts,
		tmax:  res.Params.Horizon,
		ymax:  1,
		plotW: float64(opts.Width) - 2*chartMargin,
		plotH: float64(opts.Height) - 2*chartMargin,
	}
	if p.tmax <= 0 {
		p.tmax = 1
	}
	for _, s := range res.Samples {
		p.ymax = max(p.ymax, float64(s.Population))
	}
	for _, pts := range [][]coalescence.Point{res.Paternal, res.Maternal} {
		for _, pt := range pts {
			p.ymax = max(p.ymax, float64(pt.Lineages))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	// Axes
	x0, y0 := p.x(0), p.y(0)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="black"/>`+"\n", x0, y0, p.x(p.tmax), y0)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="black"/>`+"\n", x0, y0, x0, p.y(p.ymax))
	for i := 0; i <= 4; i++ {
		t := p.tmax * float64(i) / 4
		n := p.ymax * float64(i) / 4
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="10" text-anchor="middle">%g</text>`+"\n", p.x(t), y0+15, roundTick(t))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="10" text-anchor="end">%g</text>`+"\n", x0-5, p.y(n)+3, roundTick(n))
	}

	if len(res.Samples) > 0 {
		pts := make([][2]float64, 0, len(res.Samples))
		for _, s := range res.Samples {
			pts = append(pts, [2]float64{s.Time, float64(s.Population)})
		}
		writePolyline(&b, p, colorPopulation, pts)
	}
	if len(res.Maternal) > 0 {
		writePolyline(&b, p, colorMaternal, stepPoints(res.Maternal, p.tmax))
	}
	if len(res.Paternal) > 0 {
		writePolyline(&b, p, colorPaternal, stepPoints(res.Paternal, p.tmax))
	}

	// Legend
	legend := []struct{ color, label string }{
		{colorPopulation, "population"},
		{colorMaternal, "maternal lineages"},
		{colorPaternal, "paternal lineages"},
	}
	for i, l := range legend {
		y := chartMargin/2 + float64(i)*12
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="11" fill="%s">%s</text>`+"\n",
			float64(opts.Width)-chartMargin-110, y, l.color, l.label)
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// stepPoints converts a backward trajectory into calendar-time vertices of
// a step curve, oldest first.
func stepPoints(points []coalescence.Point, horizon float64) [][2]float64 {
	back := make([][2]float64, 0, 2*len(points)+1)
	back = append(back, [2]float64{0, float64(points[0].Lineages)})
	for i := 1; i < len(points); i++ {
		t := min(points[i].Time, horizon)
		back = append(back,
			[2]float64{t, float64(points[i-1].Lineages)},
			[2]float64{t, float64(points[i].Lineages)})
	}
	back = append(back, [2]float64{horizon, float64(points[len(points)-1].Lineages)})

	out := make([][2]float64, len(back))
	for i, v := range back {
		out[len(back)-1-i] = [2]float64{horizon - v[0], v[1]}
	}
	return out
}

func writePolyline(b *strings.Builder, p plot, color string, pts [][2]float64) {
	fmt.Fprintf(b, `<polyline fill="none" stroke="%s" points="`, color)
	for i, v := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%.2f,%.2f", p.x(v[0]), p.y(v[1]))
	}
	b.WriteString(`"/>` + "\n")
}

func roundTick(v float64) float64 {
	if v >= 10 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v*10+0.5)) / 10
}

// htmlTemplateData holds data passed to the HTML template.
// Chart is SVG produced by RenderSVG from numeric data only.
type htmlTemplateData struct {
	RunID  string
	Result *runner.Result
	Chart  template.HTML
	Rows   []LineageRow
	Served bool
}

// RenderHTML produces a self-contained HTML report for a run.
func RenderHTML(runID string, res *runner.Result) ([]byte, error) {
	return renderHTML(runID, res, false)
}

func renderHTML(runID string, res *runner.Result, served bool) ([]byte, error) {
	var svg bytes.Buffer
	if err := RenderSVG(&svg, res, DefaultChartOptions()); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	tmplBytes, err := templates.ReadFile("templates/chart.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("chart").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	var buf bytes.Buffer
	data := htmlTemplateData{
		RunID:  runID,
		Result: res,
		Chart:  template.HTML(svg.String()), // #nosec G203
		Rows:   LineageRows(res.Paternal, res.Maternal),
		Served: served,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
