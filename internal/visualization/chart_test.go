package visualization

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/runner"
)

func testResult() *runner.Result {
	p := runner.DefaultParams()
	p.Founders = 5
	p.Horizon = 100
	p.SampleInterval = 50
	return &runner.Result{
		Params:     p,
		Population: 3,
		Males:      1,
		Females:    2,
		Samples:    []runner.Sample{{Time: 0, Population: 5}, {Time: 50, Population: 4}, {Time: 100, Population: 3}},
		Paternal:   []coalescence.Point{{Time: 0, Lineages: 3}, {Time: 30, Lineages: 2}, {Time: 60, Lineages: 1}},
		Maternal:   []coalescence.Point{{Time: 0, Lineages: 3}, {Time: 40, Lineages: 2}},
	}
}

func TestLineageRows(t *testing.T) {
	res := testResult()

	got := LineageRows(res.Paternal, res.Maternal)
	want := []LineageRow{
		{Time: 0, Paternal: 3, Maternal: 3},
		{Time: 30, Paternal: 2, Maternal: 3},
		{Time: 40, Paternal: 2, Maternal: 2},
		{Time: 60, Paternal: 1, Maternal: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LineageRows() = %v, want %v", got, want)
	}

	got = LineageRows(res.Paternal, nil)
	if len(got) != 3 || got[0].Maternal != -1 {
		t.Errorf("LineageRows(paternal only) = %v", got)
	}

	if rows := LineageRows(nil, nil); len(rows) != 0 {
		t.Errorf("LineageRows(nil, nil) = %v, want empty", rows)
	}
}

func TestLineageRows_SharedFusionTime(t *testing.T) {
	pat := []coalescence.Point{{Time: 0, Lineages: 4}, {Time: 10, Lineages: 3}, {Time: 10, Lineages: 2}}
	got := LineageRows(pat, nil)
	if len(got) != 2 || got[1].Paternal != 2 {
		t.Errorf("LineageRows() = %v, want the last count at a repeated time", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testResult()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "time,paternal,maternal\n" +
		"0,3,3\n" +
		"30,2,3\n" +
		"40,2,2\n" +
		"60,1,2\n" +
		"\n" +
		"time,population\n" +
		"0,5\n" +
		"50,4\n" +
		"100,3\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteCSV_MissingLineage(t *testing.T) {
	res := testResult()
	res.Maternal = nil
	res.Samples = nil

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "time,paternal,maternal\n0,3,\n30,2,\n60,1,\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() = %q, want %q", got, want)
	}
}

func TestStepPoints(t *testing.T) {
	pts := []coalescence.Point{{Time: 0, Lineages: 3}, {Time: 30, Lineages: 2}}
	got := stepPoints(pts, 100)
	want := [][2]float64{{0, 2}, {70, 2}, {70, 3}, {100, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stepPoints() = %v, want %v", got, want)
	}
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSVG(&buf, testResult(), DefaultChartOptions()); err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	svg := buf.String()

	if !strings.HasPrefix(svg, "<svg ") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("output is not a single svg element")
	}
	for _, color := range []string{colorPopulation, colorMaternal, colorPaternal} {
		if !strings.Contains(svg, `<polyline fill="none" stroke="`+color+`"`) {
			t.Errorf("missing %s polyline", color)
		}
	}
	if !strings.Contains(svg, `width="800" height="400"`) {
		t.Error("default size not applied")
	}
}

func TestRenderSVG_OnlyComputedSeries(t *testing.T) {
	res := testResult()
	res.Maternal = nil

	var buf bytes.Buffer
	if err := RenderSVG(&buf, res, ChartOptions{}); err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if strings.Contains(buf.String(), `stroke="`+colorMaternal+`" points`) {
		t.Error("maternal polyline drawn without a maternal trajectory")
	}
	if err := RenderSVG(&buf, nil, ChartOptions{}); err == nil {
		t.Error("RenderSVG(nil) should fail")
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("abc123", testResult())
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	out := string(html)
	for _, want := range []string{"pedigree run abc123", "<svg ", "<td>60</td><td>1</td><td>2</td>"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderHTML() missing %q", want)
		}
	}
	if strings.Contains(out, "/chart.csv") {
		t.Error("static report should not link to server endpoints")
	}
}
