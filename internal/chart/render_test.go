package chart

import (
	"bytes"
	"commute-forecast/internal/domain"
	"errors"
	"strings"
	"testing"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
)

func sampleTable() *domain.CommuteTable {
	table := &domain.CommuteTable{Route: domain.Route{Name: "morning"}}

	// Monday 26th to Friday 30th, 06:00 to 07:00.
	for day := 26; day <= 30; day++ {
		for m := 0; m <= 60; m += 5 {
			t := time.Date(2026, 10, day, 6, m, 0, 0, time.UTC)
			rec := domain.CommuteRecord{GridEntry: domain.NewGridEntry(t)}
			rec.SetDuration(1500 + day*10 + m*6)
			table.Records = append(table.Records, rec)
		}
	}
	return table
}

func TestRenderOneSeriesPerWeekday(t *testing.T) {
	table := sampleTable()
	table.Records[0].Fail(errors.New("no route"))

	fig, err := Render(table, "Commute time - Home to Work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fig.Chart.Series) != 5 {
		t.Fatalf("series = %d, want 5", len(fig.Chart.Series))
	}

	want := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	for i, s := range fig.Chart.Series {
		cs, ok := s.(gochart.ContinuousSeries)
		if !ok {
			t.Fatalf("series %d has type %T", i, s)
		}
		if cs.Name != want[i] {
			t.Errorf("series %d name = %q, want %q", i, cs.Name, want[i])
		}
		if i > 0 && cs.Style.StrokeColor == fig.Chart.Series[0].(gochart.ContinuousSeries).Style.StrokeColor {
			t.Errorf("series %d shares the first series color", i)
		}
	}

	// The failed Monday 06:00 row is left out.
	if n := len(fig.Chart.Series[0].(gochart.ContinuousSeries).XValues); n != 12 {
		t.Errorf("monday points = %d, want 12", n)
	}

	if len(fig.Chart.XAxis.Ticks) != 13 {
		t.Errorf("ticks = %d, want 13", len(fig.Chart.XAxis.Ticks))
	}
	if got := fig.Chart.XAxis.Ticks[0].Label; got != "06:00:00" {
		t.Errorf("first tick = %q, want 06:00:00", got)
	}
	if fig.Chart.XAxis.Style.TextRotationDegrees != tickRotation {
		t.Errorf("tick rotation = %v", fig.Chart.XAxis.Style.TextRotationDegrees)
	}
	if fig.Chart.Title != "Commute time - Home to Work" {
		t.Errorf("title = %q", fig.Chart.Title)
	}
}

func TestRenderWritesImages(t *testing.T) {
	fig, err := Render(sampleTable(), "Commute time - Work to Home")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var png bytes.Buffer
	if err := fig.WritePNG(&png); err != nil {
		t.Fatalf("png: %v", err)
	}
	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Errorf("output is not a PNG")
	}

	var svg bytes.Buffer
	if err := fig.WriteSVG(&svg); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(svg.String(), "<svg") {
		t.Errorf("output is not an SVG")
	}
}

func TestRenderSingleDepartureTime(t *testing.T) {
	table := &domain.CommuteTable{}
	for day := 26; day <= 30; day++ {
		rec := domain.CommuteRecord{GridEntry: domain.NewGridEntry(time.Date(2026, 10, day, 6, 0, 0, 0, time.UTC))}
		rec.SetDuration(1800)
		table.Records = append(table.Records, rec)
	}

	fig, err := Render(table, "single")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := fig.WritePNG(&buf); err != nil {
		t.Fatalf("png: %v", err)
	}
}

func TestRenderNoData(t *testing.T) {
	table := sampleTable()
	for i := range table.Records {
		table.Records[i].Fail(errors.New("denied"))
	}

	if _, err := Render(table, "empty"); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if _, err := Render(nil, "nil"); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}
