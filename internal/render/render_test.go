package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vettabase/query-viz/internal/metrics"
)

type staticSource struct {
	series []metrics.Series
}

func (s *staticSource) Snapshot() []metrics.Series {
	return s.series
}

func sampleSeries(name string, n int) metrics.Series {
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	series := metrics.Series{Meta: metrics.SeriesMeta{Name: name, Description: name + " series"}}
	for i := 0; i < n; i++ {
		series.Samples = append(series.Samples, metrics.Sample{
			Time:  base.Add(time.Duration(i) * time.Second),
			Value: float64(i * 10),
		})
	}
	return series
}

// fakeGnuplot writes an executable stand-in for gnuplot so render runs
// do not depend on the real binary.
func fakeGnuplot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gnuplot")
	script := "#!/bin/sh\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake gnuplot: %v", err)
	}
	return path
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Threads Connected", want: "threads-connected"},
		{input: "CPU %", want: "cpu"},
		{input: "a--b__c", want: "a-b-c"},
		{input: "  spaced  ", want: "spaced"},
		{input: "MixedCase123", want: "mixedcase123"},
		{input: "!!!", want: "chart"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildScript(t *testing.T) {
	script := buildScript(lineChartTemplate, map[string]string{
		"TERMINAL":     "pngcairo size 800,600",
		"OUTPUT_FILE":  "threads.png",
		"TITLE":        "Threads",
		"XLABEL":       "seconds",
		"YLABEL":       "count",
		"KEY_POSITION": "top right",
		"STYLE_LINES":  "set style line 1 linecolor rgb '#1f77b4' linewidth 2",
		"PLOT_LINES":   "'data/t.dat' using 1:2 with lines linestyle 1 title 'Threads'",
	})

	if strings.Contains(script, "{{") {
		t.Errorf("script still contains placeholders:\n%s", script)
	}
	for _, want := range []string{
		"set terminal pngcairo size 800,600",
		"set output 'threads.png'",
		"set key top right",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestRenderAll_ProducesDataScriptAndIndex(t *testing.T) {
	dir := t.TempDir()
	source := &staticSource{series: []metrics.Series{sampleSeries("threads", 3)}}
	chart := Chart{
		Name:        "Thread Activity",
		Title:       "Thread Activity",
		Queries:     []string{"threads"},
		XLabel:      "seconds",
		YLabel:      "threads",
		KeyPosition: "top left",
		Width:       800,
		Height:      600,
	}

	p := New([]Chart{chart}, source, dir, Options{Binary: fakeGnuplot(t)})
	if err := p.RenderAll(context.Background()); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "data", "thread-activity-threads.dat"))
	if err != nil {
		t.Fatalf("reading data file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("data file has %d lines, want 3", len(lines))
	}
	if lines[0] != "0.000 0" {
		t.Errorf("first data line = %q, want %q", lines[0], "0.000 0")
	}
	if lines[2] != "2.000 20" {
		t.Errorf("last data line = %q, want %q", lines[2], "2.000 20")
	}

	script, err := os.ReadFile(filepath.Join(dir, "thread-activity.plt"))
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	if strings.Contains(string(script), "{{") {
		t.Errorf("script contains unsubstituted placeholders:\n%s", script)
	}

	index, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	if got := strings.TrimSpace(string(index)); got != "thread-activity.png" {
		t.Errorf("index = %q, want %q", got, "thread-activity.png")
	}
}

func TestRenderAll_SkipsChartsWithoutData(t *testing.T) {
	dir := t.TempDir()
	source := &staticSource{series: []metrics.Series{
		{Meta: metrics.SeriesMeta{Name: "empty"}},
	}}
	charts := []Chart{
		{Name: "empty chart", Queries: []string{"empty"}, Width: 800, Height: 600},
		{Name: "missing chart", Queries: []string{"nosuch"}, Width: 800, Height: 600},
	}

	p := New(charts, source, dir, Options{Binary: fakeGnuplot(t)})
	if err := p.RenderAll(context.Background()); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	index, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	if got := strings.TrimSpace(string(index)); got != "" {
		t.Errorf("index = %q, want empty", got)
	}
}

func TestRenderAll_MissingGnuplot(t *testing.T) {
	dir := t.TempDir()
	source := &staticSource{series: []metrics.Series{sampleSeries("threads", 2)}}
	chart := Chart{Name: "threads", Queries: []string{"threads"}, Width: 800, Height: 600}

	p := New([]Chart{chart}, source, dir, Options{
		Binary: filepath.Join(t.TempDir(), "no-such-gnuplot"),
	})

	// The pass must survive and still write an empty index.
	if err := p.RenderAll(context.Background()); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}
	index, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	if got := strings.TrimSpace(string(index)); got != "" {
		t.Errorf("index = %q, want empty when gnuplot is missing", got)
	}
}

func TestRenderAll_PaletteAssignment(t *testing.T) {
	dir := t.TempDir()
	colored := sampleSeries("colored", 2)
	colored.Meta.Color = "#123456"
	plain := sampleSeries("plain", 2)
	source := &staticSource{series: []metrics.Series{colored, plain}}
	chart := Chart{
		Name:    "mixed",
		Queries: []string{"colored", "plain"},
		Width:   800,
		Height:  600,
	}

	p := New([]Chart{chart}, source, dir, Options{Binary: fakeGnuplot(t)})
	if err := p.RenderAll(context.Background()); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	script, err := os.ReadFile(filepath.Join(dir, "mixed.plt"))
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	if !strings.Contains(string(script), "rgb '#123456'") {
		t.Errorf("script missing declared color:\n%s", script)
	}
	if !strings.Contains(string(script), "rgb '"+defaultPalette[1]+"'") {
		t.Errorf("script missing palette color for undeclared series:\n%s", script)
	}
}

func TestRenderAll_PaletteStableWhenEarlierSeriesEmpty(t *testing.T) {
	dir := t.TempDir()
	second := sampleSeries("second", 2)
	source := &staticSource{series: []metrics.Series{
		{Meta: metrics.SeriesMeta{Name: "first"}},
		second,
	}}
	chart := Chart{
		Name:    "stable",
		Queries: []string{"first", "second"},
		Width:   800,
		Height:  600,
	}

	p := New([]Chart{chart}, source, dir, Options{Binary: fakeGnuplot(t)})
	if err := p.RenderAll(context.Background()); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	script, err := os.ReadFile(filepath.Join(dir, "stable.plt"))
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	// Colors follow the declared query position, so "second" keeps its
	// slot even while "first" has no samples yet.
	if !strings.Contains(string(script), "rgb '"+defaultPalette[1]+"'") {
		t.Errorf("second series lost its palette slot:\n%s", script)
	}
	if strings.Contains(string(script), "rgb '"+defaultPalette[0]+"'") {
		t.Errorf("empty series' palette slot was reassigned:\n%s", script)
	}
}

func TestEscapeQuotes(t *testing.T) {
	if got := escapeQuotes("it's"); got != "it''s" {
		t.Errorf("escapeQuotes() = %q, want %q", got, "it''s")
	}
}
