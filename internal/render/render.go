package render

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/vettabase/query-viz/internal/metrics"
)

//go:embed templates/line_chart.plt
var lineChartTemplate string

// defaultPalette supplies line colors for series that do not declare one.
// Assignment cycles through the palette in series order.
var defaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// indexFileName is the chart index written next to the rendered images.
// One image filename per line, rewritten on every render pass.
const indexFileName = "_CHART_INDEX"

// Chart describes one rendered image and the series plotted on it.
type Chart struct {
	Name        string
	Title       string
	Queries     []string
	XLabel      string
	YLabel      string
	KeyPosition string
	Width       int
	Height      int
	LineWidth   int
}

// SnapshotSource provides the series data to plot.
type SnapshotSource interface {
	Snapshot() []metrics.Series
}

// Options holds tuning knobs for the pipeline.
type Options struct {
	// Binary is the gnuplot executable. Defaults to "gnuplot" on PATH.
	Binary string

	// Interval is the period between render passes when running the
	// background loop.
	Interval time.Duration
}

// Logger defines the logging interface for the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Pipeline renders charts from store snapshots by generating gnuplot
// scripts and data files, then invoking gnuplot. A chart with no data
// yet, or a failed gnuplot run, is left out of the index; everything
// else still renders.
type Pipeline struct {
	charts    []Chart
	source    SnapshotSource
	outputDir string
	opts      Options
	logger    Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	missingBinaryLogged bool
}

// New creates a pipeline writing into outputDir. The directory is
// created on the first render pass.
func New(charts []Chart, source SnapshotSource, outputDir string, opts Options) *Pipeline {
	if opts.Binary == "" {
		opts.Binary = "gnuplot"
	}
	if opts.Interval == 0 {
		opts.Interval = 30 * time.Second
	}
	return &Pipeline{
		charts:    charts,
		source:    source,
		outputDir: outputDir,
		opts:      opts,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the pipeline.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
}

// Start runs an immediate render pass, then repeats every interval
// until Stop is called or the context is cancelled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("render: already started")
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()

		if err := p.RenderAll(ctx); err != nil {
			p.logger.Error("render pass failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.RenderAll(ctx); err != nil {
					p.logger.Error("render pass failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// Stop cancels the render loop and waits for it to finish.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// RenderAll takes one snapshot and renders every chart from it, then
// rewrites the chart index with the images that rendered successfully.
func (p *Pipeline) RenderAll(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(p.outputDir, "data"), 0o755); err != nil {
		return fmt.Errorf("render: creating output dir: %w", err)
	}

	byName := make(map[string]metrics.Series)
	for _, series := range p.source.Snapshot() {
		byName[series.Meta.Name] = series
	}

	var rendered []string
	for _, chart := range p.charts {
		image, err := p.renderChart(ctx, chart, byName)
		if err != nil {
			p.logChartError(chart, err)
			continue
		}
		if image != "" {
			rendered = append(rendered, image)
		}
	}

	return p.writeIndex(rendered)
}

// logChartError reports a chart failure; a missing gnuplot binary is
// reported once, not on every pass.
func (p *Pipeline) logChartError(chart Chart, err error) {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		p.mu.Lock()
		logged := p.missingBinaryLogged
		p.missingBinaryLogged = true
		p.mu.Unlock()
		if !logged {
			p.logger.Warn("gnuplot not found, charts disabled until it appears",
				"binary", p.opts.Binary,
			)
		}
		return
	}
	p.logger.Error("rendering chart", "chart", chart.Name, "error", err)
}

// renderChart writes the chart's data files and script, then runs
// gnuplot. Returns the image filename, or "" when the chart has no data
// to plot yet.
func (p *Pipeline) renderChart(ctx context.Context, chart Chart, byName map[string]metrics.Series) (string, error) {
	type plotted struct {
		series   metrics.Series
		dataFile string
		color    string
	}

	var plots []plotted
	var origin time.Time
	for i, queryName := range chart.Queries {
		series, ok := byName[queryName]
		if !ok || len(series.Samples) == 0 {
			continue
		}
		color := series.Meta.Color
		if color == "" {
			color = defaultPalette[i%len(defaultPalette)]
		}
		plots = append(plots, plotted{series: series, color: color})
		if first := series.Samples[0].Time; origin.IsZero() || first.Before(origin) {
			origin = first
		}
	}
	if len(plots) == 0 {
		return "", nil
	}

	chartBase := NormalizeName(chart.Name)
	for i := range plots {
		name := fmt.Sprintf("%s-%s.dat", chartBase, NormalizeName(plots[i].series.Meta.Name))
		path := filepath.Join(p.outputDir, "data", name)
		if err := writeDataFile(path, plots[i].series.Samples, origin); err != nil {
			return "", err
		}
		plots[i].dataFile = filepath.Join("data", name)
	}

	image := chartBase + ".png"
	lineWidth := chart.LineWidth
	if lineWidth <= 0 {
		lineWidth = 2
	}
	var styleLines, plotLines []string
	for i, plot := range plots {
		styleLines = append(styleLines, fmt.Sprintf(
			"set style line %d linecolor rgb '%s' linewidth %d", i+1, plot.color, lineWidth))
		label := plot.series.Meta.Description
		if label == "" {
			label = plot.series.Meta.Name
		}
		plotLines = append(plotLines, fmt.Sprintf(
			"'%s' using 1:2 with lines linestyle %d title '%s'",
			plot.dataFile, i+1, escapeQuotes(label)))
	}

	script := buildScript(lineChartTemplate, map[string]string{
		"TERMINAL":     fmt.Sprintf("pngcairo size %d,%d", chart.Width, chart.Height),
		"OUTPUT_FILE":  image,
		"TITLE":        escapeQuotes(chart.Title),
		"XLABEL":       escapeQuotes(chart.XLabel),
		"YLABEL":       escapeQuotes(chart.YLabel),
		"KEY_POSITION": chart.KeyPosition,
		"STYLE_LINES":  strings.Join(styleLines, "\n"),
		"PLOT_LINES":   strings.Join(plotLines, ", "),
	})

	scriptPath := filepath.Join(p.outputDir, chartBase+".plt")
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("render: writing script: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.opts.Binary, filepath.Base(scriptPath))
	cmd.Dir = p.outputDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("render: gnuplot %s: %w: %s",
			chart.Name, err, strings.TrimSpace(string(out)))
	}

	p.logger.Debug("chart rendered", "chart", chart.Name, "image", image)
	return image, nil
}

// writeIndex rewrites the chart index atomically via rename.
func (p *Pipeline) writeIndex(images []string) error {
	content := strings.Join(images, "\n")
	if len(images) > 0 {
		content += "\n"
	}
	tmp := filepath.Join(p.outputDir, indexFileName+".tmp")
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("render: writing index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(p.outputDir, indexFileName)); err != nil {
		return fmt.Errorf("render: replacing index: %w", err)
	}
	return nil
}

// writeDataFile writes "elapsed-seconds value" lines for gnuplot.
func writeDataFile(path string, samples []metrics.Sample, origin time.Time) error {
	var b strings.Builder
	for _, sample := range samples {
		fmt.Fprintf(&b, "%.3f %g\n", sample.Time.Sub(origin).Seconds(), sample.Value)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("render: writing data file: %w", err)
	}
	return nil
}

// buildScript substitutes {{VAR}} placeholders in the template.
func buildScript(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

var (
	specialCharPattern = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)
	separatorPattern   = regexp.MustCompile(`[\s_]+`)
	dashRunPattern     = regexp.MustCompile(`-+`)
)

// NormalizeName turns an arbitrary chart or query name into a safe
// filename stem: special characters removed, spaces and underscores
// become dashes, dash runs collapsed, lowercase.
func NormalizeName(name string) string {
	out := specialCharPattern.ReplaceAllString(name, "")
	out = separatorPattern.ReplaceAllString(out, "-")
	out = dashRunPattern.ReplaceAllString(out, "-")
	out = strings.ToLower(strings.Trim(out, "-"))
	if out == "" {
		return "chart"
	}
	return out
}

// escapeQuotes protects single quotes inside gnuplot string literals.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
