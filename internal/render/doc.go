// Package render turns stored series into chart images with gnuplot.
//
// # Purpose
//
// Each render pass takes one snapshot of the store and produces, per
// chart, a data file per plotted series, a gnuplot script from the
// embedded template, and a PNG image. The pass finishes by rewriting
// the chart index file, which lists the images that rendered
// successfully in this pass. Consumers such as the dashboard read the
// index instead of globbing the output directory.
//
// gnuplot is an external dependency. When the binary is missing the
// pipeline logs a warning once and keeps running; charts simply stay
// absent from the index until gnuplot appears.
//
// # Thread Safety
//
// Start, Stop and RenderAll are safe for concurrent use, but render
// passes are expected to run from the single background loop.
package render
