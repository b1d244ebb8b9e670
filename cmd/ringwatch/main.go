// ringwatch is an offline diagnostic that renders a ring buffer's
// fill-level trace to an SVG plot, for inspecting overflow and growth
// behavior captured from a running pipeline.
//
// The input is a simple two-column CSV: tick (OBE_CLOCK ticks since
// start), fill bytes. A running pipeline can produce this by logging
// ringbuf.Ring.Used() on every Write call; this tool is deliberately
// decoupled from that instrumentation so it can be pointed at a trace
// captured any way the operator likes.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func main() {
	in := flag.String("in", "", "path to a tick,fill CSV trace")
	out := flag.String("out", "ring-trace.svg", "path to write the SVG plot")
	title := flag.String("title", "ring fill level", "plot title")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "ringwatch: -in is required")
		os.Exit(1)
	}

	pts, err := readTrace(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ringwatch:", err)
		os.Exit(1)
	}

	if err := renderPlot(*title, pts, *out); err != nil {
		fmt.Fprintln(os.Stderr, "ringwatch:", err)
		os.Exit(1)
	}
}

// readTrace parses a tick,fill CSV file into plotter points.
func readTrace(path string) (plotter.XYs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open trace: %w", err)
	}
	defer f.Close()

	var pts plotter.XYs
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed trace line: %q", line)
		}
		tick, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad tick value: %w", err)
		}
		fill, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad fill value: %w", err)
		}
		pts = append(pts, plotter.XY{X: tick, Y: fill})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("trace %s contained no samples", path)
	}
	return pts, nil
}

// renderPlot draws pts as a line plot and writes it as an SVG to out.
func renderPlot(title string, pts plotter.XYs, out string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "OBE_CLOCK ticks"
	p.Y.Label.Text = "fill (bytes)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("could not build line plotter: %w", err)
	}
	p.Add(line)
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 4*vg.Inch, out); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}
