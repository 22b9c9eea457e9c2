// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// savePlot saves a PNG (or any format supported by gonum/plot, by the file extension) plot with one
// line of GFLOPS per matrix size for each dtype and implementation.
func savePlot(path string, results []result) error {
	p := plot.New()
	p.Title.Text = "GEMM throughput"
	p.X.Label.Text = "matrix size"
	p.Y.Label.Text = "GFLOPS"
	p.Y.Min = 0

	var names []string
	lines := make(map[string]plotter.XYs)
	for _, r := range results {
		name := r.impl + " " + r.dtype.String()
		if _, found := lines[name]; !found {
			names = append(names, name)
		}
		lines[name] = append(lines[name], plotter.XY{X: float64(r.size), Y: r.gflops})
	}
	args := make([]any, 0, 2*len(names))
	for _, name := range names {
		args = append(args, name, lines[name])
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return errors.Wrap(err, "failed to create plot lines")
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", path)
	}
	return nil
}
