// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// gemm_perf measures the throughput of the GEMM executors on square matrices, for float32 and
// for int8 (with int32 accumulation), and compares float32 with gonum's BLAS implementation.
//
// Example:
//
//	$ go run ./cmd/gemm_perf -sizes=128,256,512 -hardware="threads=4" -plot=gemm.png
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/qgemm/pkg/core/dtypes"
	"github.com/gomlx/qgemm/pkg/core/hardware"
	"github.com/gomlx/qgemm/pkg/support/xerrors"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagSizes  = flag.String("sizes", "128,256,512,1024", "Comma-separated list of square matrix sizes to benchmark.")
	flagDTypes = flag.String("dtypes", "float32,int8", "Comma-separated list of input dtypes to benchmark: float32 and/or int8.")
	flagHW     = flag.String("hardware", "", fmt.Sprintf("Hardware configuration, e.g. \"l1=32KiB,threads=4\". "+
		"If empty, it defaults to $%s or the probed hardware.", hardware.QGEMM_HARDWARE))
	flagWarmup   = flag.Int("warmup", 10, "Number of warm-up runs, not timed.")
	flagRuns     = flag.Int("runs", 10, "Number of timed runs.")
	flagBaseline = flag.Bool("baseline", true, "Also benchmark gonum's blas32.Gemm for float32.")
	flagPlot     = flag.String("plot", "", "If set, saves a PNG plot of GFLOPS per matrix size to the given file.")
)

var titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	sizes, err := parseSizes(*flagSizes)
	if err != nil {
		klog.Fatalf("Invalid -sizes: %+v", err)
	}
	dtypesToRun, err := parseDTypes(*flagDTypes)
	if err != nil {
		klog.Fatalf("Invalid -dtypes: %+v", err)
	}
	if *flagRuns <= 0 || *flagWarmup < 0 {
		klog.Fatalf("Invalid -runs=%d or -warmup=%d", *flagRuns, *flagWarmup)
	}
	var hw hardware.Descriptor
	if *flagHW != "" {
		hw = must.M1(hardware.NewWithConfig(*flagHW))
	} else {
		hw = must.M1(hardware.New())
	}

	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
	fmt.Println(titleStyle.Render(fmt.Sprintf("GEMM performance: %s", hw)))

	cases := benchmarkCases(sizes, dtypesToRun, *flagBaseline)
	bar := progressbar.NewOptions(len(cases),
		progressbar.OptionSetDescription("benchmarking"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	results := make([]result, 0, len(cases))
	for _, c := range cases {
		bar.Describe(c.String())
		results = append(results, c.run(hw, *flagWarmup, *flagRuns))
		must.M(bar.Add(1))
	}
	must.M(bar.Finish())

	fmt.Println(resultsTable(results))
	if *flagPlot != "" {
		must.M(savePlot(*flagPlot, results))
		fmt.Printf("Plot saved to %q\n", *flagPlot)
	}
}

// parseSizes parses a comma-separated list of positive integers.
func parseSizes(list string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil || size <= 0 {
			return nil, xerrors.InvalidArgumentf("invalid matrix size %q", part)
		}
		sizes = append(sizes, size)
	}
	if len(sizes) == 0 {
		return nil, xerrors.InvalidArgumentf("no matrix sizes given in %q", list)
	}
	return sizes, nil
}

// parseDTypes parses a comma-separated list of input dtypes: only Float32 and Int8 are benchmarked.
func parseDTypes(list string) ([]dtypes.DType, error) {
	var result []dtypes.DType
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dtype, err := dtypes.FromName(part)
		if err != nil {
			return nil, err
		}
		if dtype != dtypes.Float32 && dtype != dtypes.Int8 {
			return nil, xerrors.InvalidArgumentf("dtype %s is not benchmarked, only float32 and int8", dtype)
		}
		result = append(result, dtype)
	}
	if len(result) == 0 {
		return nil, xerrors.InvalidArgumentf("no dtypes given in %q", list)
	}
	return result, nil
}
