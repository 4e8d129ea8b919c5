// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"

	"github.com/princeton-ecs/motioncorrect/internal/errs"
	"github.com/princeton-ecs/motioncorrect/internal/motioncorrect"
	"github.com/princeton-ecs/motioncorrect/internal/registration"
	"github.com/princeton-ecs/motioncorrect/internal/source"
	"github.com/princeton-ecs/motioncorrect/internal/statusserver"
	"github.com/princeton-ecs/motioncorrect/internal/warp"
)

const version = "0.1.0"

var totalMiBs = memory.TotalMemory() / 1024 / 1024

var out = flag.String("out", "out.tif", "save the corrected reference template to `file`")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var job = flag.String("job", "", "JSON parameter file to run instead of the flags below")

var maxShift = flag.Int("maxShift", 5, "maximum per-axis pixel shift to search")
var maxIter = flag.Int("maxIter", 10, "maximum number of registration iterations")
var stopBelowShift = flag.Float64("stopBelowShift", 0.05, "stop iterating once the largest per-frame shift change drops below this many pixels")
var methodCorr = flag.Int64("methodCorr", int64(registration.NormCorrCoeffNormed), "correlation metric: 0=SSD 1=SSDNormed 2=XCorr 3=NormXCorr 4=CorrCoeff 5=NormCorrCoeffNormed")
var methodInterp = flag.Int64("methodInterp", int64(warp.Linear), "interpolation: 0=nearest 1=linear 2=cubic 3=area 4=lanczos4 5=integer shift")
var subpixel = flag.Bool("subpixel", true, "refine integer shifts to sub-pixel precision")
var blackTolerance = flag.Float64("blackTolerance", 0, "per-pixel probability threshold for black-frame detection, 0=disabled")
var medianRebin = flag.Int("medianRebin", 1, "rebin this many consecutive frames before taking the per-bin median for the template")
var maxThreads = flag.Int("maxThreads", 0, "worker goroutines for per-frame registration, 0=auto from logical core count")

var port = flag.String("port", "", "address the serve command listens on for the HTTP status API, e.g. :8080; empty uses gin's default address")

func main() {
	var logWriter io.Writer = os.Stdout
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `motioncorrect
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (correct|serve|legal|version) (frame0.tif ... frameN.tif)

Commands:
  correct  Run motion correction over the given TIFF frames
  serve    Serve the HTTP status API for background jobs
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		logFile, err := os.Create(*log)
		if err != nil {
			panic(fmt.Sprintf("Unable to open log file %s\n", *log))
		}
		logWriter = io.MultiWriter(logWriter, logFile)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "correct":
		err = runCorrect(args[1:], logWriter)

	case "serve":
		store := statusserver.NewStore()
		fmt.Fprintf(logWriter, "Serving status API on %s (physical memory %d MiB, %d logical cores, AVX2=%v)\n",
			*port, totalMiBs, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2())
		err = statusserver.Serve(store, *port)

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}

	elapsed := time.Now().Sub(start).Round(time.Millisecond * 10)
	fmt.Fprintf(logWriter, "\nDone after %s\n", elapsed)
}

func workerCount() int {
	if *maxThreads > 0 {
		return *maxThreads
	}
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}

func runCorrect(paths []string, logWriter io.Writer) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: correct requires at least one input TIFF path", errs.ErrUsage)
	}

	params := motioncorrect.NewParamsDefault()
	if *job != "" {
		content, err := os.ReadFile(*job)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(content, params); err != nil {
			return err
		}
	} else {
		params.MaxShift = *maxShift
		params.MaxIter = *maxIter
		params.StopBelowShift = *stopBelowShift
		params.MethodCorr = registration.CorrMethod(*methodCorr)
		params.MethodInterp = warp.Interpolation(*methodInterp)
		params.Subpixel = *subpixel
		params.BlackTolerance = *blackTolerance
		params.MedianRebin = *medianRebin
	}
	params.MaxThreads = workerCount()

	fs, err := source.NewFileListSource(paths)
	if err != nil {
		return err
	}
	hdr := fs.Header()
	fmt.Fprintf(logWriter, "Loaded %d frames of %dx%d (%d-bit %v)\n", hdr.Frames, hdr.Width, hdr.Height, hdr.BitsPerSample, hdr.SampleFormat)

	frames := make([][]float32, 0, hdr.Frames)
	for {
		f, ok := fs.NextFrame()
		if !ok {
			break
		}
		frames = append(frames, f)
	}

	m, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Running with parameters:\n%s\n", string(m))

	result, err := motioncorrect.Run(context.Background(), frames, hdr.Width, hdr.Height, params, logWriter)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Converged after %d iterations\n", result.Iteration)

	var min, max float32
	for i, v := range result.Reference {
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
	}
	return source.WriteTIFF16(*out, result.Reference, hdr.Width, hdr.Height, min, max)
}
