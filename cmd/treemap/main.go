package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/treemap/internal/config"
	"github.com/eugenenazirov/treemap/internal/layoutio"
	"github.com/eugenenazirov/treemap/internal/logging"
	"github.com/eugenenazirov/treemap/internal/treemap"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "treemap: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	app := kingpin.New("treemap", "Compute a squarified treemap layout for a list of weights")
	input := app.Arg("input", "File holding the weights (reads stdin when omitted or \"-\")").String()
	boundsStr := app.Flag("bounds", "Target rectangle as x,y,width,height or width,height").Short('b').Default("0,0,800,600").String()
	algorithm := app.Flag("algorithm", "Layout algorithm").Short('a').Default(string(treemap.AlgorithmSquarify)).
		Enum(string(treemap.AlgorithmSquarify), string(treemap.AlgorithmSlice))
	format := app.Flag("format", "Output format").Short('f').Default(string(layoutio.FormatJSON)).Enum(layoutio.Formats()...)
	withStats := app.Flag("stats", "Include aspect ratio statistics (json and yaml only)").Bool()
	verbose := app.Flag("verbose", "Log progress to stderr").Short('v').Bool()

	if _, err := app.Parse(args); err != nil {
		return err
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.WithConsole(), logging.WithLevel(level))
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	bounds, err := config.ParseBounds(*boundsStr)
	if err != nil {
		return fmt.Errorf("parse bounds: %w", err)
	}

	src := stdin
	if *input != "" && *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	}

	weights, err := layoutio.ReadWeights(src)
	if err != nil {
		return err
	}
	logger.Debug("weights loaded", zap.Int("count", len(weights)), zap.String("source", sourceName(*input)))

	layouter, err := treemap.New(treemap.Algorithm(*algorithm))
	if err != nil {
		return err
	}

	start := time.Now()
	rects, err := layouter.Layout(treemap.Float64s(weights), bounds)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	logger.Debug("layout computed",
		zap.String("algorithm", *algorithm),
		zap.Int("rects", len(rects)),
		zap.Duration("duration", time.Since(start)),
	)

	doc := layoutio.Document{
		Algorithm: *algorithm,
		Bounds:    bounds,
		Rects:     rects,
	}
	if *withStats {
		stats := treemap.Stats(rects)
		doc.Stats = &stats
	}

	return layoutio.Write(stdout, layoutio.Format(*format), doc)
}

func sourceName(input string) string {
	if input == "" || input == "-" {
		return "stdin"
	}
	return input
}
