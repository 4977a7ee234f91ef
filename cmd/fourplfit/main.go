package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kacperjurak/gofourpl/internal/processing"
	"github.com/kacperjurak/gofourpl/internal/synth"
	"github.com/kacperjurak/gofourpl/pkg/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

type cliFlags struct {
	configPath  string
	cpuProfile  string
	metricsFile string
}

func newFlagSet(cfg *config.Config, cli *cliFlags, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("fourplfit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cli.configPath, "config", cli.configPath, "YAML or JSON configuration file")
	fs.StringVar(&cli.cpuProfile, "cpuprofile", cli.cpuProfile, "Write a CPU profile to this file")
	fs.StringVar(&cli.metricsFile, "metrics", cli.metricsFile, "Write fit metrics in Prometheus text format to this file")
	fs.StringVar(&cfg.File, "f", cfg.File, "Measurement data file (x y per line)")
	fs.UintVar(&cfg.CutLow, "b", cfg.CutLow, "Cut X of beginning observations from a file")
	fs.UintVar(&cfg.CutHigh, "e", cfg.CutHigh, "Cut X of ending observations from a file")
	fs.StringVar(&cfg.Method, "m", cfg.Method, "Optimization method: powell, nelder-mead, lbfgs, bfgs, newton, levenberg-marquardt or all")
	fs.Float64Var(&cfg.Tolerance, "tol", cfg.Tolerance, "Relative objective tolerance")
	fs.IntVar(&cfg.MaxIterations, "i", cfg.MaxIterations, "Maximum iterations (0 selects the default)")
	fs.UintVar(&cfg.Threads, "threads", cfg.Threads, "Methods run concurrently with -m all (0 runs all at once)")
	fs.Var(&cfg.InitValues, "v", "Parameters init values: min,max,hill,ic50")
	fs.Var(&cfg.PredictX, "x", "Predict the response at this input (repeatable)")
	fs.Var(&cfg.PredictY, "y", "Inverse predict the input for this response (repeatable)")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Report responses outside the fitted range as errors")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "Fit generated example data instead of a file")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "Print the report as JSON")
	fs.BoolVar(&cfg.Quiet, "q", cfg.Quiet, "Quiet mode")
	return fs
}

// parseFlags applies args over the defaults, or over -config when given, so
// command line flags always win over the file.
func parseFlags(args []string, stderr io.Writer) (*config.Config, *cliFlags, error) {
	cfg := config.DefaultConfig()
	cli := &cliFlags{}
	fs := newFlagSet(cfg, cli, stderr)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if cli.configPath == "" {
		return cfg, cli, cfg.Validate()
	}

	fileCfg, err := config.Load(cli.configPath)
	if err != nil {
		return nil, nil, err
	}
	// Repeated flags append, so list values given on the command line
	// replace the file's instead of extending them.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			fileCfg.InitValues = nil
		case "x":
			fileCfg.PredictX = nil
		case "y":
			fileCfg.PredictY = nil
		}
	})
	if err := newFlagSet(fileCfg, cli, stderr).Parse(args); err != nil {
		return nil, nil, err
	}
	return fileCfg, cli, fileCfg.Validate()
}

func loadObservations(cfg *config.Config) (x, y []float64, err error) {
	if cfg.Demo {
		x = synth.DefaultX()
		if len(cfg.PredictY) == 0 {
			cfg.PredictY = synth.DefaultResponses()
		}
		return x, synth.Generate(x, cfg.Synth), nil
	}
	if cfg.File == "" {
		return nil, nil, errors.New("no data: pass -f FILE or -demo")
	}
	x, y, err = parseFile(cfg.File)
	if err != nil {
		return nil, nil, err
	}
	return cut(x, y, cfg.CutLow, cfg.CutHigh)
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, cli, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if cli.cpuProfile != "" {
		f, err := os.Create(cli.cpuProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	var logger *log.Logger
	if !cfg.Quiet {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	x, y, err := loadObservations(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	processor := processing.NewProcessor(logger).WithMetrics(processing.NewMetrics(reg))
	report, err := processor.Process(x, y, cfg)
	if cli.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(cli.metricsFile, reg); werr != nil {
			fmt.Fprintf(stderr, "failed to write metrics: %v\n", werr)
		}
	}
	if err != nil {
		return err
	}

	if cfg.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(stdout, report)
	return nil
}

func printReport(w io.Writer, report processing.Report) {
	for _, p := range report.Parameters {
		fmt.Fprintln(w, p)
	}
	fmt.Fprintln(w, report.RSquaredText)
	if !report.Converged {
		fmt.Fprintf(w, "Warning: %s stopped with status %s\n", report.Method, report.Status)
	}
	for _, p := range report.Predictions {
		fmt.Fprintf(w, "Y(%v) = %v\n", float64(p.X), float64(p.Y))
	}
	for _, p := range report.InversePredictions {
		if p.Error != "" {
			fmt.Fprintf(w, "X(%v): %s\n", float64(p.Y), p.Error)
			continue
		}
		fmt.Fprintf(w, "X(%v) = %v\n", float64(p.Y), float64(p.X))
	}
}
