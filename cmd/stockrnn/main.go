// Command stockrnn trains a recurrent forecaster on a price CSV and scores it
// on the held-out tail of the series.
//
//	stockrnn [run|train|predict] -file AIG.csv [-config cfg.json] [flags]
//
// run trains, checkpoints and evaluates (default). train stops after the
// checkpoint. predict evaluates an existing checkpoint.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/stockrnn/internal/config"
	"github.com/FlavioCFOliveira/stockrnn/internal/diag"
	"github.com/FlavioCFOliveira/stockrnn/internal/layer"
	"github.com/FlavioCFOliveira/stockrnn/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && (args[0] == "run" || args[0] == "train" || args[0] == "predict") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := parse(cmd, args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger, err := diag.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger.WithFields(logrus.Fields{
		"command": cmd,
		"device":  layer.GetDefaultDevice().String(),
	}).Debug("starting")

	switch cmd {
	case "train":
		_, err = pipeline.Train(cfg, logger)
	case "predict":
		_, err = pipeline.Evaluate(cfg, logger)
	default:
		_, err = pipeline.Run(cfg, logger)
	}
	if err != nil {
		logger.WithError(err).Error(cmd + " failed")
		return 1
	}
	return 0
}

// parse applies defaults, then the optional JSON file, then explicit flags.
func parse(cmd string, args []string, stderr io.Writer) (config.Config, error) {
	cfg := config.Defaults()
	fs := flag.NewFlagSet("stockrnn "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON configuration file")
	config.RegisterFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if *configPath == "" {
		return cfg, nil
	}
	if err := config.LoadInto(*configPath, &cfg); err != nil {
		return config.Config{}, err
	}
	// Parse again so command line values win over the file.
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
