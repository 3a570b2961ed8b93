// Package main is the chicken-count command: run a detection or
// classification model over images and report what was found.
package main

import (
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	goutils "go.viam.com/utils"

	"github.com/HashSteck/chicken-count/classifier"
	"github.com/HashSteck/chicken-count/detector"
	"github.com/HashSteck/chicken-count/pipeline"
)

const (
	// Flags.
	flagConfig            = "config"
	flagModel             = "model"
	flagLabels            = "labels"
	flagTarget            = "target"
	flagThreshold         = "threshold"
	flagPositive          = "positive"
	flagDecisionThreshold = "decision-threshold"
	flagInputSize         = "input-size"
	flagNumThreads        = "num-threads"
	flagStrict            = "strict"
	flagDebug             = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		golog.Global().Fatal(err)
	}
}

func newApp() *cli.App {
	var logger golog.Logger

	return &cli.App{
		Name:  "chicken-count",
		Usage: "detect objects in images, or classify images with a binary model",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			conf := golog.NewDevelopmentLoggerConfig()
			if c.Bool(flagDebug) {
				conf.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			} else {
				conf.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
			}
			logger = zap.Must(conf.Build()).Sugar()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "find and count target-class objects in an image or a directory of images",
				ArgsUsage: "<image file or directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagConfig, Usage: "JSON config file"},
					&cli.StringFlag{Name: flagModel, Usage: "detection model file or URL"},
					&cli.StringFlag{Name: flagLabels, Usage: "label file, one class per line"},
					&cli.StringFlag{Name: flagTarget, Usage: "class to count", Value: detector.DefaultTargetLabel},
					&cli.Float64Flag{Name: flagThreshold, Usage: "minimum confidence", Value: detector.DefaultThreshold},
					&cli.IntFlag{Name: flagNumThreads, Usage: "inference threads (0 = all CPUs)"},
					&cli.BoolFlag{Name: flagStrict, Usage: "exit non-zero if any image fails"},
				},
				Action: func(c *cli.Context) error {
					return runDetect(c, logger)
				},
			},
			{
				Name:      "classify",
				Usage:     "run the binary classifier over an image or a directory of images",
				ArgsUsage: "<image file or directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagConfig, Usage: "JSON config file"},
					&cli.StringFlag{Name: flagModel, Usage: "classification model file or URL"},
					&cli.StringSliceFlag{Name: flagLabels, Usage: "class labels in model output order"},
					&cli.StringFlag{Name: flagPositive, Usage: "positive class label"},
					&cli.Float64Flag{Name: flagDecisionThreshold, Usage: "decision confidence", Value: classifier.DefaultDecisionThreshold},
					&cli.IntFlag{Name: flagInputSize, Usage: "square model input resolution", Value: classifier.DefaultInputSize},
					&cli.IntFlag{Name: flagNumThreads, Usage: "inference threads (0 = all CPUs)"},
					&cli.BoolFlag{Name: flagStrict, Usage: "exit non-zero if any image fails"},
				},
				Action: func(c *cli.Context) error {
					return runClassify(c, logger)
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (pipeline.Config, error) {
	if path := c.String(flagConfig); path != "" {
		return pipeline.LoadConfig(path)
	}
	return pipeline.DefaultConfig(), nil
}

func runDetect(c *cli.Context, logger golog.Logger) error {
	if c.NArg() < 1 {
		return cli.ShowSubcommandHelp(c)
	}
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	dConf := conf.Detector
	if v := c.String(flagModel); v != "" {
		dConf.ModelLocation = v
	}
	if v := c.String(flagLabels); v != "" {
		dConf.LabelPath = v
	}
	if c.IsSet(flagTarget) {
		dConf.TargetLabel = c.String(flagTarget)
	}
	if c.IsSet(flagThreshold) {
		v := c.Float64(flagThreshold)
		dConf.Threshold = &v
	}
	if c.IsSet(flagNumThreads) {
		dConf.NumThreads = c.Int(flagNumThreads)
	}

	det, err := detector.New(c.Context, dConf, logger)
	if err != nil {
		return errors.Wrap(err, "cannot set up detector")
	}
	defer goutils.UncheckedErrorFunc(det.Close)

	return runBatch(c, pipeline.NewDetectProcessor(det), logger)
}

func runClassify(c *cli.Context, logger golog.Logger) error {
	if c.NArg() < 1 {
		return cli.ShowSubcommandHelp(c)
	}
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	cConf := conf.Classifier
	if v := c.String(flagModel); v != "" {
		cConf.ModelLocation = v
	}
	if v := c.StringSlice(flagLabels); len(v) > 0 {
		cConf.Labels = v
	}
	if v := c.String(flagPositive); v != "" {
		cConf.PositiveLabel = v
	}
	if c.IsSet(flagDecisionThreshold) {
		v := c.Float64(flagDecisionThreshold)
		cConf.DecisionThreshold = &v
	}
	if c.IsSet(flagInputSize) {
		cConf.InputSize = c.Int(flagInputSize)
	}
	if c.IsSet(flagNumThreads) {
		cConf.NumThreads = c.Int(flagNumThreads)
	}

	cls, err := classifier.New(c.Context, cConf, logger)
	if err != nil {
		return errors.Wrap(err, "cannot set up classifier")
	}
	defer goutils.UncheckedErrorFunc(cls.Close)

	return runBatch(c, pipeline.NewClassifyProcessor(cls), logger)
}

func runBatch(c *cli.Context, proc pipeline.Processor, logger golog.Logger) error {
	target := c.Args().First()
	info, err := os.Stat(target)
	if err != nil {
		return errors.Wrapf(err, "cannot read input path %s", target)
	}

	paths := []string{target}
	if info.IsDir() {
		paths, err = pipeline.CollectImagePaths(target)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintf(c.App.Writer, "no images found in %s\n", target)
			return nil
		}
	}

	summary := pipeline.ProcessMany(c.Context, proc, paths, logger)
	for _, entry := range summary.Entries {
		if entry.Result == nil {
			fmt.Fprintf(c.App.ErrWriter, "failed: %s: %v\n", entry.Path, entry.Err)
			continue
		}
		entry.Result.WriteReport(c.App.Writer, entry.Path)
	}
	if len(paths) > 1 {
		fmt.Fprintf(c.App.Writer, "\nprocessed %d images, %d positive\n", summary.Succeeded, summary.Positive)
	}

	if c.Bool(flagStrict) {
		return summary.Err()
	}
	return nil
}
