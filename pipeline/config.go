package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/HashSteck/chicken-count/classifier"
	"github.com/HashSteck/chicken-count/detector"
)

// Config collects the settings for both pipeline variants so one file can
// configure a whole installation.
type Config struct {
	Detector   detector.Config   `json:"detector"`
	Classifier classifier.Config `json:"classifier"`
}

func fptr(v float64) *float64 {
	return &v
}

// DefaultConfig returns the built-in defaults: count birds above 50%
// confidence, decide "Chicken" above 70%.
func DefaultConfig() Config {
	return Config{
		Detector: detector.Config{
			TargetLabel: detector.DefaultTargetLabel,
			Threshold:   fptr(detector.DefaultThreshold),
		},
		Classifier: classifier.Config{
			Labels:            []string{"No Chicken", "Chicken"},
			PositiveLabel:     "Chicken",
			DecisionThreshold: fptr(classifier.DefaultDecisionThreshold),
			InputSize:         classifier.DefaultInputSize,
		},
	}
}

// LoadConfig reads a JSON config file over the defaults.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return conf, errors.Wrapf(err, "cannot read config %s", path)
	}
	if err := json.Unmarshal(body, &conf); err != nil {
		return conf, errors.Wrapf(err, "cannot parse config %s", path)
	}
	return conf, nil
}
