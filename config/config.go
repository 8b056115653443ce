/*
Copyright IBM Corp. 2021 All Rights Reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

		 http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the configuration of a suite run from YAML.
package config

import (
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/stepharness/pkg/harness"
	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/results"
)

// Names of the supported logger backends.
const (
	LoggerConsole = "console"
	LoggerZerolog = "zerolog"
	LoggerZap     = "zap"
)

type Config struct {
	TimeoutMs int  `yaml:"timeoutMs"` // per test timeout, in milliseconds
	Exit      bool `yaml:"exit"`      // stop the loop once the suite completes
	Show      bool `yaml:"show"`      // show the results once the suite completes

	ResultsFormat string `yaml:"resultsFormat"` // text or json
	ResultsPath   string `yaml:"resultsPath"`   // written once the suite completes, if set

	EventLog    string `yaml:"eventLog"`    // gzip event log of the driver, if set
	Journal     string `yaml:"journal"`     // directory of the outcome journal, if set
	HistoryDir  string `yaml:"historyDir"`  // directory of the result history, if set
	MetricsFile string `yaml:"metricsFile"` // prometheus textfile, if set

	LogLevel string `yaml:"logLevel"`
	Logger   string `yaml:"logger"` // console, zerolog or zap
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	return &Config{
		TimeoutMs:     5000,
		Exit:          true,
		ResultsFormat: string(results.FormatText),
		LogLevel:      "info",
		Logger:        LoggerZerolog,
	}
}

// Parse reads a YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.WithMessage(err, "could not unmarshal config")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func LoadFile(configFileName string) (*Config, error) {
	data, err := ioutil.ReadFile(configFileName)
	if err != nil {
		return nil, errors.WithMessagef(err, "could not read config file %s", configFileName)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid config file %s", configFileName)
	}

	return c, nil
}

func (c *Config) Validate() error {
	if c.TimeoutMs <= 0 {
		return errors.Errorf("timeoutMs must be positive, got %d", c.TimeoutMs)
	}

	if _, err := results.ParseFormat(c.ResultsFormat); err != nil {
		return errors.WithMessage(err, "invalid resultsFormat")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.WithMessage(err, "invalid logLevel")
	}

	switch c.Logger {
	case LoggerConsole, LoggerZerolog, LoggerZap:
	default:
		return errors.Errorf("unknown logger %q", c.Logger)
	}

	return nil
}

func (c *Config) Format() results.Format {
	format, _ := results.ParseFormat(c.ResultsFormat)
	return format
}

func (c *Config) RunOptions() harness.RunOptions {
	return harness.RunOptions{
		ExitAfter:        c.Exit,
		ShowResultsAfter: c.Show,
	}
}

// NewLogger builds the configured logger, writing to output.
func (c *Config) NewLogger(output io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	switch c.Logger {
	case LoggerConsole:
		return logging.NewWriterLogger(level, output), nil
	case LoggerZerolog:
		logger := zerolog.New(output).
			Level(logging.ZerologLevel(level)).
			With().Timestamp().Logger()
		return logging.Zerolog(logger), nil
	case LoggerZap:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(output),
			logging.ZapLevel(level),
		)
		return logging.Zap(zap.New(core)), nil
	default:
		return nil, errors.Errorf("unknown logger %q", c.Logger)
	}
}
