// Copyright 2022 IBM Corp. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package profiling collects runtime profiles over a suite run.
package profiling

import (
	"os"
	"runtime"
	"runtime/pprof"
	"sort"

	"github.com/pkg/errors"
	logger "github.com/rs/zerolog/log"
)

// Profiler dumps the profiles started through Start once stopped.
type Profiler struct {
	// Stores which profiler (key) should be dumped in which file (value).
	outputs map[string]string

	// The open file to which pprof continuously writes CPU profile data.
	cpuProfileFile *os.File
}

func New() *Profiler {
	return &Profiler{
		outputs: make(map[string]string),
	}
}

// Start starts the profiler name, whose data is written to outFileName
// once Stop is called.  For valid profiler names see the "runtime/pprof"
// package documentation; "cpu" designates CPU profiling.  The rate is used
// as the "block" and "mutex" profile rate and fraction, and ignored for
// other names.
func (p *Profiler) Start(name string, outFileName string, rate int) error {
	if _, ok := p.outputs[name]; ok {
		return errors.Errorf("profiler %s already started", name)
	}

	switch name {
	case "block":
		runtime.SetBlockProfileRate(rate)
	case "mutex":
		runtime.SetMutexProfileFraction(rate)
	case "cpu":
		f, err := os.Create(outFileName)
		if err != nil {
			return errors.WithMessagef(err, "could not create CPU profile %s", outFileName)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return errors.WithMessage(err, "could not start CPU profile")
		}
		p.cpuProfileFile = f
	default:
		if pprof.Lookup(name) == nil {
			return errors.Errorf("unknown profile %s", name)
		}
	}

	p.outputs[name] = outFileName
	logger.Info().Str("name", name).Str("fileName", outFileName).Msg("Started profiler.")
	return nil
}

// Stop stops every profiler started by Start and dumps their data into
// their files.  The first error is returned, after every profile has been
// attempted.
func (p *Profiler) Stop() error {
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)

	names := make([]string, 0, len(p.outputs))
	for name := range p.outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		fileName := p.outputs[name]
		var err error
		if name == "cpu" {
			pprof.StopCPUProfile()
			err = errors.WithMessage(p.cpuProfileFile.Close(), "could not close CPU profile output")
			p.cpuProfileFile = nil
		} else {
			err = dumpProfile(name, fileName)
		}

		if err != nil {
			logger.Error().Err(err).Str("name", name).Str("fileName", fileName).Msg("Could not write profile data.")
			if firstErr == nil {
				firstErr = err
			}
		} else {
			logger.Info().Str("name", name).Str("fileName", fileName).Msg("Profile data written.")
		}
		delete(p.outputs, name)
	}

	return firstErr
}

// Saves the data of profiler name to file named fileName.
func dumpProfile(name string, fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return errors.WithMessage(err, "could not open profile output file")
	}

	if err := pprof.Lookup(name).WriteTo(f, 1); err != nil {
		f.Close()
		return errors.WithMessage(err, "failed to write profile data to file")
	}

	return errors.WithMessage(f.Close(), "could not close profile output file")
}
