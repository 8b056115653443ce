/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package harness

import (
	"github.com/pkg/errors"
)

// ErrUnknownFlag is returned for a letter with no meaning in a flag string.
var ErrUnknownFlag = errors.New("unknown flag")

// ParseFlags reads run options from a compact flag string: "x" exits once
// the suite completes, "s" shows the results.  Whitespace is ignored.
func ParseFlags(flags string) (RunOptions, error) {
	var opts RunOptions
	for _, c := range flags {
		switch c {
		case 'x':
			opts.ExitAfter = true
		case 's':
			opts.ShowResultsAfter = true
		case ' ', '\t':
		default:
			return RunOptions{}, errors.WithMessagef(ErrUnknownFlag, "%q in run flags %q", c, flags)
		}
	}
	return opts, nil
}

// ParseTestFlags reads test options from a compact flag string: "q" allows
// the application to quit during the test.
func ParseTestFlags(flags string) (TestOptions, error) {
	var opts TestOptions
	for _, c := range flags {
		switch c {
		case 'q':
			opts.AllowsQuit = true
		case ' ', '\t':
		default:
			return TestOptions{}, errors.WithMessagef(ErrUnknownFlag, "%q in test flags %q", c, flags)
		}
	}
	return opts, nil
}
