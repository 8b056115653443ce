/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/results"
)

// UnexpectedQuitMessage is the fail message of a test during which the
// application requested to quit without the test allowing it.
const UnexpectedQuitMessage = "app called quit() unexpectedly during test"

// Quit is the single way for application code to request termination.
// Without an active test, the loop is stopped.  During a test which allows
// quitting, the request is only recorded, for a later step to verify through
// QuitRequested.  During any other test, the test fails right away.
func (d *Driver) Quit() {
	t := d.Active()
	if t == nil {
		d.logger.Log(logging.LevelInfo, "quit requested, stopping loop")
		d.loop.Stop()
		return
	}

	d.quitRequested = true
	if t.AllowsQuit {
		d.logger.Log(logging.LevelDebug, "quit requested during test", "test", t.Index)
		return
	}

	d.logger.Log(logging.LevelWarn, "unexpected quit during test", "test", t.Index, "step", d.stepIndex)
	d.conclude(results.Fail, UnexpectedQuitMessage, "")
}
