/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package counter

import (
	"github.com/hyperledger-labs/stepharness/pkg/harness"
	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

// Quitter is the part of the harness the closing window test relies on.
type Quitter interface {
	QuitRequested() bool
}

type test struct {
	title string
	steps []steps.Step
	flags string
}

// Register adds the counter suite to h and installs the reset function of
// the app.
func Register(h *harness.Harness, app *App) error {
	h.SetResetFn(app.Reset)

	for _, t := range suite(app, h) {
		opts, err := harness.ParseTestFlags(t.flags)
		if err != nil {
			return err
		}
		if err := h.AddTest(t.title, t.steps, opts); err != nil {
			return err
		}
	}
	return nil
}

func expectLabel(app *App, expected string) steps.Action {
	if text := app.Window.Label.Text(); text != expected {
		return steps.Failf("Expected '%s', got '%s'", expected, text)
	}
	return steps.Success()
}

func suite(app *App, q Quitter) []test {
	return []test{
		{
			title: "Initial state is zero",
			steps: []steps.Step{
				steps.Named("check initial value", func() steps.Action {
					if app.Window.Label.Text() == "0" {
						return steps.Success()
					}
					return steps.Fail("Initial value should be 0")
				}),
			},
		},
		{
			title: "Increment once",
			steps: []steps.Step{
				steps.Named("click button", func() steps.Action {
					app.Window.Button.Invoke()
					return steps.Next()
				}),
				steps.Named("verify count", func() steps.Action {
					return expectLabel(app, "1")
				}),
			},
		},
		{
			title: "Increment three times",
			steps: []steps.Step{
				steps.Named("click three times", func() steps.Action {
					app.Window.Button.Invoke()
					app.Window.Button.Invoke()
					app.Window.Button.Invoke()
					return steps.Next()
				}),
				steps.Named("verify count", func() steps.Action {
					return expectLabel(app, "3")
				}),
			},
		},
		{
			title: "Clicks are delivered by the loop",
			steps: []steps.Step{
				steps.Named("click", func() steps.Action {
					app.Window.Button.Click()
					if app.Count() != 0 {
						return steps.Fail("click was handled before the loop delivered it")
					}
					return steps.NextAfter(10)
				}),
				steps.Named("verify count", func() steps.Action {
					return expectLabel(app, "1")
				}),
			},
		},
		{
			title: "Visual: slow increment",
			steps: []steps.Step{
				steps.Named("show window", func() steps.Action {
					return steps.NextAfter(500)
				}),
				steps.Named("click and wait 1", func() steps.Action {
					app.Window.Button.Invoke()
					return steps.NextAfter(400)
				}),
				steps.Named("click and wait 2", func() steps.Action {
					app.Window.Button.Invoke()
					return steps.NextAfter(400)
				}),
				steps.Named("click and wait 3", func() steps.Action {
					app.Window.Button.Invoke()
					return steps.NextAfter(400)
				}),
				steps.Named("verify and pause", func() steps.Action {
					if app.Window.Label.Text() == "3" {
						return steps.SuccessAfter(500)
					}
					return steps.Failf("Expected '3', got '%s'", app.Window.Label.Text())
				}),
			},
		},
		{
			title: "Closing the window quits",
			flags: "q",
			steps: []steps.Step{
				steps.Named("close window", func() steps.Action {
					app.Window.Close()
					return steps.Next()
				}),
				steps.Named("verify quit", func() steps.Action {
					if !q.QuitRequested() {
						return steps.Fail("closing the window did not request to quit")
					}
					if !app.Window.Destroyed() {
						return steps.Fail("window was not destroyed")
					}
					return steps.Success()
				}),
			},
		},
	}
}
