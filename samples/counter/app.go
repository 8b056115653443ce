/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package counter is a small loop bound application, a window with a label
// showing a count and a button incrementing it, together with the suite
// exercising it.
package counter

import (
	"strconv"

	"github.com/hyperledger-labs/stepharness/pkg/loop"
)

type App struct {
	loop  loop.Loop
	quit  func()
	count int

	Window *Window
}

// New creates the application.  quit is invoked when the user closes the
// window.
func New(l loop.Loop, quit func()) *App {
	return &App{
		loop: l,
		quit: quit,
	}
}

// Entry builds a fresh window.
func (a *App) Entry() {
	a.count = 0

	a.Window = &Window{
		Title: "Counter",
		Label: &Label{text: "0"},
	}
	a.Window.Button = &Button{
		Caption: "Increment",
		OnClick: a.increment,
		loop:    a.loop,
	}
	a.Window.OnClose = a.close
}

// Reset tears the window down.
func (a *App) Reset() {
	if a.Window != nil {
		a.Window.Destroy()
		a.Window = nil
	}
}

func (a *App) Count() int {
	return a.count
}

func (a *App) increment() {
	a.count++
	a.Window.Label.SetText(strconv.Itoa(a.count))
}

func (a *App) close() {
	a.Window.Destroy()
	a.quit()
}
