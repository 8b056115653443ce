/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package counter

import (
	"github.com/hyperledger-labs/stepharness/pkg/loop"
)

// Label displays a line of text.
type Label struct {
	text string
}

func (l *Label) Text() string {
	return l.text
}

func (l *Label) SetText(text string) {
	l.text = text
}

// Button runs OnClick when pressed.
type Button struct {
	Caption string
	OnClick func()

	loop loop.Loop
}

// Invoke presses the button programmatically; OnClick runs right away.
func (b *Button) Invoke() {
	if b.OnClick != nil {
		b.OnClick()
	}
}

// Click simulates a press by the user: OnClick runs once the loop delivers
// the event.
func (b *Button) Click() {
	b.loop.After(0, b.Invoke)
}

// Window holds the widgets of the application.  OnClose runs when the user
// closes the window.
type Window struct {
	Title   string
	Label   *Label
	Button  *Button
	OnClose func()

	destroyed bool
}

// Close simulates the user closing the window through the window manager.
func (w *Window) Close() {
	if w.OnClose != nil {
		w.OnClose()
	}
}

func (w *Window) Destroy() {
	w.destroyed = true
}

func (w *Window) Destroyed() bool {
	return w.destroyed
}
