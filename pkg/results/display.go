/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package results

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
)

// Display presents results to a person once a suite completes.
type Display interface {
	Show(records []Record, format Format) error
}

// TableDisplay renders text results as a table and JSON results verbatim.
type TableDisplay struct {
	Output io.Writer
	Color  bool
}

func (d *TableDisplay) Show(records []Record, format Format) error {
	if format == FormatJSON {
		body, err := JSON(records)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(d.Output, body)
		return errors.WithMessage(err, "could not display results")
	}
	if format != FormatText {
		return errors.WithMessagef(ErrUnknownFormat, "%q", string(format))
	}

	t := table.NewWriter()
	t.SetOutputMirror(d.Output)
	t.SetTitle("Test Results")
	t.AppendHeader(table.Row{"#", "Test", "Steps", "Status", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Steps", Align: text.AlignRight},
		{Name: "Message", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, record := range records {
		message := ""
		if record.FailMessage != nil {
			message = *record.FailMessage
		}
		t.AppendRow(table.Row{i + 1, record.Title, len(record.Steps), d.status(record.Status), message})
	}

	s := Summarize(records)
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tests", s.Total), "", fmt.Sprintf("%d passed", s.Success), fmt.Sprintf("%d failed, %d timed out", s.Fail, s.Timeout)})

	switch {
	case !d.Color:
		t.SetStyle(table.StyleLight)
	case s.Passed():
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.Render()
	return nil
}

func (d *TableDisplay) status(s Status) string {
	label := StatusLabel(s)
	if !d.Color {
		return label
	}

	switch s {
	case Success:
		return text.FgGreen.Sprint(label)
	case Fail:
		return text.FgRed.Sprint(label)
	case Timeout:
		return text.FgYellow.Sprint(label)
	default:
		return text.FgHiBlack.Sprint(label)
	}
}
