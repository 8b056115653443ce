/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
)

// Format selects how records are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for a format other than text or json.
var ErrUnknownFormat = errors.New("unknown results format")

// ParseFormat accepts "text" and "json", as well as the single letter forms
// "T" and "J".
func ParseFormat(name string) (Format, error) {
	switch name {
	case "text", "T", "t":
		return FormatText, nil
	case "json", "J", "j":
		return FormatJSON, nil
	default:
		return "", errors.WithMessagef(ErrUnknownFormat, "%q", name)
	}
}

// Render formats the records.
func Render(records []Record, format Format) (string, error) {
	switch format {
	case FormatText:
		return Text(records), nil
	case FormatJSON:
		return JSON(records)
	default:
		return "", errors.WithMessagef(ErrUnknownFormat, "%q", string(format))
	}
}

// JSON renders records as an indented JSON array.
func JSON(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", errors.WithMessage(err, "could not marshal results")
	}
	return string(data), nil
}

// ParseJSON reads records rendered by JSON.
func ParseJSON(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.WithMessage(err, "could not unmarshal results")
	}
	return records, nil
}

// StatusLabel is the upper case label of a status used by the text format.
func StatusLabel(s Status) string {
	if s == NotRun {
		return "NOT RUN"
	}
	return strings.ToUpper(s.String())
}

// Text renders one line per record, followed by the fail message and the
// exception trace when present.
func Text(records []Record) string {
	var buf bytes.Buffer
	for _, record := range records {
		fmt.Fprintf(&buf, "[%s] %s\n", StatusLabel(record.Status), record.Title)
		if record.FailMessage != nil && *record.FailMessage != "" {
			fmt.Fprintf(&buf, "         %s\n", *record.FailMessage)
		}
		if record.Exception != nil {
			for _, line := range strings.Split(strings.TrimRight(*record.Exception, "\n"), "\n") {
				fmt.Fprintf(&buf, "           %s\n", line)
			}
		}
	}

	s := Summarize(records)
	fmt.Fprintf(&buf, "\nSummary: %d passed, %d failed, %d timed out, %d not run\n", s.Success, s.Fail, s.Timeout, s.NotRun)
	return buf.String()
}

// WriteFile renders the records to path.
func WriteFile(path string, records []Record, format Format) error {
	text, err := Render(records, format)
	if err != nil {
		return err
	}

	if err := ioutil.WriteFile(path, []byte(text), 0644); err != nil {
		return errors.WithMessagef(err, "could not write results to %s", path)
	}
	return nil
}
