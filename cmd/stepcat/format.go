/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"strings"

	"github.com/ttacon/chalk"

	"github.com/hyperledger-labs/stepharness/pkg/eventlog"
)

// textFormat renders the fields of an entry which are set for its type.
func textFormat(entry *eventlog.Entry) string {
	fields := []string{
		fmt.Sprintf("type=%s", entry.Type),
	}
	if entry.RunID != "" {
		fields = append(fields, fmt.Sprintf("run_id=%s", entry.RunID))
	}
	fields = append(fields,
		fmt.Sprintf("time=%d", entry.LoopTimeMs),
		fmt.Sprintf("test=%d", entry.Test),
		fmt.Sprintf("title=%q", entry.Title),
	)

	switch entry.Type {
	case "StepInvoked":
		fields = append(fields, fmt.Sprintf("step=%d", entry.Step), fmt.Sprintf("step_name=%q", entry.StepName))
	case "StepReturned":
		fields = append(fields, fmt.Sprintf("step=%d", entry.Step), fmt.Sprintf("step_name=%q", entry.StepName), fmt.Sprintf("action=%s", entry.Action))
	case "TestConcluded":
		fields = append(fields, fmt.Sprintf("status=%s", entry.Status), fmt.Sprintf("duration_ms=%d", entry.DurationMs))
		if entry.FailMessage != "" {
			fields = append(fields, fmt.Sprintf("fail_message=%q", entry.FailMessage))
		}
	}

	return "[" + strings.Join(fields, " ") + "]"
}

// Creates and returns a prefix tag for event display using entry metadata
func metaTag(index uint64, entry *eventlog.Entry) string {
	boldGreen := chalk.Green.NewStyle().WithTextStyle(chalk.Bold)
	boldCyan := chalk.Cyan.NewStyle().WithTextStyle(chalk.Bold)
	return fmt.Sprintf("%s %s",
		boldGreen.Style(fmt.Sprintf("[ %s ]", entry.Type)),
		boldCyan.Style(fmt.Sprintf("[ Test #%d ] [ Time _%dms ] [ Index #%d ]", entry.Test, entry.LoopTimeMs, index)),
	)
}

func statusStyle(status string) chalk.Style {
	switch status {
	case "success":
		return chalk.Green.NewStyle().WithTextStyle(chalk.Bold)
	case "timeout":
		return chalk.Yellow.NewStyle().WithTextStyle(chalk.Bold)
	default:
		return chalk.Red.NewStyle().WithTextStyle(chalk.Bold)
	}
}

func prettyFormat(index uint64, entry *eventlog.Entry) string {
	whiteText := chalk.White.NewStyle().WithTextStyle(chalk.Bold)

	var body string
	switch entry.Type {
	case "TestBegan":
		body = whiteText.Style(entry.Title)
	case "StepInvoked":
		body = whiteText.Style(fmt.Sprintf("%d %s", entry.Step, entry.StepName))
	case "StepReturned":
		body = whiteText.Style(fmt.Sprintf("%d %s -> %s", entry.Step, entry.StepName, entry.Action))
	case "TestConcluded":
		body = statusStyle(entry.Status).Style(strings.ToUpper(entry.Status))
		if entry.FailMessage != "" {
			body += " " + whiteText.Style(entry.FailMessage)
		}
	}

	return fmt.Sprintf("%s %s \n", metaTag(index, entry), body)
}
