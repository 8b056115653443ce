/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resultstore

import (
	"github.com/hyperledger-labs/stepharness/pkg/results"
)

// Change is a test whose status differs between two runs.
type Change struct {
	Title  string
	Before results.Status
	After  results.Status
}

// Compare matches records by title.  A regression is a test which succeeded
// before and does not anymore; a fix is the opposite.  Tests present in only
// one of the runs are ignored.
func Compare(before, after []results.Record) (regressions, fixes []Change) {
	previous := make(map[string]results.Status, len(before))
	for _, record := range before {
		previous[record.Title] = record.Status
	}

	for _, record := range after {
		status, ok := previous[record.Title]
		if !ok || status == record.Status {
			continue
		}

		change := Change{Title: record.Title, Before: status, After: record.Status}
		switch {
		case status == results.Success:
			regressions = append(regressions, change)
		case record.Status == results.Success:
			fixes = append(fixes, change)
		}
	}

	return regressions, fixes
}
