/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package journal is an append-only log of concluded test outcomes.  Every
// outcome is appended as soon as its test concludes, so the outcomes of an
// interrupted run survive the process.
package journal

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/wal"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
	"github.com/hyperledger-labs/stepharness/pkg/results"
)

// Entry is one concluded test, as journaled.
type Entry struct {
	RunID      string         `json:"run_id"`
	Test       int            `json:"test"`
	DurationMs int64          `json:"duration_ms"`
	Record     results.Record `json:"record"`
}

type Journal struct {
	mutex sync.Mutex
	log   *wal.Log
	runID string

	// Index of the next entry to append at the level of the underlying wal,
	// which starts counting at 1.
	idx uint64
}

// Open opens, or creates, the journal in the directory at path.  Entries
// appended through Observe are tagged with runID.
func Open(path, runID string) (*Journal, error) {
	log, err := wal.Open(path, &wal.Options{
		NoSync: true,
		NoCopy: true,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "could not open journal")
	}

	last, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.WithMessage(err, "could not read last index")
	}

	return &Journal{
		log:   log,
		runID: runID,
		idx:   last + 1,
	}, nil
}

func (j *Journal) IsEmpty() (bool, error) {
	firstIndex, err := j.log.FirstIndex()
	if err != nil {
		return false, errors.WithMessage(err, "could not read first index")
	}

	return firstIndex == 0, nil
}

// Observe implements driver.Observer, journaling every concluded test.
func (j *Journal) Observe(event driver.Event) error {
	if event.Type != driver.EventTestConcluded {
		return nil
	}

	return j.Append(&Entry{
		RunID:      j.runID,
		Test:       event.Test,
		DurationMs: event.Duration.Milliseconds(),
		Record:     event.Record,
	})
}

func (j *Journal) Append(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.WithMessage(err, "could not marshal")
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	if err := j.log.Write(j.idx, data); err != nil {
		return errors.WithMessagef(err, "could not write index %d", j.idx)
	}
	j.idx++
	return nil
}

// LoadAll invokes forEach on every journaled entry, oldest first.
func (j *Journal) LoadAll(forEach func(index uint64, entry *Entry)) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	firstIndex, err := j.log.FirstIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read first index")
	}

	if firstIndex == 0 {
		// Journal is empty
		return nil
	}

	lastIndex, err := j.log.LastIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read last index")
	}

	for i := firstIndex; i <= lastIndex; i++ {
		data, err := j.log.Read(i)
		if err != nil {
			return errors.WithMessagef(err, "could not read index %d", i)
		}

		entry := &Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return errors.WithMessagef(err, "could not decode index %d, is the journal corrupt?", i)
		}

		forEach(i, entry)
	}

	return nil
}

// Run returns the latest record of every test journaled for runID, in test
// order.  A test journaled more than once keeps its last record.
func (j *Journal) Run(runID string) ([]results.Record, error) {
	latest := map[int]results.Record{}
	count := 0
	err := j.LoadAll(func(_ uint64, entry *Entry) {
		if entry.RunID != runID {
			return
		}
		latest[entry.Test] = entry.Record
		if entry.Test+1 > count {
			count = entry.Test + 1
		}
	})
	if err != nil {
		return nil, err
	}

	var records []results.Record
	for i := 0; i < count; i++ {
		if record, ok := latest[i]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// Truncate drops every entry before index.
func (j *Journal) Truncate(index uint64) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	return j.log.TruncateFront(index)
}

func (j *Journal) Sync() error {
	return j.log.Sync()
}

func (j *Journal) Close() error {
	return j.log.Close()
}
