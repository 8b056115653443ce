/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resultstore keeps the results of past suite runs, so that a run
// can be compared against the ones before it.
package resultstore

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/stepharness/pkg/results"
)

// Run is the outcome of one complete suite run.
type Run struct {
	ID      string           `json:"id"`
	Started time.Time        `json:"started"`
	Records []results.Record `json:"records"`
}

var runPrefix = []byte("run-")

// Run keys sort by start time, so iterating the prefix lists runs oldest first.
func runKey(started time.Time, id string) []byte {
	return []byte(fmt.Sprintf("run-%020d.%s", started.UnixNano(), id))
}

func idKey(id string) []byte {
	return []byte(fmt.Sprintf("id-%s", id))
}

type Store struct {
	db *badger.DB
}

// Open opens the store in dirPath.  An empty dirPath keeps the store in
// memory.
func Open(dirPath string) (*Store, error) {
	var badgerOpts badger.Options
	if dirPath == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(dirPath).WithSyncWrites(false).WithTruncate(true)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open backing db")
	}

	return &Store{
		db: db,
	}, nil
}

func (s *Store) PutRun(run *Run) error {
	if run.ID == "" {
		return errors.New("run has no id")
	}

	data, err := json.Marshal(run)
	if err != nil {
		return errors.WithMessage(err, "could not marshal run")
	}

	key := runKey(run.Started, run.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idKey(run.ID), key)
	})
}

// GetRun returns the run with the given id, or nil if there is none.
func (s *Store) GetRun(id string) (*Run, error) {
	var valCopy []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}

		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err = txn.Get(key)
		if err != nil {
			return err
		}

		valCopy, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "could not read run %s", id)
	}

	return decodeRun(valCopy)
}

// ListRuns returns every stored run, oldest first.
func (s *Store) ListRuns() ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(runPrefix); it.ValidForPrefix(runPrefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			run, err := decodeRun(data)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithMessage(err, "could not list runs")
	}

	return runs, nil
}

// Previous returns the latest run started before the run with the given
// id, or nil if there is none.
func (s *Store) Previous(id string) (*Run, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	var previous *Run
	for _, run := range runs {
		if run.ID == id {
			return previous, nil
		}
		previous = run
	}
	return previous, nil
}

func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(idKey(id))
	})
}

func (s *Store) Sync() error {
	return s.db.Sync()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decodeRun(data []byte) (*Run, error) {
	run := &Run{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, errors.WithMessage(err, "could not decode run")
	}
	return run, nil
}
