/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package eventlog records the events of the test driver to a gzip
// compressed stream of size prefixed protobuf messages, and reads such
// streams back.
package eventlog

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
)

type RecorderOpt interface{}

type timeSourceOpt func() int64

// TimeSourceOpt can be used to override the default time source
// for a recorder.  The default time source will timestamp with the
// time, in milliseconds since the recorder was created.
func TimeSourceOpt(source func() int64) RecorderOpt {
	return timeSourceOpt(source)
}

type compressionLevelOpt int

// DefaultCompressionLevel is used for event capture when not overridden.
const DefaultCompressionLevel = gzip.DefaultCompression

// CompressionLevelOpt takes any of the compression levels supported
// by the golang standard gzip package.
func CompressionLevelOpt(level int) RecorderOpt {
	return compressionLevelOpt(level)
}

// DefaultBufferSize is the number of unwritten events which
// may be held in queue before blocking.
const DefaultBufferSize = 5000

type bufferSizeOpt int

// BufferSizeOpt overrides the default buffer size of the recorder.
// Once the buffer overflows, the driver is blocked until the
// buffer has room.
func BufferSizeOpt(size int) RecorderOpt {
	return bufferSizeOpt(size)
}

type runIDOpt string

// RunIDOpt tags every recorded event with the identifier of the run,
// so that logs of several runs may be concatenated.
func RunIDOpt(runID string) RecorderOpt {
	return runIDOpt(runID)
}

// Recorder implements driver.Observer.  It receives driver events,
// serializes them, compresses them, and writes them to a stream.
type Recorder struct {
	runID            string
	timeSource       func() int64
	compressionLevel int
	eventC           chan *structpb.Struct
	doneC            chan struct{}
	exitC            chan struct{}

	exitErr      error
	exitErrMutex sync.Mutex
}

func NewRecorder(dest io.Writer, opts ...RecorderOpt) *Recorder {
	startTime := time.Now()

	r := &Recorder{
		timeSource: func() int64 {
			return time.Since(startTime).Milliseconds()
		},
		compressionLevel: DefaultCompressionLevel,
		eventC:           make(chan *structpb.Struct, DefaultBufferSize),
		doneC:            make(chan struct{}),
		exitC:            make(chan struct{}),
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case timeSourceOpt:
			r.timeSource = v
		case compressionLevelOpt:
			r.compressionLevel = int(v)
		case bufferSizeOpt:
			r.eventC = make(chan *structpb.Struct, v)
		case runIDOpt:
			r.runID = string(v)
		}
	}

	go r.run(dest)

	return r
}

// Observe encodes the event and enqueues it into the event buffer.
// If there is no room in the buffer, it blocks.  If draining the buffer
// to the output stream has completed (successfully or otherwise), Observe
// returns an error.
func (r *Recorder) Observe(event driver.Event) error {
	msg, err := EncodeEvent(r.runID, r.timeSource(), event)
	if err != nil {
		return err
	}

	select {
	case r.eventC <- msg:
		return nil
	case <-r.exitC:
		r.exitErrMutex.Lock()
		defer r.exitErrMutex.Unlock()
		return r.exitErr
	}
}

// Stop must be invoked to release the resources associated with this
// Recorder, and should only be invoked once the driver will not emit
// any more events.
func (r *Recorder) Stop() error {
	close(r.doneC)
	<-r.exitC
	r.exitErrMutex.Lock()
	defer r.exitErrMutex.Unlock()
	if r.exitErr == errStopped {
		return nil
	}
	return r.exitErr
}

var errStopped = errors.New("recorder stopped at caller request")

func (r *Recorder) run(dest io.Writer) (exitErr error) {
	defer func() {
		r.exitErrMutex.Lock()
		r.exitErr = exitErr
		r.exitErrMutex.Unlock()
		close(r.exitC)
	}()

	gzWriter, err := gzip.NewWriterLevel(dest, r.compressionLevel)
	if err != nil {
		return errors.WithMessage(err, "could not create gzip writer")
	}
	defer gzWriter.Close()

	for {
		select {
		case <-r.doneC:
			for {
				select {
				case msg := <-r.eventC:
					if err := WriteRecordedEvent(gzWriter, msg); err != nil {
						return errors.WithMessage(err, "error serializing to stream")
					}
				default:
					return errStopped
				}
			}
		case msg := <-r.eventC:
			if err := WriteRecordedEvent(gzWriter, msg); err != nil {
				return errors.WithMessage(err, "error serializing to stream")
			}
		}
	}
}

func WriteRecordedEvent(writer io.Writer, msg *structpb.Struct) error {
	return writeSizePrefixedProto(writer, msg)
}

func writeSizePrefixedProto(dest io.Writer, msg proto.Message) error {
	msgBytes, err := proto.Marshal(msg)
	if err != nil {
		return errors.WithMessage(err, "could not marshal")
	}

	lenBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutVarint(lenBuf, int64(len(msgBytes)))
	if _, err = dest.Write(lenBuf[:n]); err != nil {
		return errors.WithMessage(err, "could not write length prefix")
	}

	if _, err = dest.Write(msgBytes); err != nil {
		return errors.WithMessage(err, "could not write message")
	}

	return nil
}
