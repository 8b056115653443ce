/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package loop

import (
	"bytes"
	"container/list"
	"fmt"
	"time"
)

type timer struct {
	id       TimerID
	deadline time.Duration
	fn       func()
}

// timerQueue keeps timers in order of deadline.  Timers with equal deadlines
// keep their insertion order.
type timerQueue struct {
	list     *list.List
	elements map[TimerID]*list.Element
	lastID   TimerID
}

func newTimerQueue() *timerQueue {
	return &timerQueue{
		list:     list.New(),
		elements: map[TimerID]*list.Element{},
	}
}

func (q *timerQueue) insert(deadline time.Duration, fn func()) TimerID {
	q.lastID++
	t := &timer{
		id:       q.lastID,
		deadline: deadline,
		fn:       fn,
	}

	for el := q.list.Front(); el != nil; el = el.Next() {
		if el.Value.(*timer).deadline > deadline {
			q.elements[t.id] = q.list.InsertBefore(t, el)
			return t.id
		}
	}

	q.elements[t.id] = q.list.PushBack(t)
	return t.id
}

func (q *timerQueue) remove(id TimerID) {
	el, ok := q.elements[id]
	if !ok {
		return
	}
	delete(q.elements, id)
	q.list.Remove(el)
}

// peek returns the earliest timer without removing it, or nil.
func (q *timerQueue) peek() *timer {
	front := q.list.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*timer)
}

// pop removes and returns the earliest timer, or nil.
func (q *timerQueue) pop() *timer {
	t := q.peek()
	if t != nil {
		q.remove(t.id)
	}
	return t
}

func (q *timerQueue) len() int {
	return q.list.Len()
}

func (q *timerQueue) status() string {
	count := q.list.Len()
	if count == 0 {
		return "Empty timer queue"
	}

	var buf bytes.Buffer
	i := 0
	for el := q.list.Front(); el != nil; el = el.Next() {
		if i == 50 {
			fmt.Fprintf(&buf, "\n ... skipping %d entries ... \n", count-50)
			return buf.String()
		}
		t := el.Value.(*timer)
		fmt.Fprintf(&buf, "[timer=%d deadline=%v]\n", t.id, t.deadline)
		i++
	}

	fmt.Fprintf(&buf, "\nCompleted timer queue summary of %d timers\n", count)
	return buf.String()
}
