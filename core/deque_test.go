package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dequeIDs(d *taskDeque) []TaskID {
	out := make([]TaskID, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		out = append(out, d.at(i).ID())
	}
	return out
}

// TestTaskDeque_WrapAroundAndGrow verifies ordering survives wrap-around and growth
// Given: A deque filled past its initial capacity from both ends
// When: Tasks are popped from the front
// Then: Front pushes come out in reverse push order, followed by back pushes in order
func TestTaskDeque_WrapAroundAndGrow(t *testing.T) {
	// Arrange
	q := NewQueue(WithoutLocking())
	d := newTaskDeque()
	var front, back []TaskID
	for range defaultQueueCap {
		b := newPlainTask(q, func() {})
		d.PushBack(b)
		back = append(back, b.ID())
		f := newPlainTask(q, func() {})
		d.PushFront(f)
		front = append([]TaskID{f.ID()}, front...)
	}

	// Act
	got := make([]TaskID, 0, d.Len())
	for {
		task, ok := d.PopFront()
		if !ok {
			break
		}
		got = append(got, task.ID())
	}

	// Assert
	assert.Equal(t, append(front, back...), got)
	assert.Equal(t, 0, d.Len())
}

// TestTaskDeque_RemoveKeepsOrder verifies removal from the middle
func TestTaskDeque_RemoveKeepsOrder(t *testing.T) {
	q := NewQueue(WithoutLocking())
	d := newTaskDeque()
	tasks := make([]*plainTask, 5)
	for i := range tasks {
		tasks[i] = newPlainTask(q, func() {})
		d.PushBack(tasks[i])
	}

	require.True(t, d.Remove(tasks[2].ID()))
	assert.False(t, d.Remove(tasks[2].ID()))
	assert.Equal(t, []TaskID{tasks[0].ID(), tasks[1].ID(), tasks[3].ID(), tasks[4].ID()}, dequeIDs(&d))
	assert.False(t, d.Contains(tasks[2].ID()))
	assert.True(t, d.Contains(tasks[4].ID()))
}

// TestTaskDeque_KeepLast verifies everything but the final task is discarded
func TestTaskDeque_KeepLast(t *testing.T) {
	q := NewQueue(WithoutLocking())
	d := newTaskDeque()
	var last *plainTask
	for range 4 {
		last = newPlainTask(q, func() {})
		d.PushBack(last)
	}

	d.KeepLast()

	assert.Equal(t, []TaskID{last.ID()}, dequeIDs(&d))
}

// TestTaskDeque_PopUpToAndDrain verifies batch removal
func TestTaskDeque_PopUpToAndDrain(t *testing.T) {
	q := NewQueue(WithoutLocking())
	d := newTaskDeque()
	for range 5 {
		d.PushBack(newPlainTask(q, func() {}))
	}

	assert.Len(t, d.PopUpTo(3), 3)
	assert.Equal(t, 2, d.Len())
	assert.Len(t, d.Drain(), 2)
	assert.Equal(t, 0, d.Len())
	assert.Nil(t, d.PopUpTo(1))
}

// TestTaskDeque_Compacts verifies the buffer shrinks after a large backlog drains
func TestTaskDeque_Compacts(t *testing.T) {
	q := NewQueue(WithoutLocking())
	d := newTaskDeque()
	for range compactMinCap * 4 {
		d.PushBack(newPlainTask(q, func() {}))
	}
	grown := len(d.buf)

	d.PopUpTo(compactMinCap*4 - 1)

	assert.Less(t, len(d.buf), grown)
	assert.Equal(t, 1, d.Len())
}
