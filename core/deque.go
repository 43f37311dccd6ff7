package core

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// taskDeque is a ring buffer of tasks supporting insertion at both ends.
// It is not synchronized; Queue guards it.
type taskDeque struct {
	buf  []Task
	head int
	n    int
}

func newTaskDeque() taskDeque {
	return taskDeque{buf: make([]Task, defaultQueueCap)}
}

func (d *taskDeque) Len() int { return d.n }

func (d *taskDeque) at(i int) Task {
	return d.buf[(d.head+i)%len(d.buf)]
}

func (d *taskDeque) grow() {
	if d.n < len(d.buf) {
		return
	}
	d.resize(max(len(d.buf)*2, defaultQueueCap))
}

func (d *taskDeque) resize(capacity int) {
	buf := make([]Task, capacity)
	for i := 0; i < d.n; i++ {
		buf[i] = d.at(i)
	}
	d.buf = buf
	d.head = 0
}

func (d *taskDeque) PushBack(t Task) {
	d.grow()
	d.buf[(d.head+d.n)%len(d.buf)] = t
	d.n++
}

func (d *taskDeque) PushFront(t Task) {
	d.grow()
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.head] = t
	d.n++
}

func (d *taskDeque) PopFront() (Task, bool) {
	if d.n == 0 {
		return nil, false
	}
	t := d.buf[d.head]
	// Zero out the slot to release the task reference
	d.buf[d.head] = nil
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	d.maybeCompact()
	return t, true
}

// PopUpTo removes at most limit tasks from the front.
func (d *taskDeque) PopUpTo(limit int) []Task {
	if d.n == 0 {
		return nil
	}
	count := min(limit, d.n)
	batch := make([]Task, 0, count)
	for range count {
		t, _ := d.PopFront()
		batch = append(batch, t)
	}
	return batch
}

// Drain removes and returns every task, leaving the deque empty.
func (d *taskDeque) Drain() []Task {
	out := make([]Task, d.n)
	for i := range out {
		out[i] = d.at(i)
	}
	*d = newTaskDeque()
	return out
}

// Contains reports whether a task with the given id is held.
func (d *taskDeque) Contains(id TaskID) bool {
	_, ok := d.Find(id)
	return ok
}

// Find returns the first held task with the given id.
func (d *taskDeque) Find(id TaskID) (Task, bool) {
	for i := 0; i < d.n; i++ {
		if t := d.at(i); t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// Remove deletes every task with the given id and reports whether any was found.
func (d *taskDeque) Remove(id TaskID) bool {
	kept := 0
	for i := 0; i < d.n; i++ {
		t := d.at(i)
		if t.ID() == id {
			continue
		}
		d.buf[(d.head+kept)%len(d.buf)] = t
		kept++
	}
	removed := d.n - kept
	for i := kept; i < d.n; i++ {
		d.buf[(d.head+i)%len(d.buf)] = nil
	}
	d.n = kept
	return removed > 0
}

// KeepLast discards everything but the final task.
func (d *taskDeque) KeepLast() {
	if d.n <= 1 {
		return
	}
	last := d.at(d.n - 1)
	for i := 0; i < d.n; i++ {
		d.buf[(d.head+i)%len(d.buf)] = nil
	}
	d.head = 0
	d.buf[0] = last
	d.n = 1
}

// SumSize adds up Size() of every held task.
func (d *taskDeque) SumSize() int {
	sum := 0
	for i := 0; i < d.n; i++ {
		sum += d.at(i).Size()
	}
	return sum
}

func (d *taskDeque) maybeCompact() {
	c := len(d.buf)
	if c < compactMinCap {
		return
	}
	if d.n*compactShrinkFactor >= c {
		return
	}
	d.resize(max(c/2, defaultQueueCap, d.n))
}
