// Package bytebuf provides the growable byte queue shared by the sink's
// inbound and outbound buffers.
package bytebuf

import "fmt"

// compactMin is the smallest dead prefix worth reclaiming on append.
const compactMin = 4096

// Queue is an ordered byte sequence read from the front and appended at the
// back. Removing a prefix advances a cursor; storage is compacted lazily.
// The zero value is an empty queue ready to use.
type Queue struct {
	buf []byte
	off int
}

// Len returns the number of unread bytes.
func (q *Queue) Len() int {
	return len(q.buf) - q.off
}

// Bytes returns the unread bytes. The slice aliases the queue storage and is
// only valid until the next mutating call.
func (q *Queue) Bytes() []byte {
	return q.buf[q.off:]
}

// Append adds p to the tail of the queue.
func (q *Queue) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if q.off > 0 && len(q.buf)+len(p) > cap(q.buf) && (q.off >= compactMin || q.off >= q.Len()) {
		q.compact()
	}
	q.buf = append(q.buf, p...)
}

// Discard drops the first n unread bytes.
func (q *Queue) Discard(n int) {
	if n < 0 || n > q.Len() {
		panic(fmt.Sprintf("bytebuf: discard %d out of range [0,%d]", n, q.Len()))
	}
	q.off += n
	if q.off == len(q.buf) {
		q.buf = q.buf[:0]
		q.off = 0
	}
}

// RemoveRange drops the unread bytes in [start, end). Removing a prefix only
// moves the cursor.
func (q *Queue) RemoveRange(start, end int) {
	if start < 0 || end < start || end > q.Len() {
		panic(fmt.Sprintf("bytebuf: remove range [%d,%d) out of range [0,%d]", start, end, q.Len()))
	}
	if start == 0 {
		q.Discard(end)
		return
	}
	if start == end {
		return
	}
	s := q.off + start
	e := q.off + end
	n := copy(q.buf[s:], q.buf[e:])
	q.buf = q.buf[:s+n]
}

// Reset empties the queue, keeping its storage.
func (q *Queue) Reset() {
	q.buf = q.buf[:0]
	q.off = 0
}

func (q *Queue) compact() {
	n := copy(q.buf, q.buf[q.off:])
	q.buf = q.buf[:n]
	q.off = 0
}
