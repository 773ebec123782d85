// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package dirbuf implements the per-node directory enumeration buffer
// used to answer QueryDirectory: entries are appended in arbitrary
// (producer) order, sorted once on release, and served back to readers a
// page at a time from a resumable marker.
package dirbuf

import (
	"encoding/binary"
	"sort"
	"sync"
)

// sentinel marks an index slot whose entry has been retracted by the
// producer before release; release() elides these slots entirely.
const sentinel = ^uint32(0)

const initialCapacity = 512
const indexEntrySize = 4 // one uint32 offset per directory entry

// Entry is a single directory record as seen by the buffer: Name plus
// whatever opaque per-entry payload the caller wants stored alongside it
// (typically an encoded FileInfo). The buffer treats Payload as an
// uninterpreted blob.
type Entry struct {
	Name    string
	Payload []byte
}

// Buffer is the two-region growable buffer described by the directory
// enumeration design: a single backing array with a low-watermark entry
// region growing up from offset 0 and a high-watermark index region
// growing down from the end. It is exclusively owned by one file node;
// acquire/fill/release/read/delete are the only operations a caller needs.
type Buffer struct {
	once sync.Once
	mu   sync.RWMutex

	buf []byte

	loMark int // end of the entry region
	hiMark int // start of the index region (== len(buf) - index bytes used)

	released bool
}

// Acquire prepares the buffer for a fresh fill pass, allocating it on
// first use. If reset is true (or this is the first acquisition) the
// watermarks are reinitialized; the backing array is otherwise retained
// for reuse across enumerations of the same handle.
func (b *Buffer) Acquire(reset bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.once.Do(func() {
		b.buf = make([]byte, initialCapacity)
		b.hiMark = len(b.buf)
		reset = true
	})

	if reset {
		b.loMark = 0
		b.hiMark = len(b.buf)
	}
	b.released = false
}

// entryRecordSize is the encoded size of an Entry: a u16 length prefix for
// Name's UTF-8 bytes, the name bytes themselves, a u32 length prefix for
// Payload, and the payload bytes.
func entryRecordSize(e Entry) int {
	return 2 + len(e.Name) + 4 + len(e.Payload)
}

// Fill appends one entry to the buffer, growing (doubling capacity) as
// many times as necessary for it to fit. It returns false only if entry
// encoding would exceed any reasonable bound (an empty name), matching
// the INVALID_PARAMETER case in the design.
func (b *Buffer) Fill(e Entry) bool {
	if e.Name == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	need := entryRecordSize(e)
	for b.loMark+need > b.hiMark-indexEntrySize {
		b.grow()
	}

	start := b.loMark
	binary.LittleEndian.PutUint16(b.buf[start:start+2], uint16(len(e.Name)))
	start += 2
	copy(b.buf[start:start+len(e.Name)], e.Name)
	start += len(e.Name)
	binary.LittleEndian.PutUint32(b.buf[start:start+4], uint32(len(e.Payload)))
	start += 4
	copy(b.buf[start:start+len(e.Payload)], e.Payload)
	start += len(e.Payload)

	entryOffset := b.loMark
	b.loMark = start

	b.hiMark -= indexEntrySize
	binary.LittleEndian.PutUint32(b.buf[b.hiMark:b.hiMark+indexEntrySize], uint32(entryOffset))

	return true
}

// grow doubles the backing array, copying the entry region in place and
// relocating the index region to the new high end. Capacity doubling
// always crosses whatever boundary the caller is near (including exactly
// a 512-byte one), and every previously filled entry and index slot
// survives the relocation unmodified.
func (b *Buffer) grow() {
	oldLen := len(b.buf)
	newLen := oldLen * 2
	if newLen == 0 {
		newLen = initialCapacity
	}

	next := make([]byte, newLen)
	copy(next[:b.loMark], b.buf[:b.loMark])

	indexUsed := oldLen - b.hiMark
	newHiMark := newLen - indexUsed
	copy(next[newHiMark:], b.buf[b.hiMark:oldLen])

	b.buf = next
	b.hiMark = newHiMark
}

// indexCount returns the number of index slots currently populated.
func (b *Buffer) indexCount() int {
	return (len(b.buf) - b.hiMark) / indexEntrySize
}

func (b *Buffer) indexOffsetAt(slot int) uint32 {
	start := b.hiMark + slot*indexEntrySize
	return binary.LittleEndian.Uint32(b.buf[start : start+indexEntrySize])
}

func (b *Buffer) setIndexOffsetAt(slot int, v uint32) {
	start := b.hiMark + slot*indexEntrySize
	binary.LittleEndian.PutUint32(b.buf[start:start+indexEntrySize], v)
}

func (b *Buffer) nameAt(offset uint32) string {
	n := binary.LittleEndian.Uint16(b.buf[offset : offset+2])
	return string(b.buf[offset+2 : offset+2+uint32(n)])
}

func (b *Buffer) payloadAt(offset uint32) []byte {
	n := binary.LittleEndian.Uint16(b.buf[offset : offset+2])
	p := offset + 2 + uint32(n)
	sz := binary.LittleEndian.Uint32(b.buf[p : p+4])
	return b.buf[p+4 : p+4+sz]
}

// sortKey maps a name to the comparison key used for ordering: `.` and
// `..` are virtually replaced by `\x01` and `\x01\x01` so that they
// always sort before any real name, then ordinary byte-wise (case
// sensitive) comparison applies.
func sortKey(name string) string {
	switch name {
	case ".":
		return "\x01"
	case "..":
		return "\x01\x01"
	default:
		return name
	}
}

// Release compacts away any sentinel slots left by retracted entries and
// sorts the remaining index by name (`.` and `..` first). Acquire, Fill
// and Release each hold the writer lock only while they run; no lock is
// held from Acquire to Release, so a Read made between them sees the
// index in fill order, unsorted.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.indexCount()
	live := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		off := b.indexOffsetAt(i)
		if off != sentinel {
			live = append(live, off)
		}
	}

	names := make([]string, len(live))
	for i, off := range live {
		names[i] = b.nameAt(off)
	}

	idx := make([]int, len(live))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return sortKey(names[idx[i]]) < sortKey(names[idx[j]])
	})

	// Re-home the index at len(idx) slots, tight against the end of the
	// backing array, discarding the sentinel slots entirely rather than
	// merely zeroing them.
	b.hiMark = len(b.buf) - len(idx)*indexEntrySize
	for slot, i := range idx {
		b.setIndexOffsetAt(slot, live[i])
	}

	b.released = true
}

// Read copies entries starting after marker (or from the beginning if
// marker is empty) into the returned slice, stopping once max entries
// have been collected. It takes only a read lock: concurrent Read calls
// against an already-released buffer are safe.
func (b *Buffer) Read(marker string, max int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.indexCount()
	start := 0
	if marker != "" {
		key := sortKey(marker)
		start = sort.Search(n, func(i int) bool {
			return sortKey(b.nameAt(b.indexOffsetAt(i))) > key
		})
	}

	var out []Entry
	for i := start; i < n && len(out) < max; i++ {
		off := b.indexOffsetAt(i)
		out = append(out, Entry{Name: b.nameAt(off), Payload: b.payloadAt(off)})
	}
	return out
}

// Len reports the number of live entries visible to Read right now.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexCount()
}

// Cap reports the current size of the backing array, mainly for tests
// asserting doubling behavior across a given boundary.
func (b *Buffer) Cap() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buf)
}

// Delete releases the backing array. The caller must guarantee no
// concurrent Fill/Release/Read is in progress.
func (b *Buffer) Delete() {
	b.buf = nil
	b.loMark = 0
	b.hiMark = 0
}
