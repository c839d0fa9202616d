package storage

import (
	"errors"
	"sort"
)

// ErrJournalClosed is returned when a journal is used after Commit or Discard.
var ErrJournalClosed = errors.New("storage: journal already finalised")

type journalEntry struct {
	value   []byte
	deleted bool
}

// Journal is a write overlay on top of a parent Database. Reads observe the
// pending writes first; nothing reaches the parent until Commit, which applies
// every pending write in a single parent batch. Discard drops them.
//
// A Journal is a unit of work for exactly one call and is not safe for
// concurrent use.
type Journal struct {
	parent  Database
	pending map[string]journalEntry
	done    bool
}

// NewJournal opens an empty overlay over parent.
func NewJournal(parent Database) *Journal {
	return &Journal{parent: parent, pending: make(map[string]journalEntry)}
}

func (j *Journal) Put(key []byte, value []byte) error {
	if j.done {
		return ErrJournalClosed
	}
	j.pending[string(key)] = journalEntry{value: append([]byte(nil), value...)}
	return nil
}

func (j *Journal) Get(key []byte) ([]byte, error) {
	if j.done {
		return nil, ErrJournalClosed
	}
	if entry, ok := j.pending[string(key)]; ok {
		if entry.deleted {
			return nil, ErrNotFound
		}
		return append([]byte(nil), entry.value...), nil
	}
	return j.parent.Get(key)
}

func (j *Journal) Has(key []byte) (bool, error) {
	if j.done {
		return false, ErrJournalClosed
	}
	if entry, ok := j.pending[string(key)]; ok {
		return !entry.deleted, nil
	}
	return j.parent.Has(key)
}

func (j *Journal) Delete(key []byte) error {
	if j.done {
		return ErrJournalClosed
	}
	j.pending[string(key)] = journalEntry{deleted: true}
	return nil
}

// NewBatch returns a batch whose Write lands in the overlay, not the parent.
func (j *Journal) NewBatch() Batch {
	return &journalBatch{journal: j}
}

// Close is a no-op; the parent's lifetime is owned by the caller.
func (j *Journal) Close() {}

// Dirty reports the number of keys written since the journal was opened.
func (j *Journal) Dirty() int { return len(j.pending) }

// Commit flushes every pending write to the parent in one atomic batch. Keys
// are applied in sorted order so commits are deterministic.
func (j *Journal) Commit() error {
	if j.done {
		return ErrJournalClosed
	}
	j.done = true
	if len(j.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(j.pending))
	for k := range j.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := j.parent.NewBatch()
	for _, k := range keys {
		entry := j.pending[k]
		if entry.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), entry.value)
	}
	j.pending = nil
	return batch.Write()
}

// Discard drops all pending writes. Calling Discard after Commit is a no-op.
func (j *Journal) Discard() {
	j.done = true
	j.pending = nil
}

type journalBatch struct {
	journal *Journal
	ops     []batchOp
}

func (b *journalBatch) Put(key []byte, value []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *journalBatch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), delete: true})
}

func (b *journalBatch) Len() int { return len(b.ops) }

func (b *journalBatch) Write() error {
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = b.journal.Delete(op.key)
		} else {
			err = b.journal.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
