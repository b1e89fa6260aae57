package syncer

import (
	"fmt"

	"payorledger/pkg/domain"
)

// Op names a storage write.
type Op string

// Storage writes performed by a save.
const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// SaveError reports the storage write that stopped a save. Err is the
// storage error, unmodified.
type SaveError struct {
	Table domain.Table
	Key   domain.Key
	Op    Op
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save: %s %s [%s]: %v", e.Op, e.Table, e.Key, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Counts tallies what a save did to one table. Deleted counts records removed
// from storage (cascaded children included); Evicted counts entities dropped
// from memory.
type Counts struct {
	Inserted int
	Updated  int
	Deleted  int
	Evicted  int
}

// Report collects per-table counts of one save.
type Report map[domain.Table]Counts

func (r Report) add(t domain.Table, fn func(*Counts)) {
	c := r[t]
	fn(&c)
	r[t] = c
}

func (r Report) inserted(t domain.Table) { r.add(t, func(c *Counts) { c.Inserted++ }) }
func (r Report) updated(t domain.Table)  { r.add(t, func(c *Counts) { c.Updated++ }) }
func (r Report) evicted(t domain.Table)  { r.add(t, func(c *Counts) { c.Evicted++ }) }

func (r Report) deleted(t domain.Table, n int64) {
	if n > 0 {
		r.add(t, func(c *Counts) { c.Deleted += int(n) })
	}
}

// Writes returns the number of records inserted, updated, or deleted.
func (r Report) Writes() int {
	n := 0
	for _, c := range r {
		n += c.Inserted + c.Updated + c.Deleted
	}
	return n
}

// Evictions returns the number of entities dropped from memory.
func (r Report) Evictions() int {
	n := 0
	for _, c := range r {
		n += c.Evicted
	}
	return n
}
