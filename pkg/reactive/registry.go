package reactive

import (
	"iter"
	"weak"
)

const (
	// minBuckets is the bucket count allocated on first insertion.
	minBuckets = 8

	// maxLoad is the average bucket length that triggers a resize.
	maxLoad = 4
)

// entry is one weak membership. The observer is live only while the weak
// pointer resolves and its handle still carries the recorded version.
type entry struct {
	id      uint64
	version uint64
	ref     weak.Pointer[Handle]
}

func (e *entry) live() *Handle {
	h := e.ref.Value()
	if h == nil || h.version != e.version {
		return nil
	}
	return h
}

// Registry is a set of observers held by weak reference. It is owned by a
// piece of reactive state and is that state's subscriber list.
//
// Membership is decided by observer identity, not value equality. Entries
// whose observer was garbage collected or reset are reclaimed the next time
// their bucket is touched by Add, Remove or All.
//
// Add, Remove and Clear panic while an iteration from All is open. Edges
// dropped by the runtime itself during an iteration, when an observer's
// dependencies are pruned or it is reset, are queued and removed once the
// outermost iteration ends. Resizes only happen inside Add, so an open
// iterator never observes a rehash.
//
// The zero value is an empty registry ready to use.
type Registry struct {
	buckets   [][]entry
	count     int
	iterating int

	// pending holds removals requested during an iteration.
	pending []entryKey
}

type entryKey struct {
	id      uint64
	version uint64
}

// bucketFor returns the bucket index for an identity. IDs are sequential,
// so they are mixed before masking.
func (r *Registry) bucketFor(id uint64) int {
	return int((id * 0x9E3779B97F4A7C15) >> 32 & uint64(len(r.buckets)-1))
}

func (r *Registry) guard() {
	if r.iterating > 0 {
		panic(newError("R002", ErrRegistryIterating))
	}
}

// scavenge removes dead entries from bucket b.
func (r *Registry) scavenge(b int) {
	bucket := r.buckets[b]
	j := 0
	for i := range bucket {
		if bucket[i].live() == nil {
			continue
		}
		bucket[j] = bucket[i]
		j++
	}
	if j == len(bucket) {
		return
	}
	clear(bucket[j:])
	r.count -= len(bucket) - j
	r.buckets[b] = bucket[:j]
}

// Add inserts o and reports whether it was newly inserted.
// Adding a nil observer panics.
func (r *Registry) Add(o Observer) bool {
	h := handleOf(o)
	r.guard()

	if r.buckets == nil {
		r.buckets = make([][]entry, minBuckets)
	}

	b := r.bucketFor(h.id)
	r.scavenge(b)
	for i := range r.buckets[b] {
		e := &r.buckets[b][i]
		if e.id == h.id && e.version == h.version {
			return false
		}
	}

	if r.count >= len(r.buckets)*maxLoad {
		r.grow()
		b = r.bucketFor(h.id)
	}

	r.buckets[b] = append(r.buckets[b], entry{
		id:      h.id,
		version: h.version,
		ref:     weak.Make(h),
	})
	r.count++
	return true
}

// Remove removes the live entry for o. It reports false if o was not a
// member. Dead entries sharing the bucket are reclaimed.
func (r *Registry) Remove(o Observer) bool {
	return r.removeHandle(handleOf(o))
}

func (r *Registry) removeHandle(h *Handle) bool {
	r.guard()
	return r.removeKey(entryKey{h.id, h.version})
}

// drop removes h's entry now, or when the open iteration ends.
func (r *Registry) drop(h *Handle) {
	if r.iterating > 0 {
		r.pending = append(r.pending, entryKey{h.id, h.version})
		return
	}
	r.removeKey(entryKey{h.id, h.version})
}

func (r *Registry) flushPending() {
	for _, k := range r.pending {
		r.removeKey(k)
	}
	clear(r.pending)
	r.pending = r.pending[:0]
}

func (r *Registry) removeKey(k entryKey) bool {
	if r.buckets == nil {
		return false
	}

	b := r.bucketFor(k.id)
	r.scavenge(b)
	bucket := r.buckets[b]
	for i := range bucket {
		if bucket[i].id != k.id || bucket[i].version != k.version {
			continue
		}
		last := len(bucket) - 1
		bucket[i] = bucket[last]
		bucket[last] = entry{}
		r.buckets[b] = bucket[:last]
		r.count--
		return true
	}
	return false
}

// Contains reports whether o is a live member. It does not reclaim entries.
func (r *Registry) Contains(o Observer) bool {
	h := handleOf(o)
	if r.buckets == nil {
		return false
	}
	for _, e := range r.buckets[r.bucketFor(h.id)] {
		if e.id == h.id && e.version == h.version && e.live() != nil {
			return true
		}
	}
	return false
}

// Len returns the number of live members. It does not reclaim entries.
func (r *Registry) Len() int {
	n := 0
	for _, bucket := range r.buckets {
		for i := range bucket {
			if bucket[i].live() != nil {
				n++
			}
		}
	}
	return n
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.guard()
	r.buckets = nil
	r.count = 0
	r.pending = nil
}

// All returns a sequence of the live members. Dead entries encountered are
// removed in place. Add, Remove and Clear panic while the sequence is being
// ranged over.
func (r *Registry) All() iter.Seq[Observer] {
	return func(yield func(Observer) bool) {
		r.iterating++
		defer func() {
			r.iterating--
			if r.iterating == 0 && len(r.pending) > 0 {
				r.flushPending()
			}
		}()

		for b := range r.buckets {
			bucket := r.buckets[b]
			j := 0
			stopped := false
			for i := 0; i < len(bucket); i++ {
				h := bucket[i].live()
				if h == nil {
					continue
				}
				bucket[j] = bucket[i]
				j++
				if !yield(h.self) {
					j += copy(bucket[j:], bucket[i+1:])
					stopped = true
					break
				}
			}
			if j < len(bucket) {
				clear(bucket[j:])
				r.count -= len(bucket) - j
				r.buckets[b] = bucket[:j]
			}
			if stopped {
				return
			}
		}
	}
}

// grow doubles the bucket array and rehashes live entries into fresh storage.
func (r *Registry) grow() {
	old := r.buckets
	r.buckets = make([][]entry, len(old)*2)
	r.count = 0
	for _, bucket := range old {
		for _, e := range bucket {
			if e.live() == nil {
				continue
			}
			b := r.bucketFor(e.id)
			r.buckets[b] = append(r.buckets[b], e)
			r.count++
		}
	}
}
