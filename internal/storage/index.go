package storage

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spaolacci/murmur3"

	"github.com/tuannm99/bongodb/internal/record"
)

// hashIndex is a multi-map from hash(index-column value) to the set of slot
// ids holding that value. Collisions are resolved by the caller re-checking
// the candidate slot's actual value. Null values live in their own reserved
// bucket and never share storage with non-null values.
type hashIndex struct {
	buckets map[uint32]mapset.Set[uint32]
	nulls   mapset.Set[uint32]
}

func newHashIndex() *hashIndex {
	return &hashIndex{
		buckets: make(map[uint32]mapset.Set[uint32]),
		nulls:   mapset.NewThreadUnsafeSet[uint32](),
	}
}

func hashKey(v record.Value) uint32 {
	h := murmur3.New32()
	_, _ = h.Write(v.IndexBytes())
	return h.Sum32()
}

func (ix *hashIndex) add(v record.Value, id uint32) {
	if v.IsNull() {
		ix.nulls.Add(id)
		return
	}
	k := hashKey(v)
	set, ok := ix.buckets[k]
	if !ok {
		set = mapset.NewThreadUnsafeSet[uint32]()
		ix.buckets[k] = set
	}
	set.Add(id)
}

func (ix *hashIndex) remove(v record.Value, id uint32) {
	if v.IsNull() {
		ix.nulls.Remove(id)
		return
	}
	k := hashKey(v)
	set, ok := ix.buckets[k]
	if !ok {
		return
	}
	set.Remove(id)
	if set.IsEmpty() {
		delete(ix.buckets, k)
	}
}

// candidates returns the slot ids of v's bucket in ascending order.
// Ids of hash-colliding values may be included; the caller filters.
func (ix *hashIndex) candidates(v record.Value) []uint32 {
	var set mapset.Set[uint32]
	if v.IsNull() {
		set = ix.nulls
	} else {
		var ok bool
		set, ok = ix.buckets[hashKey(v)]
		if !ok {
			return nil
		}
	}
	ids := set.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// size is the total number of indexed slot ids.
func (ix *hashIndex) size() int {
	n := ix.nulls.Cardinality()
	for _, set := range ix.buckets {
		n += set.Cardinality()
	}
	return n
}
