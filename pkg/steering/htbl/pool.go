// Copyright 2024 Antrea Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package htbl implements the arena of steering hash tables. Tables are
// addressed by stable integer indices and the links between them are index
// fields, so relinking a table is a value assignment. A table can only be
// freed once no other table links to it.
package htbl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"k8s.io/klog/v2"
)

// Index identifies a hash table in a Pool. Nil never refers to a table.
type Index uint32

const Nil Index = 0

// Type is the kind of entries a hash table holds.
type Type int

const (
	// TypeLegacy tables hold fixed-format STE entries.
	TypeLegacy Type = iota
	// TypeMatch tables hold entries described by a definer object.
	TypeMatch
)

// ChunkSize is the log2 of the number of entries in a hash table.
type ChunkSize uint8

const (
	ChunkSize1 ChunkSize = iota
	ChunkSize2
	ChunkSize4
	ChunkSize8
)

// LookupTypeDontCare is used for tables whose entries never match on fields,
// such as anchors.
const LookupTypeDontCare uint16 = 0

const (
	// slotStride is the ICM space reserved for every arena slot.
	slotStride = 0x1000
	entrySize  = 0x40
)

var (
	ErrExhausted    = errors.New("hash table pool exhausted")
	ErrInvalidIndex = errors.New("invalid hash table index")
	ErrReferenced   = errors.New("hash table is still linked from another table")
)

type table struct {
	inUse      bool
	chunkSize  ChunkSize
	typ        Type
	lookupType uint16
	byteMask   uint16
	refCount   int
	// hitNext is the table the first entry continues to on a hit.
	hitNext Index
	// missNext is set when missAddr is the address of a table in the pool.
	missNext Index
	missAddr uint64
	// pointing is the table whose hit link targets this table.
	pointing Index
	// inbound counts hit and miss links that target this table.
	inbound int
}

// Info is a snapshot of one hash table.
type Info struct {
	Index      Index
	ICMAddr    uint64
	ChunkSize  ChunkSize
	Type       Type
	LookupType uint16
	ByteMask   uint16
	RefCount   int
	HitNext    Index
	MissNext   Index
	MissAddr   uint64
	Pointing   Index
}

// Pool is a fixed capacity arena of hash tables backed by a contiguous ICM
// range starting at base.
type Pool struct {
	mu     sync.Mutex
	base   uint64
	tables []table
	// free holds released indices, reused in release order.
	free   *deque.Deque
	byAddr map[uint64]Index
}

// NewPool returns a Pool able to hold capacity tables.
func NewPool(base uint64, capacity int) *Pool {
	p := &Pool{
		base: base,
		// Slot 0 backs Nil and is never handed out.
		tables: make([]table, capacity+1),
		free:   deque.New(),
		byAddr: make(map[uint64]Index, capacity),
	}
	for i := 1; i <= capacity; i++ {
		p.free.PushBack(Index(i))
	}
	return p
}

func (p *Pool) addr(i Index) uint64 {
	return p.base + uint64(i)*slotStride
}

func (p *Pool) lookup(i Index) (*table, error) {
	if i == Nil || int(i) >= len(p.tables) || !p.tables[i].inUse {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	return &p.tables[i], nil
}

// Alloc reserves a hash table. The returned table has a reference count of
// zero and no links.
func (p *Pool) Alloc(size ChunkSize, typ Type, lookupType, byteMask uint16) (Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uint64(entrySize)<<size > slotStride {
		return Nil, fmt.Errorf("chunk size %d does not fit an arena slot", size)
	}
	if p.free.Len() == 0 {
		return Nil, ErrExhausted
	}
	i := p.free.PopFront().(Index)
	p.tables[i] = table{
		inUse:      true,
		chunkSize:  size,
		typ:        typ,
		lookupType: lookupType,
		byteMask:   byteMask,
	}
	p.byAddr[p.addr(i)] = i
	klog.V(4).InfoS("Allocated hash table", "index", i, "icmAddr", fmt.Sprintf("0x%x", p.addr(i)))
	return i, nil
}

// Free releases a hash table regardless of its reference count. Links that
// leave the table are dropped; links that target it must have been rewritten
// before.
func (p *Pool) Free(i Index) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeLocked(i)
}

func (p *Pool) freeLocked(i Index) error {
	t, err := p.lookup(i)
	if err != nil {
		return err
	}
	if t.inbound > 0 {
		return fmt.Errorf("%w: %d has %d inbound links", ErrReferenced, i, t.inbound)
	}
	p.dropHit(i, t)
	p.dropMiss(t)
	delete(p.byAddr, p.addr(i))
	p.tables[i] = table{}
	p.free.PushBack(i)
	klog.V(4).InfoS("Freed hash table", "index", i)
	return nil
}

// Get takes a reference on a hash table.
func (p *Pool) Get(i Index) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.lookup(i)
	if err != nil {
		return err
	}
	t.refCount++
	return nil
}

// Put drops a reference on a hash table and frees it when the count reaches
// zero. The last reference is kept when the table cannot be freed because
// other tables still link to it, so that Put can be retried once they are
// unlinked.
func (p *Pool) Put(i Index) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.lookup(i)
	if err != nil {
		return err
	}
	if t.refCount == 0 {
		return fmt.Errorf("hash table %d has no reference to drop", i)
	}
	if t.refCount > 1 {
		t.refCount--
		return nil
	}
	return p.freeLocked(i)
}

// ICMAddr returns the ICM address of a hash table, or 0 for an invalid index.
func (p *Pool) ICMAddr(i Index) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.lookup(i); err != nil {
		return 0
	}
	return p.addr(i)
}

// Lookup returns the hash table located at an ICM address.
func (p *Pool) Lookup(addr uint64) (Index, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.byAddr[addr]
	return i, ok
}

func (p *Pool) dropHit(from Index, t *table) {
	if t.hitNext == Nil {
		return
	}
	next := &p.tables[t.hitNext]
	next.inbound--
	if next.pointing == from {
		next.pointing = Nil
	}
	t.hitNext = Nil
}

func (p *Pool) dropMiss(t *table) {
	if t.missNext != Nil {
		p.tables[t.missNext].inbound--
	}
	t.missNext = Nil
	t.missAddr = 0
}

// SetHit records that a hit on the first entry of from continues to to.
func (p *Pool) SetHit(from, to Index) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := p.lookup(from)
	if err != nil {
		return err
	}
	t, err := p.lookup(to)
	if err != nil {
		return err
	}
	p.dropHit(from, f)
	f.hitNext = to
	t.inbound++
	t.pointing = from
	return nil
}

// SetMiss records that a miss in from jumps to addr. A previous hit link of
// from is dropped.
func (p *Pool) SetMiss(from Index, addr uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := p.lookup(from)
	if err != nil {
		return err
	}
	p.dropHit(from, f)
	p.dropMiss(f)
	f.missAddr = addr
	if to, ok := p.byAddr[addr]; ok {
		f.missNext = to
		p.tables[to].inbound++
	}
	return nil
}

// Info returns a snapshot of a hash table.
func (p *Pool) Info(i Index) (Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.lookup(i)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Index:      i,
		ICMAddr:    p.addr(i),
		ChunkSize:  t.chunkSize,
		Type:       t.typ,
		LookupType: t.lookupType,
		ByteMask:   t.byteMask,
		RefCount:   t.refCount,
		HitNext:    t.hitNext,
		MissNext:   t.missNext,
		MissAddr:   t.missAddr,
		Pointing:   t.pointing,
	}, nil
}

// InUse returns the number of allocated hash tables.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byAddr)
}
