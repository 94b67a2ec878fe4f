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

package steering

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/metrics"
	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
)

const matcherTreeDegree = 8

// nicTable is the state of a table in one pipeline.
type nicTable struct {
	dir device.Direction
	// sAnchor is the first hash table of the chain. Its hit link targets the
	// start table of the first matcher.
	sAnchor     htbl.Index
	defaultAddr uint64
}

// Table holds the matchers of one steering table, ordered by priority.
type Table struct {
	dmn *Domain
	// mu protects matchers, nextSeq and all links of the chain.
	mu       sync.Mutex
	matchers *btree.BTreeG[*Matcher]
	nextSeq  uint64
	nics     [2]*nicTable
	// refCount is 1 for the table itself plus 1 for every matcher.
	refCount  atomic.Int32
	destroyed bool
}

func matcherLess(a, b *Matcher) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// CreateTable creates a table whose chain misses to the default miss address
// of the domain in every pipeline of the domain.
func (d *Domain) CreateTable() (*Table, error) {
	return d.CreateTableWithMissAddress(d.opts.DefaultMissAddress)
}

// CreateTableWithMissAddress creates a table whose chain ends at missAddr.
func (d *Domain) CreateTableWithMissAddress(missAddr uint64) (*Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := &Table{
		dmn:      d,
		matchers: btree.NewG[*Matcher](matcherTreeDegree, matcherLess),
	}
	t.refCount.Store(1)
	for _, dir := range d.typ.directions() {
		nt, err := t.initNic(dir, missAddr)
		if err != nil {
			t.uninitNics()
			return nil, err
		}
		t.nics[dir] = nt
	}
	klog.V(2).InfoS("Created steering table", "domain", d.typ, "missAddress", fmt.Sprintf("0x%x", missAddr))
	return t, nil
}

func (t *Table) initNic(dir device.Direction, missAddr uint64) (*nicTable, error) {
	pool := t.dmn.pool
	anchor, err := pool.Alloc(htbl.ChunkSize1, htbl.TypeLegacy, htbl.LookupTypeDontCare, 0)
	if err != nil {
		return nil, allocError(err)
	}
	if err := pool.Get(anchor); err != nil {
		pool.Free(anchor)
		return nil, err
	}
	nt := &nicTable{dir: dir, sAnchor: anchor, defaultAddr: missAddr}
	if err := t.postSend(dir, anchor, device.ConnectInfo{Type: device.ConnectMiss, MissAddr: missAddr}); err != nil {
		pool.Put(anchor)
		return nil, err
	}
	if err := pool.SetMiss(anchor, missAddr); err != nil {
		pool.Put(anchor)
		return nil, err
	}
	return nt, nil
}

func (t *Table) uninitNics() error {
	var errs []error
	for i, nt := range t.nics {
		if nt == nil {
			continue
		}
		if err := t.dmn.pool.Put(nt.sAnchor); err != nil {
			errs = append(errs, err)
		}
		t.nics[i] = nil
	}
	return utilerrors.NewAggregate(errs)
}

// Destroy releases the start anchors of the table. It fails with ErrBusy
// while the table holds matchers.
func (t *Table) Destroy() error {
	d := t.dmn
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.destroyed {
		return fmt.Errorf("%w: table already destroyed", ErrInvalidArgument)
	}
	if refs := t.refCount.Load(); refs > 1 {
		return fmt.Errorf("%w: table is referenced by %d matchers", ErrBusy, refs-1)
	}
	if err := t.uninitNics(); err != nil {
		return err
	}
	t.refCount.Add(-1)
	t.destroyed = true
	klog.V(2).InfoS("Destroyed steering table", "domain", d.typ)
	return nil
}

// Len returns the number of matchers in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.matchers.Len()
}

// Matchers returns the matchers of the table in chain order.
func (t *Table) Matchers() []*Matcher {
	t.mu.Lock()
	defer t.mu.Unlock()
	ms := make([]*Matcher, 0, t.matchers.Len())
	t.matchers.Ascend(func(m *Matcher) bool {
		ms = append(ms, m)
		return true
	})
	return ms
}

// StartAnchor returns the start anchor of the table in the given pipeline.
func (t *Table) StartAnchor(dir device.Direction) (htbl.Index, bool) {
	nt := t.nics[dir]
	if nt == nil {
		return htbl.Nil, false
	}
	return nt.sAnchor, true
}

// neighbours returns the matchers before and after m in chain order. m does
// not need to be in the table.
func (t *Table) neighbours(m *Matcher) (prev, next *Matcher) {
	t.matchers.DescendLessOrEqual(m, func(item *Matcher) bool {
		if item == m {
			return true
		}
		prev = item
		return false
	})
	t.matchers.AscendGreaterOrEqual(m, func(item *Matcher) bool {
		if item == m {
			return true
		}
		next = item
		return false
	})
	return prev, next
}

// postSend programs the first entry of a hash table.
func (t *Table) postSend(dir device.Direction, idx htbl.Index, info device.ConnectInfo) error {
	addr := t.dmn.pool.ICMAddr(idx)
	if err := t.dmn.dev.PostSend(dir, addr, info); err != nil {
		metrics.AnchorUpdateCount.WithLabelValues(dir.String(), metrics.ResultFailure).Inc()
		return fmt.Errorf("%w: failed to program hash table 0x%x: %v", ErrDeviceError, addr, err)
	}
	metrics.AnchorUpdateCount.WithLabelValues(dir.String(), metrics.ResultSuccess).Inc()
	return nil
}

// WalkResult is the chain of one pipeline as seen from the start anchor.
type WalkResult struct {
	Matchers    []*Matcher
	MissAddress uint64
}

// Walk follows the links of the chain from the start anchor of the table and
// returns the matchers in the order they are reached.
func (t *Table) Walk(dir device.Direction) (WalkResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nt := t.nics[dir]
	if nt == nil {
		return WalkResult{}, fmt.Errorf("%w: table has no %s pipeline", ErrInvalidArgument, dir)
	}
	byStart := make(map[htbl.Index]*Matcher, t.matchers.Len())
	t.matchers.Ascend(func(m *Matcher) bool {
		byStart[m.nics[dir].sHTBL] = m
		return true
	})

	pool := t.dmn.pool
	var res WalkResult
	cur := nt.sAnchor
	for steps := 0; steps <= len(byStart); steps++ {
		info, err := pool.Info(cur)
		if err != nil {
			return res, err
		}
		if info.HitNext == htbl.Nil {
			res.MissAddress = info.MissAddr
			return res, nil
		}
		m, ok := byStart[info.HitNext]
		if !ok {
			return res, fmt.Errorf("hash table %d links to %d which is not a matcher start table", cur, info.HitNext)
		}
		res.Matchers = append(res.Matchers, m)
		start, err := pool.Info(info.HitNext)
		if err != nil {
			return res, err
		}
		if start.MissNext != m.nics[dir].eAnchor {
			return res, fmt.Errorf("start table %d of matcher misses to %d instead of its end anchor", info.HitNext, start.MissNext)
		}
		cur = start.MissNext
	}
	return res, fmt.Errorf("chain of %s pipeline does not terminate", dir)
}
