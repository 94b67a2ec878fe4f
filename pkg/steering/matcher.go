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
	"sync/atomic"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/metrics"
	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/mask"
	"antrea.io/steering/pkg/steering/ste"
)

type matcherState int

const (
	stateUninitialized matcherState = iota
	stateInitializing
	stateLinked
	stateUnlinking
	stateDestroyed
)

func (s matcherState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateLinked:
		return "linked"
	case stateUnlinking:
		return "unlinking"
	case stateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("matcherState(%d)", int(s))
}

type builderSet struct {
	builders [ste.MaxBuilders]ste.Builder
	n        int
}

func (s *builderSet) reset() {
	*s = builderSet{}
}

func (s *builderSet) isDefiner() bool {
	return s.n > 0 && s.builders[0].HTBLType == htbl.TypeMatch
}

// nicMatcher is the state of a matcher in one pipeline.
type nicMatcher struct {
	dir device.Direction
	// sets holds one builder set per outer and inner IP version.
	sets [mask.IPVersionMax][mask.IPVersionMax]builderSet
	// selected is the builder set the start table was sized for.
	selected *builderSet
	sHTBL    htbl.Index
	eAnchor  htbl.Index
}

// Matcher is a group of rules sharing one mask at one priority.
type Matcher struct {
	tbl      *Table
	priority uint32
	criteria mask.Criteria
	mask     mask.Param
	// seq orders matchers of equal priority by insertion.
	seq      uint64
	refCount atomic.Int32
	// state is protected by the domain lock.
	state matcherState
	nics  [2]*nicMatcher
}

// CreateMatcher compiles maskBytes, filtered by criteria, into builder sets
// for every pipeline of the domain and links the new matcher into the chain
// of the table at the given priority. Lower priorities come first; matchers
// of equal priority are kept in creation order.
func (t *Table) CreateMatcher(priority uint32, criteria mask.Criteria, maskBytes []byte) (*Matcher, error) {
	start := time.Now()
	m, err := t.createMatcher(priority, criteria, maskBytes)
	metrics.MatcherOpsCount.WithLabelValues(metrics.OperationCreate).Inc()
	metrics.MatcherOpsLatency.WithLabelValues(metrics.OperationCreate).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.MatcherOpsErrorCount.WithLabelValues(metrics.OperationCreate).Inc()
		klog.ErrorS(err, "Failed to create matcher", "priority", priority, "criteria", criteria)
		return nil, err
	}
	return m, nil
}

func (t *Table) createMatcher(priority uint32, criteria mask.Criteria, maskBytes []byte) (*Matcher, error) {
	d := t.dmn
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.destroyed {
		return nil, fmt.Errorf("%w: table is destroyed", ErrInvalidArgument)
	}

	t.refCount.Add(1)
	m := &Matcher{
		tbl:      t,
		priority: priority,
		criteria: criteria,
	}
	m.refCount.Store(1)

	if err := m.init(maskBytes); err != nil {
		t.refCount.Add(-1)
		return nil, err
	}
	if err := t.addMatcher(m); err != nil {
		m.uninit()
		t.refCount.Add(-1)
		return nil, err
	}
	klog.V(2).InfoS("Created matcher", "priority", priority, "criteria", criteria, "domain", d.typ)
	return m, nil
}

func (m *Matcher) init(maskBytes []byte) error {
	if m.criteria >= mask.CriteriaMax {
		return fmt.Errorf("%w: invalid match criteria 0x%x", ErrInvalidArgument, uint8(m.criteria))
	}
	if len(maskBytes) > mask.ParamSize {
		return fmt.Errorf("%w: match size %d exceeds %d bytes", ErrInvalidArgument, len(maskBytes), mask.ParamSize)
	}
	p, err := mask.FromBytes(m.criteria, maskBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	m.mask = *p
	if err := m.preCheck(); err != nil {
		return err
	}

	m.state = stateInitializing
	d := m.tbl.dmn
	for _, dir := range d.typ.directions() {
		nm := &nicMatcher{dir: dir}
		if err := m.initNic(nm); err != nil {
			m.uninit()
			m.state = stateUninitialized
			return err
		}
		m.nics[dir] = nm
	}
	return nil
}

// preCheck rejects masks that no builder can express.
func (m *Matcher) preCheck() error {
	if m.criteria.Has(mask.CriteriaMisc) {
		if sp := m.mask.Misc.SourcePort; sp != 0 && sp != 0xffff {
			return fmt.Errorf("%w: partial mask 0x%x of source_port is not supported", ErrInvalidArgument, sp)
		}
	}
	return nil
}

func (m *Matcher) initNic(nm *nicMatcher) error {
	if err := m.setAllBuilders(nm); err != nil {
		return err
	}
	pool := m.tbl.dmn.pool
	eAnchor, err := pool.Alloc(htbl.ChunkSize1, htbl.TypeLegacy, htbl.LookupTypeDontCare, 0)
	if err != nil {
		m.clearBuilders(nm)
		return allocError(err)
	}
	first := &nm.selected.builders[0]
	sHTBL, err := pool.Alloc(htbl.ChunkSize1, first.HTBLType, first.LookupType, first.ByteMask)
	if err != nil {
		pool.Free(eAnchor)
		m.clearBuilders(nm)
		return allocError(err)
	}
	// Both tables must exist while the matcher has no rules.
	pool.Get(sHTBL)
	pool.Get(eAnchor)
	nm.sHTBL = sHTBL
	nm.eAnchor = eAnchor
	return nil
}

func (m *Matcher) uninitNic(nm *nicMatcher) error {
	pool := m.tbl.dmn.pool
	errs := []error{m.clearBuilders(nm)}
	if nm.sHTBL != htbl.Nil {
		errs = append(errs, pool.Put(nm.sHTBL))
		nm.sHTBL = htbl.Nil
	}
	if nm.eAnchor != htbl.Nil {
		errs = append(errs, pool.Put(nm.eAnchor))
		nm.eAnchor = htbl.Nil
	}
	return utilerrors.NewAggregate(errs)
}

// uninit releases the builders and hash tables of every pipeline. The
// matcher must not be linked.
func (m *Matcher) uninit() {
	for i, nm := range m.nics {
		if nm == nil {
			continue
		}
		if err := m.uninitNic(nm); err != nil {
			klog.ErrorS(err, "Failed to release matcher resources", "direction", nm.dir, "priority", m.priority)
		}
		m.nics[i] = nil
	}
}

// Destroy unlinks the matcher from the chain of its table and releases its
// resources. It fails with ErrBusy while rules hold references on the
// matcher.
func (m *Matcher) Destroy() error {
	start := time.Now()
	err := m.destroy()
	metrics.MatcherOpsCount.WithLabelValues(metrics.OperationDestroy).Inc()
	metrics.MatcherOpsLatency.WithLabelValues(metrics.OperationDestroy).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.MatcherOpsErrorCount.WithLabelValues(metrics.OperationDestroy).Inc()
		return err
	}
	return nil
}

func (m *Matcher) destroy() error {
	t := m.tbl
	d := t.dmn
	d.mu.Lock()
	defer d.mu.Unlock()

	if refs := m.refCount.Load(); refs > 1 {
		return fmt.Errorf("%w: matcher is referenced by %d rules", ErrBusy, refs-1)
	}
	if m.state != stateLinked {
		return fmt.Errorf("%w: matcher is %s", ErrInvalidArgument, m.state)
	}
	m.state = stateUnlinking
	if err := t.removeMatcher(m); err != nil {
		m.state = stateLinked
		return err
	}
	m.uninit()
	t.refCount.Add(-1)
	m.state = stateDestroyed
	klog.V(2).InfoS("Destroyed matcher", "priority", m.priority, "domain", d.typ)
	return nil
}

// Get takes a reference on the matcher on behalf of a rule.
func (m *Matcher) Get() {
	m.refCount.Add(1)
}

// Put drops a reference taken with Get.
func (m *Matcher) Put() {
	for {
		refs := m.refCount.Load()
		if refs <= 1 {
			klog.ErrorS(nil, "Matcher reference dropped without a matching Get", "priority", m.priority)
			return
		}
		if m.refCount.CompareAndSwap(refs, refs-1) {
			return
		}
	}
}

// SelectBuilders returns the builder set compiled for rules of the given
// outer and inner IP versions in one pipeline.
func (m *Matcher) SelectBuilders(dir device.Direction, outer, inner mask.IPVersion) ([]ste.Builder, error) {
	if dir != device.DirectionRX && dir != device.DirectionTX {
		return nil, fmt.Errorf("%w: invalid direction %d", ErrInvalidArgument, int(dir))
	}
	if outer < mask.IPv4 || outer >= mask.IPVersionMax || inner < mask.IPv4 || inner >= mask.IPVersionMax {
		return nil, fmt.Errorf("%w: invalid IP versions %d/%d", ErrInvalidArgument, outer, inner)
	}
	nm := m.nics[dir]
	if nm == nil {
		return nil, fmt.Errorf("%w: matcher has no %s pipeline", ErrInvalidArgument, dir)
	}
	set := &nm.sets[outer][inner]
	if set.n == 0 {
		klog.V(4).InfoS("Rule not supported on this matcher due to IP related fields", "outer", outer, "inner", inner)
		return nil, fmt.Errorf("%w: no builders for outer %s and inner %s rules", ErrUnsupported, outer, inner)
	}
	return append([]ste.Builder(nil), set.builders[:set.n]...), nil
}

func (m *Matcher) Priority() uint32 {
	return m.priority
}

func (m *Matcher) Criteria() mask.Criteria {
	return m.criteria
}

// Mask returns a copy of the criteria filtered mask of the matcher.
func (m *Matcher) Mask() mask.Param {
	return m.mask
}

// RefCount returns the number of references held on the matcher, including
// the one of its creator.
func (m *Matcher) RefCount() int32 {
	return m.refCount.Load()
}

// Anchors returns the start hash table and the end anchor of the matcher in
// one pipeline.
func (m *Matcher) Anchors(dir device.Direction) (sHTBL, eAnchor htbl.Index, ok bool) {
	nm := m.nics[dir]
	if nm == nil {
		return htbl.Nil, htbl.Nil, false
	}
	return nm.sHTBL, nm.eAnchor, true
}

func (m *Matcher) String() string {
	return fmt.Sprintf("Matcher(priority=%d, criteria=%s)", m.priority, m.criteria)
}
