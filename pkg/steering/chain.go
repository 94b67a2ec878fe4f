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
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/metrics"
	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
)

// The chain of a pipeline is
//
//	s_anchor -hit-> m1.s_htbl -miss-> m1.e_anchor -hit-> m2.s_htbl ... mN.e_anchor -miss-> default
//
// Rules of a matcher are added behind its start table, so a miss in the
// matcher always ends up in its end anchor.

func nicOf(m *Matcher, dir device.Direction) *nicMatcher {
	if m == nil {
		return nil
	}
	return m.nics[dir]
}

// prevAnchor returns the hash table whose hit link leads to the matcher
// after prev.
func (nt *nicTable) prevAnchor(prev *nicMatcher) htbl.Index {
	if prev != nil {
		return prev.eAnchor
	}
	return nt.sAnchor
}

// connect links curr between prev and next. The device is programmed in
// chain order from the end: the end anchor of curr first, then its start
// table, and last the anchor that makes curr reachable. Software links are
// only recorded once the three updates succeeded.
func (t *Table) connect(nt *nicTable, curr, next, prev *nicMatcher) error {
	pool := t.dmn.pool
	dir := nt.dir

	var info device.ConnectInfo
	if next != nil {
		info = device.ConnectInfo{Type: device.ConnectHit, HitAddr: pool.ICMAddr(next.sHTBL), MissAddr: nt.defaultAddr}
	} else {
		info = device.ConnectInfo{Type: device.ConnectMiss, MissAddr: nt.defaultAddr}
	}
	if err := t.postSend(dir, curr.eAnchor, info); err != nil {
		return err
	}

	eAnchorAddr := pool.ICMAddr(curr.eAnchor)
	if err := t.postSend(dir, curr.sHTBL, device.ConnectInfo{Type: device.ConnectMiss, MissAddr: eAnchorAddr}); err != nil {
		return err
	}

	prevHTBL := nt.prevAnchor(prev)
	info = device.ConnectInfo{Type: device.ConnectHit, HitAddr: pool.ICMAddr(curr.sHTBL), MissAddr: nt.defaultAddr}
	if err := t.postSend(dir, prevHTBL, info); err != nil {
		return err
	}

	if err := pool.SetMiss(curr.sHTBL, eAnchorAddr); err != nil {
		return err
	}
	if next != nil {
		if err := pool.SetHit(curr.eAnchor, next.sHTBL); err != nil {
			return err
		}
	} else if err := pool.SetMiss(curr.eAnchor, nt.defaultAddr); err != nil {
		return err
	}
	return pool.SetHit(prevHTBL, curr.sHTBL)
}

// disconnect makes the anchor before a matcher skip it, linking prev to next
// directly.
func (t *Table) disconnect(nt *nicTable, next, prev *nicMatcher) error {
	pool := t.dmn.pool
	prevHTBL := nt.prevAnchor(prev)
	if next != nil {
		info := device.ConnectInfo{Type: device.ConnectHit, HitAddr: pool.ICMAddr(next.sHTBL), MissAddr: nt.defaultAddr}
		if err := t.postSend(nt.dir, prevHTBL, info); err != nil {
			return err
		}
		return pool.SetHit(prevHTBL, next.sHTBL)
	}
	if err := t.postSend(nt.dir, prevHTBL, device.ConnectInfo{Type: device.ConnectMiss, MissAddr: nt.defaultAddr}); err != nil {
		return err
	}
	return pool.SetMiss(prevHTBL, nt.defaultAddr)
}

// addMatcher links m into the chain of every pipeline, receive first, and
// inserts it into the ordered matcher set. If a pipeline fails, the
// pipelines linked before are unlinked again.
func (t *Table) addMatcher(m *Matcher) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	m.seq = t.nextSeq
	t.nextSeq++
	prev, next := t.neighbours(m)

	var linked []device.Direction
	for _, dir := range t.dmn.typ.directions() {
		nt := t.nics[dir]
		if err := t.connect(nt, m.nics[dir], nicOf(next, dir), nicOf(prev, dir)); err != nil {
			for _, ldir := range linked {
				if uerr := t.disconnect(t.nics[ldir], nicOf(next, ldir), nicOf(prev, ldir)); uerr != nil {
					klog.ErrorS(uerr, "Failed to unlink matcher after a link failure", "direction", ldir, "priority", m.priority)
				}
			}
			return err
		}
		linked = append(linked, dir)
	}
	t.matchers.ReplaceOrInsert(m)
	m.state = stateLinked
	for _, dir := range linked {
		metrics.MatcherCount.WithLabelValues(dir.String()).Inc()
	}
	return nil
}

// removeMatcher unlinks m from the chain of every pipeline, receive first,
// and removes it from the ordered matcher set. If a pipeline fails, the
// pipelines unlinked before are linked again so that m stays fully linked.
func (t *Table) removeMatcher(m *Matcher) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, next := t.neighbours(m)
	var unlinked []device.Direction
	for _, dir := range t.dmn.typ.directions() {
		if err := t.disconnect(t.nics[dir], nicOf(next, dir), nicOf(prev, dir)); err != nil {
			for _, udir := range unlinked {
				if rerr := t.connect(t.nics[udir], m.nics[udir], nicOf(next, udir), nicOf(prev, udir)); rerr != nil {
					klog.ErrorS(rerr, "Failed to relink matcher after an unlink failure", "direction", udir, "priority", m.priority)
				}
			}
			return err
		}
		unlinked = append(unlinked, dir)
	}
	t.matchers.Delete(m)
	for _, dir := range unlinked {
		metrics.MatcherCount.WithLabelValues(dir.String()).Dec()
	}
	return nil
}
