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

package device

import (
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/steering/mask"
)

// Simulator is an in-memory Device. It keeps the last programmed entry of
// every anchor and the set of live definer objects, so that tests and the
// steerctl command can inspect what would have been written to hardware.
type Simulator struct {
	mu      sync.Mutex
	caps    Caps
	anchors [2]map[uint64]ConnectInfo
	// definers maps a live definer id to its format.
	definers     map[uint32]uint16
	nextDefiner  uint32
	postSendCnt  int
	failPostSend func(n int, dir Direction, addr uint64, info ConnectInfo) bool
	failDefiner  func(formatID uint16) bool
}

// NewSimulator returns a Simulator reporting the given capabilities.
func NewSimulator(caps Caps) *Simulator {
	return &Simulator{
		caps:        caps,
		anchors:     [2]map[uint64]ConnectInfo{{}, {}},
		definers:    map[uint32]uint16{},
		nextDefiner: 1,
	}
}

// FailPostSendWhen makes PostSend fail whenever fn returns true. n is the
// 1-based sequence number of the PostSend call.
func (s *Simulator) FailPostSendWhen(fn func(n int, dir Direction, addr uint64, info ConnectInfo) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPostSend = fn
}

// FailCreateDefinerWhen makes CreateDefiner fail whenever fn returns true.
func (s *Simulator) FailCreateDefinerWhen(fn func(formatID uint16) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDefiner = fn
}

func (s *Simulator) QueryCaps() (*Caps, error) {
	c := s.caps
	return &c, nil
}

func (s *Simulator) CreateDefiner(formatID uint16, match *mask.Param) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.caps.SupportsDefiner(formatID) {
		return 0, fmt.Errorf("definer format %d is not supported", formatID)
	}
	if s.failDefiner != nil && s.failDefiner(formatID) {
		return 0, fmt.Errorf("injected failure creating definer of format %d", formatID)
	}
	id := s.nextDefiner
	s.nextDefiner++
	s.definers[id] = formatID
	klog.V(4).InfoS("Created definer", "id", id, "format", formatID)
	return id, nil
}

func (s *Simulator) DestroyDefiner(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definers[id]; !ok {
		return fmt.Errorf("definer %d does not exist", id)
	}
	delete(s.definers, id)
	klog.V(4).InfoS("Destroyed definer", "id", id)
	return nil
}

func (s *Simulator) PostSend(dir Direction, addr uint64, info ConnectInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != DirectionRX && dir != DirectionTX {
		return fmt.Errorf("invalid direction %v", dir)
	}
	s.postSendCnt++
	if s.failPostSend != nil && s.failPostSend(s.postSendCnt, dir, addr, info) {
		return fmt.Errorf("injected failure writing anchor 0x%x", addr)
	}
	s.anchors[dir][addr] = info
	return nil
}

// Anchor returns the last entry written at addr in the given direction.
func (s *Simulator) Anchor(dir Direction, addr uint64) (ConnectInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.anchors[dir][addr]
	return info, ok
}

// Definers returns the ids of all live definer objects.
func (s *Simulator) Definers() sets.Set[uint32] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := sets.New[uint32]()
	for id := range s.definers {
		ids.Insert(id)
	}
	return ids
}

// PostSendCount returns the number of PostSend calls issued so far.
func (s *Simulator) PostSendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postSendCnt
}
