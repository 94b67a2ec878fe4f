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

package devlinkport

import (
	"fmt"
	"sync"
)

// RecordingSink keeps port attributes in memory. It is used where no devlink
// device is available.
type RecordingSink struct {
	mutex sync.Mutex
	ports map[uint32]Attrs
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{ports: make(map[uint32]Attrs)}
}

func (s *RecordingSink) Register(index uint32, attrs Attrs) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.ports[index]; ok {
		return fmt.Errorf("port index %d is in use", index)
	}
	s.ports[index] = attrs
	return nil
}

func (s *RecordingSink) Unregister(index uint32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.ports[index]; !ok {
		return fmt.Errorf("port index %d is not registered", index)
	}
	delete(s.ports, index)
	return nil
}

func (s *RecordingSink) Get(index uint32) (Attrs, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	attrs, ok := s.ports[index]
	return attrs, ok
}

func (s *RecordingSink) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.ports)
}
