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

// Package device describes the steering device consumed by the matcher
// compiler: its capability record and the synchronous commands used to
// program hash-table anchors and definer objects.
package device

import (
	"fmt"

	"antrea.io/steering/pkg/steering/mask"
)

//go:generate mockgen -destination testing/mock_device.go -package testing antrea.io/steering/pkg/steering/device Device

// Direction is one of the two NIC pipelines a steering table is attached to.
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
)

func (d Direction) String() string {
	switch d {
	case DirectionRX:
		return "rx"
	case DirectionTX:
		return "tx"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ConnectType selects which outcome of an anchor entry is programmed.
type ConnectType int

const (
	// ConnectHit makes a hit on the anchor continue to another hash table.
	ConnectHit ConnectType = iota
	// ConnectMiss makes every lookup in the table fall through to an ICM
	// address.
	ConnectMiss
)

func (t ConnectType) String() string {
	if t == ConnectHit {
		return "hit"
	}
	return "miss"
}

// ConnectInfo describes one anchor programming request.
type ConnectInfo struct {
	Type ConnectType
	// HitAddr is the ICM address of the next hash table when Type is
	// ConnectHit.
	HitAddr uint64
	// MissAddr is the ICM address jumped to on a miss. For ConnectHit it is
	// the miss address the anchor itself keeps.
	MissAddr uint64
}

// Device is the command interface of a steering device. Calls are
// synchronous round trips and are issued by the caller in a fixed order.
type Device interface {
	// QueryCaps returns the capability record of the device.
	QueryCaps() (*Caps, error)
	// CreateDefiner creates a definer object of the given format matching
	// the fields set in match and returns its id.
	CreateDefiner(formatID uint16, match *mask.Param) (uint32, error)
	// DestroyDefiner destroys a definer object.
	DestroyDefiner(id uint32) error
	// PostSend writes the first entry of the hash table at ICM address addr
	// in the given direction.
	PostSend(dir Direction, addr uint64, info ConnectInfo) error
}
