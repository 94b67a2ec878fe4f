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

// Package devlinkport exposes the vports of an eswitch as devlink ports. The
// attributes of every port are computed here and handed to an AttrSink,
// which publishes them to the management interface of the environment.
package devlinkport

import (
	"fmt"
	"strings"
)

// Flavour values match the devlink port flavours of the kernel uAPI.
type Flavour uint16

const (
	FlavourPhysical Flavour = 0
	FlavourPCIPF    Flavour = 3
	FlavourPCIVF    Flavour = 4
	FlavourPCISF    Flavour = 7
)

func (f Flavour) String() string {
	switch f {
	case FlavourPhysical:
		return "physical"
	case FlavourPCIPF:
		return "pcipf"
	case FlavourPCIVF:
		return "pcivf"
	case FlavourPCISF:
		return "pcisf"
	default:
		return fmt.Sprintf("Flavour(%d)", uint16(f))
	}
}

// SwitchID is the parent id shared by all ports of one eswitch.
type SwitchID [8]byte

func (id SwitchID) String() string {
	var b strings.Builder
	for _, c := range id {
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// Attrs are the devlink attributes of a port. Fields that do not apply to
// the flavour are left zero.
type Attrs struct {
	Flavour    Flavour
	SwitchID   SwitchID
	PortNumber uint32
	Controller uint32
	PFNumber   uint16
	VFNumber   uint16
	SFNumber   uint32
	External   bool
}

func (a Attrs) String() string {
	switch a.Flavour {
	case FlavourPhysical:
		return fmt.Sprintf("%s port %d switch %s", a.Flavour, a.PortNumber, a.SwitchID)
	case FlavourPCIPF:
		return fmt.Sprintf("%s controller %d pf %d external %t switch %s", a.Flavour, a.Controller, a.PFNumber, a.External, a.SwitchID)
	case FlavourPCIVF:
		return fmt.Sprintf("%s controller %d pf %d vf %d external %t switch %s", a.Flavour, a.Controller, a.PFNumber, a.VFNumber, a.External, a.SwitchID)
	case FlavourPCISF:
		return fmt.Sprintf("%s controller %d pf %d sf %d external %t switch %s", a.Flavour, a.Controller, a.PFNumber, a.SFNumber, a.External, a.SwitchID)
	}
	return a.Flavour.String()
}

// AttrSink publishes port attributes. index is the devlink port index.
type AttrSink interface {
	Register(index uint32, attrs Attrs) error
	Unregister(index uint32) error
}
