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

// Package ste defines the steering entry (STE) builders produced by the
// matcher compiler and the Context that encodes them.
package ste

import (
	"errors"
	"fmt"

	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/mask"
)

// MaxBuilders is the number of builder slots of one builder set.
const MaxBuilders = 16

// ErrUnsupported is returned by a Context that cannot encode a builder with
// the device capabilities at hand.
var ErrUnsupported = errors.New("builder not supported")

// Kind is the field group a builder extracts.
type Kind int

const (
	KindEmptyAlwaysHit Kind = iota
	KindGeneralPurpose
	KindRegister0
	KindRegister1
	KindSrcGVMIQPN
	KindEthL2SrcDst
	KindEthL2Src
	KindEthL2Dst
	KindEthL2Tunnel
	KindEthL3IPv4FiveTuple
	KindEthL3IPv4Misc
	KindEthL3IPv6Dst
	KindEthL3IPv6Src
	KindEthIPv6L3L4
	KindEthL4Misc
	KindMPLS
	KindTunnelVXLANGPE
	KindTunnelGeneve
	KindTunnelGeneveTLVOption
	KindTunnelMPLSOverGRE
	KindTunnelMPLSOverUDP
	KindICMP
	KindTunnelGRE
	KindFlexParser0
	KindFlexParser1
	KindDefiner0
	KindDefiner6
	KindDefiner22
	KindDefiner24
	KindDefiner25
	KindDefiner26
	kindMax
)

var kindNames = [kindMax]string{
	KindEmptyAlwaysHit:        "empty_always_hit",
	KindGeneralPurpose:        "general_purpose",
	KindRegister0:             "register_0",
	KindRegister1:             "register_1",
	KindSrcGVMIQPN:            "src_gvmi_qpn",
	KindEthL2SrcDst:           "eth_l2_src_dst",
	KindEthL2Src:              "eth_l2_src",
	KindEthL2Dst:              "eth_l2_dst",
	KindEthL2Tunnel:           "eth_l2_tnl",
	KindEthL3IPv4FiveTuple:    "eth_l3_ipv4_5_tuple",
	KindEthL3IPv4Misc:         "eth_l3_ipv4_misc",
	KindEthL3IPv6Dst:          "eth_l3_ipv6_dst",
	KindEthL3IPv6Src:          "eth_l3_ipv6_src",
	KindEthIPv6L3L4:           "eth_ipv6_l3_l4",
	KindEthL4Misc:             "eth_l4_misc",
	KindMPLS:                  "mpls",
	KindTunnelVXLANGPE:        "tnl_vxlan_gpe",
	KindTunnelGeneve:          "tnl_geneve",
	KindTunnelGeneveTLVOption: "tnl_geneve_tlv_option",
	KindTunnelMPLSOverGRE:     "tnl_mpls_over_gre",
	KindTunnelMPLSOverUDP:     "tnl_mpls_over_udp",
	KindICMP:                  "icmp",
	KindTunnelGRE:             "tnl_gre",
	KindFlexParser0:           "flex_parser_0",
	KindFlexParser1:           "flex_parser_1",
	KindDefiner0:              "def0",
	KindDefiner6:              "def6",
	KindDefiner22:             "def22",
	KindDefiner24:             "def24",
	KindDefiner25:             "def25",
	KindDefiner26:             "def26",
}

func (k Kind) String() string {
	if k < 0 || k >= kindMax {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsDefiner reports whether builders of this kind are backed by a definer
// object.
func (k Kind) IsDefiner() bool {
	return k >= KindDefiner0 && k <= KindDefiner26
}

// Definer formats understood by the definer builders.
const (
	DefinerFormat0  uint16 = 0
	DefinerFormat6  uint16 = 6
	DefinerFormat22 uint16 = 22
	DefinerFormat24 uint16 = 24
	DefinerFormat25 uint16 = 25
	DefinerFormat26 uint16 = 26
)

// DefinerFormat returns the definer format of a definer kind.
func (k Kind) DefinerFormat() uint16 {
	switch k {
	case KindDefiner6:
		return DefinerFormat6
	case KindDefiner22:
		return DefinerFormat22
	case KindDefiner24:
		return DefinerFormat24
	case KindDefiner25:
		return DefinerFormat25
	case KindDefiner26:
		return DefinerFormat26
	}
	return DefinerFormat0
}

// LookupTypeMatch is or'ed with a definer id to form the lookup type of a
// definer backed builder.
const LookupTypeMatch uint16 = 0x8000

// Builder is one compiled steering entry template.
type Builder struct {
	Kind  Kind
	Inner bool
	RX    bool
	// LookupType tags the entries built from this template.
	LookupType uint16
	HTBLType   htbl.Type
	// ByteMask has a bit set for every tag byte the entry compares.
	ByteMask uint16
	// FormatID and DefinerID are only meaningful for definer builders.
	FormatID  uint16
	DefinerID uint32
	// Match holds the mask bits this builder consumed.
	Match mask.Param
	// KeyLen is the number of key bytes contributed to the lookup.
	KeyLen int
}

func (b *Builder) String() string {
	layer := "outer"
	if b.Inner {
		layer = "inner"
	}
	s := fmt.Sprintf("%s(%s, lu=0x%04x, byte_mask=0x%04x, key_len=%d", b.Kind, layer, b.LookupType, b.ByteMask, b.KeyLen)
	if b.HTBLType == htbl.TypeMatch {
		s += fmt.Sprintf(", definer=%d, format=%d", b.DefinerID, b.FormatID)
	}
	return s + ")"
}

// Context encodes builders. Build fills sb for the given kind and clears the
// mask bits the builder consumes from m.
type Context interface {
	Build(sb *Builder, kind Kind, m *mask.Param, caps *device.Caps, inner, rx bool) error
}
