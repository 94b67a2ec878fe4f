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

package ste

import (
	"fmt"

	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/mask"
)

const (
	tagSize        = 16
	definerTagSize = 32
)

// Lookup type variants, selected by layer and direction.
const (
	luOuter = iota
	luInner
	luDecap
)

type consumeFunc func(m *mask.Param, caps *device.Caps, inner bool) error

type kindInfo struct {
	luBase  uint16
	consume consumeFunc
}

// softwareContext clears the consumed fields itself and derives the tag
// layout from the bytes that changed.
type softwareContext struct {
	kinds [kindMax]kindInfo
}

// NewContext returns a Context that encodes builders in software.
func NewContext() Context {
	c := &softwareContext{}
	c.kinds = [kindMax]kindInfo{
		KindEmptyAlwaysHit:        {0x00, consumeNothing},
		KindGeneralPurpose:        {0x18, consumeGeneralPurpose},
		KindRegister0:             {0x0f, consumeRegister0},
		KindRegister1:             {0x10, consumeRegister1},
		KindSrcGVMIQPN:            {0x11, consumeSrcGVMIQPN},
		KindEthL2SrcDst:           {0x01, consumeEthL2SrcDst},
		KindEthL2Src:              {0x02, consumeEthL2Src},
		KindEthL2Dst:              {0x03, consumeEthL2Dst},
		KindEthL2Tunnel:           {0x04, consumeEthL2Tunnel},
		KindEthL3IPv4FiveTuple:    {0x05, consumeIPv4FiveTuple},
		KindEthL3IPv4Misc:         {0x06, consumeIPv4Misc},
		KindEthL3IPv6Dst:          {0x07, consumeIPv6Dst},
		KindEthL3IPv6Src:          {0x08, consumeIPv6Src},
		KindEthIPv6L3L4:           {0x09, consumeIPv6L3L4},
		KindEthL4Misc:             {0x0a, consumeEthL4Misc},
		KindMPLS:                  {0x0b, consumeMPLS},
		KindTunnelVXLANGPE:        {0x12, consumeVXLANGPE},
		KindTunnelGeneve:          {0x13, consumeGeneve},
		KindTunnelGeneveTLVOption: {0x14, consumeGeneveTLVOption},
		KindTunnelMPLSOverGRE:     {0x15, consumeMPLSOverGRE},
		KindTunnelMPLSOverUDP:     {0x16, consumeMPLSOverUDP},
		KindICMP:                  {0x17, consumeICMP},
		KindTunnelGRE:             {0x0c, consumeGRE},
		KindFlexParser0:           {0x0d, consumeFlexParser0},
		KindFlexParser1:           {0x0e, consumeFlexParser1},
		KindDefiner0:              {0, consumeDefiner0},
		KindDefiner6:              {0, consumeDefiner6},
		KindDefiner22:             {0, consumeDefiner22},
		KindDefiner24:             {0, consumeDefiner24},
		KindDefiner25:             {0, consumeDefiner25},
		KindDefiner26:             {0, consumeDefiner26},
	}
	return c
}

func (c *softwareContext) Build(sb *Builder, kind Kind, m *mask.Param, caps *device.Caps, inner, rx bool) error {
	if kind < 0 || kind >= kindMax {
		return fmt.Errorf("unknown builder kind %d", int(kind))
	}
	info := c.kinds[kind]
	before := m.Bytes()
	work := *m
	if err := info.consume(&work, caps, inner); err != nil {
		return fmt.Errorf("building %s: %w", kind, err)
	}
	after := work.Bytes()

	consumed := make([]byte, len(before))
	*sb = Builder{Kind: kind, Inner: inner, RX: rx, HTBLType: htbl.TypeLegacy}
	size := tagSize
	if kind.IsDefiner() {
		size = definerTagSize
		sb.FormatID = kind.DefinerFormat()
	}
	n := 0
	for i := range before {
		if before[i] == after[i] {
			continue
		}
		consumed[i] = before[i] &^ after[i]
		if consumed[i] != 0 {
			sb.ByteMask |= 1 << (n % 16)
			n++
		}
	}
	if n > size {
		n = size
	}
	sb.KeyLen = n
	match, err := mask.FromBytes(mask.CriteriaMax-1, consumed)
	if err != nil {
		return err
	}
	sb.Match = *match
	if kind == KindEmptyAlwaysHit {
		sb.LookupType = htbl.LookupTypeDontCare
	} else if !kind.IsDefiner() {
		sb.LookupType = lookupType(info.luBase, inner, rx)
	}
	*m = work
	return nil
}

func lookupType(base uint16, inner, rx bool) uint16 {
	variant := uint16(luOuter)
	if inner {
		variant = luInner
	} else if rx {
		variant = luDecap
	}
	return base<<4 | variant
}

func validFlexParserID(id uint8) bool {
	return id < 8
}

func consumeNothing(*mask.Param, *device.Caps, bool) error {
	return nil
}

func consumeGeneralPurpose(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Misc2.MetadataRegA = 0
	return nil
}

func consumeRegister0(m *mask.Param, _ *device.Caps, _ bool) error {
	for i := 0; i < 4; i++ {
		m.Misc2.MetadataRegC[i] = 0
	}
	return nil
}

func consumeRegister1(m *mask.Param, _ *device.Caps, _ bool) error {
	for i := 4; i < 8; i++ {
		m.Misc2.MetadataRegC[i] = 0
	}
	return nil
}

func consumeSrcGVMIQPN(m *mask.Param, caps *device.Caps, _ bool) error {
	if m.Misc.SourceEswitchOwnerVHCAID != 0 && !caps.VHCAIDValid {
		return fmt.Errorf("%w: source_eswitch_owner_vhca_id requires a valid vhca id", ErrUnsupported)
	}
	m.Misc.SourceSQN = 0
	m.Misc.SourcePort = 0
	m.Misc.SourceEswitchOwnerVHCAID = 0
	return nil
}

func clearFirstVLAN(s *mask.Spec) {
	s.FirstVID = 0
	s.FirstCFI = 0
	s.FirstPrio = 0
	s.CVLANTag = 0
	s.SVLANTag = 0
}

func consumeEthL2SrcDst(m *mask.Param, _ *device.Caps, inner bool) error {
	s := m.Spec(inner)
	s.SMACHi, s.SMACLo = 0, 0
	s.DMACHi, s.DMACLo = 0, 0
	clearFirstVLAN(s)
	s.IPVersion = 0
	return nil
}

func consumeEthL2Src(m *mask.Param, _ *device.Caps, inner bool) error {
	s := m.Spec(inner)
	s.SMACHi, s.SMACLo = 0, 0
	clearFirstVLAN(s)
	*m.Misc.SecondVLAN(inner) = mask.VLAN{}
	s.Ethertype = 0
	s.IPVersion = 0
	return nil
}

func consumeEthL2Dst(m *mask.Param, _ *device.Caps, inner bool) error {
	s := m.Spec(inner)
	s.DMACHi, s.DMACLo = 0, 0
	clearFirstVLAN(s)
	*m.Misc.SecondVLAN(inner) = mask.VLAN{}
	s.Ethertype = 0
	s.IPVersion = 0
	return nil
}

// consumeEthL2Tunnel takes the VXLAN VNI together with the L2 header
// following it.
func consumeEthL2Tunnel(m *mask.Param, _ *device.Caps, _ bool) error {
	s := &m.Inner
	m.Misc.VXLANVNI = 0
	s.DMACHi, s.DMACLo = 0, 0
	clearFirstVLAN(s)
	s.Ethertype = 0
	s.IPVersion = 0
	return nil
}

func clearL3Base(s *mask.Spec) {
	s.IPProtocol = 0
	s.Frag = 0
	s.TCPFlags = 0
	s.IPECN = 0
	s.IPDSCP = 0
}

func clearL4Base(s *mask.Spec) {
	s.TCPSport, s.TCPDport = 0, 0
	s.UDPSport, s.UDPDport = 0, 0
}

func consumeIPv4FiveTuple(m *mask.Param, _ *device.Caps, inner bool) error {
	s := m.Spec(inner)
	s.SrcIP[3] = 0
	s.DstIP[3] = 0
	clearL3Base(s)
	clearL4Base(s)
	return nil
}

func consumeIPv4Misc(m *mask.Param, _ *device.Caps, inner bool) error {
	m.Spec(inner).TTLHoplimit = 0
	return nil
}

func consumeIPv6Dst(m *mask.Param, _ *device.Caps, inner bool) error {
	m.Spec(inner).DstIP = [4]uint32{}
	return nil
}

func consumeIPv6Src(m *mask.Param, _ *device.Caps, inner bool) error {
	m.Spec(inner).SrcIP = [4]uint32{}
	return nil
}

func consumeIPv6L3L4(m *mask.Param, _ *device.Caps, inner bool) error {
	s := m.Spec(inner)
	clearL3Base(s)
	clearL4Base(s)
	s.TTLHoplimit = 0
	*m.Misc.IPv6FlowLabel(inner) = 0
	return nil
}

func consumeEthL4Misc(m *mask.Param, _ *device.Caps, inner bool) error {
	*m.Misc3.TCPSeqNum(inner) = 0
	*m.Misc3.TCPAckNum(inner) = 0
	return nil
}

func consumeMPLS(m *mask.Param, _ *device.Caps, inner bool) error {
	*m.Misc2.FirstMPLS(inner) = mask.MPLS{}
	return nil
}

func consumeVXLANGPE(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Misc3.OuterVXLANGPEVNI = 0
	m.Misc3.OuterVXLANGPENextProto = 0
	m.Misc3.OuterVXLANGPEFlags = 0
	return nil
}

func consumeGeneve(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Misc.GeneveVNI = 0
	m.Misc.GeneveOAM = 0
	m.Misc.GeneveProtocolType = 0
	m.Misc.GeneveOptLen = 0
	return nil
}

func consumeGeneveTLVOption(m *mask.Param, caps *device.Caps, _ bool) error {
	if !validFlexParserID(caps.FlexParserIDGeneveTLVOption0) {
		return fmt.Errorf("%w: no flex parser assigned to GENEVE TLV option 0", ErrUnsupported)
	}
	m.Misc3.GeneveTLVOption0Data = 0
	return nil
}

func consumeMPLSOverGRE(m *mask.Param, caps *device.Caps, _ bool) error {
	if !validFlexParserID(caps.FlexParserIDMPLSOverGRE) {
		return fmt.Errorf("%w: no flex parser assigned to MPLS over GRE", ErrUnsupported)
	}
	m.Misc2.OuterFirstMPLSOverGRE = mask.MPLS{}
	return nil
}

func consumeMPLSOverUDP(m *mask.Param, caps *device.Caps, _ bool) error {
	if !validFlexParserID(caps.FlexParserIDMPLSOverUDPLabel) {
		return fmt.Errorf("%w: no flex parser assigned to MPLS over UDP", ErrUnsupported)
	}
	m.Misc2.OuterFirstMPLSOverUDP = mask.MPLS{}
	return nil
}

func consumeICMP(m *mask.Param, caps *device.Caps, _ bool) error {
	m3 := &m.Misc3
	if mask.IsICMPv4Set(m3) {
		if !validFlexParserID(caps.FlexParserIDICMPDW0) || !validFlexParserID(caps.FlexParserIDICMPDW1) {
			return fmt.Errorf("%w: no flex parser assigned to ICMPv4", ErrUnsupported)
		}
		m3.ICMPv4Type, m3.ICMPv4Code, m3.ICMPv4HeaderData = 0, 0, 0
		return nil
	}
	if !validFlexParserID(caps.FlexParserIDICMPv6DW0) || !validFlexParserID(caps.FlexParserIDICMPv6DW1) {
		return fmt.Errorf("%w: no flex parser assigned to ICMPv6", ErrUnsupported)
	}
	m3.ICMPv6Type, m3.ICMPv6Code, m3.ICMPv6HeaderData = 0, 0, 0
	return nil
}

func consumeGRE(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Misc.GREKeyHi, m.Misc.GREKeyLo = 0, 0
	m.Misc.GREProtocol = 0
	m.Misc.GRECPresent, m.Misc.GREKPresent, m.Misc.GRESPresent = 0, 0, 0
	return nil
}

func consumeFlexParser0(m *mask.Param, _ *device.Caps, _ bool) error {
	for i := range m.Misc4.ProgSample {
		if mask.IsFlexParserID0To3Set(&m.Misc4.ProgSample[i]) {
			m.Misc4.ProgSample[i] = mask.ProgSample{}
		}
	}
	return nil
}

func consumeFlexParser1(m *mask.Param, _ *device.Caps, _ bool) error {
	for i := range m.Misc4.ProgSample {
		if mask.IsFlexParserID4To7Set(&m.Misc4.ProgSample[i]) {
			m.Misc4.ProgSample[i] = mask.ProgSample{}
		}
	}
	return nil
}

func clearL2(s *mask.Spec) {
	s.SMACHi, s.SMACLo = 0, 0
	s.DMACHi, s.DMACLo = 0, 0
	clearFirstVLAN(s)
	s.Ethertype = 0
	s.IPVersion = 0
}

func clearIPv4FiveTuple(s *mask.Spec) {
	s.SrcIP[3], s.DstIP[3] = 0, 0
	clearL3Base(s)
	clearL4Base(s)
}

// consumeDefiner0 covers the outer L2 header, the outer IPv4 5-tuple and the
// source port.
func consumeDefiner0(m *mask.Param, _ *device.Caps, _ bool) error {
	clearL2(&m.Outer)
	clearIPv4FiveTuple(&m.Outer)
	m.Misc.SourcePort = 0
	m.Misc.SourceSQN = 0
	return nil
}

// consumeDefiner22 covers the outer IPv4 5-tuple and all metadata registers.
func consumeDefiner22(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Outer.IPVersion = 0
	m.Outer.Ethertype = 0
	clearIPv4FiveTuple(&m.Outer)
	m.Misc2.MetadataRegC = [8]uint32{}
	m.Misc2.MetadataRegA = 0
	return nil
}

// consumeDefiner24 covers the outer L2 header, the tunnel VNIs and the inner
// IPv4 5-tuple.
func consumeDefiner24(m *mask.Param, _ *device.Caps, _ bool) error {
	clearL2(&m.Outer)
	m.Misc.VXLANVNI = 0
	m.Misc.GeneveVNI = 0
	m.Inner.IPVersion = 0
	clearIPv4FiveTuple(&m.Inner)
	return nil
}

// consumeDefiner25 covers the outer IPv4 addresses, the inner L2 header and
// the inner IPv4 5-tuple.
func consumeDefiner25(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Outer.IPVersion = 0
	m.Outer.SrcIP[3], m.Outer.DstIP[3] = 0, 0
	clearL2(&m.Inner)
	clearIPv4FiveTuple(&m.Inner)
	m.Misc.SourcePort = 0
	return nil
}

// consumeDefiner26 covers the outer IPv6 source address and the outer L4
// ports.
func consumeDefiner26(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Outer.IPVersion = 0
	m.Outer.Ethertype = 0
	m.Outer.SrcIP = [4]uint32{}
	clearL3Base(&m.Outer)
	clearL4Base(&m.Outer)
	return nil
}

// consumeDefiner6 covers the outer IPv6 destination address and hop limit.
func consumeDefiner6(m *mask.Param, _ *device.Caps, _ bool) error {
	m.Outer.DstIP = [4]uint32{}
	m.Outer.TTLHoplimit = 0
	return nil
}
