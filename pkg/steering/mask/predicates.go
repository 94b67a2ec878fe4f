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

package mask

// The predicates below never modify their argument and are safe to call on
// masks that have not been validated.

func IsSMACSet(s *Spec) bool {
	return s.SMACHi != 0 || s.SMACLo != 0
}

func IsDMACSet(s *Spec) bool {
	return s.DMACHi != 0 || s.DMACLo != 0
}

func IsSrcAddrSet(s *Spec) bool {
	return s.SrcIP != [4]uint32{}
}

func IsDstAddrSet(s *Spec) bool {
	return s.DstIP != [4]uint32{}
}

// IsIPv6OnlySet reports whether any address word outside the low 32 bits is
// set, which only an IPv6 rule can match.
func IsIPv6OnlySet(s *Spec) bool {
	return s.SrcIP[0] != 0 || s.SrcIP[1] != 0 || s.SrcIP[2] != 0 ||
		s.DstIP[0] != 0 || s.DstIP[1] != 0 || s.DstIP[2] != 0
}

func IsL3BaseSet(s *Spec) bool {
	return s.IPProtocol != 0 || s.Frag != 0 || s.TCPFlags != 0 ||
		s.IPECN != 0 || s.IPDSCP != 0
}

func IsTCPUDPBaseSet(s *Spec) bool {
	return s.TCPSport != 0 || s.TCPDport != 0 ||
		s.UDPSport != 0 || s.UDPDport != 0
}

func IsIPv4Set(s *Spec) bool {
	return s.DstIP[3] != 0 || s.SrcIP[3] != 0
}

func IsIPv4FiveTupleSet(s *Spec) bool {
	return IsL3BaseSet(s) || IsTCPUDPBaseSet(s) || IsIPv4Set(s)
}

func IsTTLSet(s *Spec) bool {
	return s.TTLHoplimit != 0
}

// IsEthL2TunnelSet reports whether the VXLAN VNI is matched.
func IsEthL2TunnelSet(m *Misc) bool {
	return m.VXLANVNI != 0
}

func isFirstVLANSet(s *Spec) bool {
	return s.FirstVID != 0 || s.FirstCFI != 0 || s.FirstPrio != 0 ||
		s.CVLANTag != 0 || s.SVLANTag != 0
}

func isVLANSet(v *VLAN) bool {
	return *v != VLAN{}
}

// IsL2DstSet reports whether the L2 destination group of a layer is matched:
// VLAN headers, destination MAC, ethertype or ip_version.
func IsL2DstSet(p *Param, inner bool) bool {
	s := p.Spec(inner)
	return isFirstVLANSet(s) || IsDMACSet(s) || s.Ethertype != 0 ||
		s.IPVersion != 0 || isVLANSet(p.Misc.SecondVLAN(inner))
}

// IsEthL4Set reports whether the IPv6 L3/L4 extras of a layer are matched.
func IsEthL4Set(p *Param, inner bool) bool {
	s := p.Spec(inner)
	return IsL3BaseSet(s) || IsTCPUDPBaseSet(s) || IsTTLSet(s) ||
		*p.Misc.IPv6FlowLabel(inner) != 0
}

func IsEthL4MiscSet(p *Param, inner bool) bool {
	return *p.Misc3.TCPSeqNum(inner) != 0 || *p.Misc3.TCPAckNum(inner) != 0
}

func IsFirstMPLSSet(p *Param, inner bool) bool {
	return *p.Misc2.FirstMPLS(inner) != MPLS{}
}

func IsTunnelGRESet(m *Misc) bool {
	return m.GREKeyHi != 0 || m.GREKeyLo != 0 || m.GREProtocol != 0 ||
		m.GRECPresent != 0 || m.GREKPresent != 0 || m.GRESPresent != 0
}

func IsMPLSOverGRESet(m *Misc2) bool {
	return m.OuterFirstMPLSOverGRE != MPLS{}
}

func IsMPLSOverUDPSet(m *Misc2) bool {
	return m.OuterFirstMPLSOverUDP != MPLS{}
}

func IsVXLANGPESet(m *Misc3) bool {
	return m.OuterVXLANGPEVNI != 0 || m.OuterVXLANGPENextProto != 0 ||
		m.OuterVXLANGPEFlags != 0
}

func IsGeneveSet(m *Misc) bool {
	return m.GeneveVNI != 0 || m.GeneveOAM != 0 ||
		m.GeneveProtocolType != 0 || m.GeneveOptLen != 0
}

func IsGeneveTLVOptionSet(m *Misc3) bool {
	return m.GeneveTLVOption0Data != 0
}

func IsICMPv4Set(m *Misc3) bool {
	return m.ICMPv4Type != 0 || m.ICMPv4Code != 0 || m.ICMPv4HeaderData != 0
}

func IsICMPv6Set(m *Misc3) bool {
	return m.ICMPv6Type != 0 || m.ICMPv6Code != 0 || m.ICMPv6HeaderData != 0
}

// IsWQEMetadataSet reports whether the general purpose register is matched.
func IsWQEMetadataSet(m *Misc2) bool {
	return m.MetadataRegA != 0
}

func IsRegC0To3Set(m *Misc2) bool {
	return m.MetadataRegC[0] != 0 || m.MetadataRegC[1] != 0 ||
		m.MetadataRegC[2] != 0 || m.MetadataRegC[3] != 0
}

func IsRegC4To7Set(m *Misc2) bool {
	return m.MetadataRegC[4] != 0 || m.MetadataRegC[5] != 0 ||
		m.MetadataRegC[6] != 0 || m.MetadataRegC[7] != 0
}

// IsGVMIOrQPNSet reports whether the source port or source send queue is
// matched.
func IsGVMIOrQPNSet(m *Misc) bool {
	return m.SourceSQN != 0 || m.SourcePort != 0
}

// IsFlexParserID0To3Set reports whether one sample belongs to flex parsers
// 0-3. Parser id 0 cannot be told apart from an unset id, so for it the
// sampled value decides.
func IsFlexParserID0To3Set(s *ProgSample) bool {
	if s.FieldID != 0 {
		return s.FieldID < 4
	}
	return s.FieldValue != 0
}

func IsFlexParser0To3Set(m *Misc4) bool {
	for i := range m.ProgSample {
		if IsFlexParserID0To3Set(&m.ProgSample[i]) {
			return true
		}
	}
	return false
}

func IsFlexParserID4To7Set(s *ProgSample) bool {
	return s.FieldID >= 4 && s.FieldID < 8
}

func IsFlexParser4To7Set(m *Misc4) bool {
	for i := range m.ProgSample {
		if IsFlexParserID4To7Set(&m.ProgSample[i]) {
			return true
		}
	}
	return false
}
