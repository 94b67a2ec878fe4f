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

// Package mask defines the match parameter layout used by steering matchers
// and the field-presence predicates evaluated over it.
//
// A field value of zero means "don't care". Any nonzero value means the field
// participates in matching.
package mask

// IPVersionWildcard in an ip_version mask means the rule may carry either
// IPv4 or IPv6.
const IPVersionWildcard uint8 = 0xf

// IPVersion is the address family a builder set is specialized for.
type IPVersion int

const (
	IPv4 IPVersion = iota
	IPv6
	IPVersionMax
)

func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return "Unknown"
	}
}

// Spec holds the L2-L4 fields of one encapsulation layer.
type Spec struct {
	SMACHi      uint32 `mapstructure:"smac_47_16"`
	SMACLo      uint16 `mapstructure:"smac_15_0"`
	Ethertype   uint16 `mapstructure:"ethertype"`
	DMACHi      uint32 `mapstructure:"dmac_47_16"`
	DMACLo      uint16 `mapstructure:"dmac_15_0"`
	FirstPrio   uint8  `mapstructure:"first_prio"`
	FirstCFI    uint8  `mapstructure:"first_cfi"`
	FirstVID    uint16 `mapstructure:"first_vid"`
	IPProtocol  uint8  `mapstructure:"ip_protocol"`
	IPDSCP      uint8  `mapstructure:"ip_dscp"`
	IPECN       uint8  `mapstructure:"ip_ecn"`
	CVLANTag    uint8  `mapstructure:"cvlan_tag"`
	SVLANTag    uint8  `mapstructure:"svlan_tag"`
	Frag        uint8  `mapstructure:"frag"`
	IPVersion   uint8  `mapstructure:"ip_version"`
	TCPFlags    uint16 `mapstructure:"tcp_flags"`
	TCPSport    uint16 `mapstructure:"tcp_sport"`
	TCPDport    uint16 `mapstructure:"tcp_dport"`
	TTLHoplimit uint8  `mapstructure:"ttl_hoplimit"`
	UDPSport    uint16 `mapstructure:"udp_sport"`
	UDPDport    uint16 `mapstructure:"udp_dport"`
	// SrcIP and DstIP are stored most significant word first: index 0 holds
	// bits 127..96 and index 3 holds bits 31..0, which is where an IPv4
	// address lives.
	SrcIP [4]uint32 `mapstructure:"src_ip"`
	DstIP [4]uint32 `mapstructure:"dst_ip"`
}

// VLAN is a second VLAN header of one layer.
type VLAN struct {
	Prio     uint8  `mapstructure:"prio"`
	CFI      uint8  `mapstructure:"cfi"`
	VID      uint16 `mapstructure:"vid"`
	CVLANTag uint8  `mapstructure:"cvlan_tag"`
	SVLANTag uint8  `mapstructure:"svlan_tag"`
}

// Misc holds tunnel and source-port metadata.
type Misc struct {
	GRECPresent              uint8  `mapstructure:"gre_c_present"`
	GREKPresent              uint8  `mapstructure:"gre_k_present"`
	GRESPresent              uint8  `mapstructure:"gre_s_present"`
	SourceSQN                uint32 `mapstructure:"source_sqn"`
	SourceEswitchOwnerVHCAID uint16 `mapstructure:"source_eswitch_owner_vhca_id"`
	SourcePort               uint16 `mapstructure:"source_port"`
	OuterSecondVLAN          VLAN   `mapstructure:"outer_second_vlan"`
	InnerSecondVLAN          VLAN   `mapstructure:"inner_second_vlan"`
	GREProtocol              uint16 `mapstructure:"gre_protocol"`
	GREKeyHi                 uint32 `mapstructure:"gre_key_h"`
	GREKeyLo                 uint8  `mapstructure:"gre_key_l"`
	VXLANVNI                 uint32 `mapstructure:"vxlan_vni"`
	GeneveVNI                uint32 `mapstructure:"geneve_vni"`
	GeneveOAM                uint8  `mapstructure:"geneve_oam"`
	OuterIPv6FlowLabel       uint32 `mapstructure:"outer_ipv6_flow_label"`
	InnerIPv6FlowLabel       uint32 `mapstructure:"inner_ipv6_flow_label"`
	GeneveOptLen             uint8  `mapstructure:"geneve_opt_len"`
	GeneveProtocolType       uint16 `mapstructure:"geneve_protocol_type"`
	BTHDstQP                 uint32 `mapstructure:"bth_dst_qp"`
}

// SecondVLAN returns the second VLAN header mask of the given layer.
func (m *Misc) SecondVLAN(inner bool) *VLAN {
	if inner {
		return &m.InnerSecondVLAN
	}
	return &m.OuterSecondVLAN
}

// IPv6FlowLabel returns the flow label mask of the given layer.
func (m *Misc) IPv6FlowLabel(inner bool) *uint32 {
	if inner {
		return &m.InnerIPv6FlowLabel
	}
	return &m.OuterIPv6FlowLabel
}

// MPLS is the first MPLS label of a label stack.
type MPLS struct {
	Label uint32 `mapstructure:"label"`
	Exp   uint8  `mapstructure:"exp"`
	SBOS  uint8  `mapstructure:"s_bos"`
	TTL   uint8  `mapstructure:"ttl"`
}

// Misc2 holds MPLS and metadata register fields.
type Misc2 struct {
	OuterFirstMPLS        MPLS      `mapstructure:"outer_first_mpls"`
	InnerFirstMPLS        MPLS      `mapstructure:"inner_first_mpls"`
	OuterFirstMPLSOverGRE MPLS      `mapstructure:"outer_first_mpls_over_gre"`
	OuterFirstMPLSOverUDP MPLS      `mapstructure:"outer_first_mpls_over_udp"`
	MetadataRegC          [8]uint32 `mapstructure:"metadata_reg_c"`
	MetadataRegA          uint32    `mapstructure:"metadata_reg_a"`
}

// FirstMPLS returns the first MPLS label mask of the given layer.
func (m *Misc2) FirstMPLS(inner bool) *MPLS {
	if inner {
		return &m.InnerFirstMPLS
	}
	return &m.OuterFirstMPLS
}

// Misc3 holds L4 sequence numbers, VXLAN-GPE, ICMP and GENEVE option fields.
type Misc3 struct {
	InnerTCPSeqNum         uint32 `mapstructure:"inner_tcp_seq_num"`
	OuterTCPSeqNum         uint32 `mapstructure:"outer_tcp_seq_num"`
	InnerTCPAckNum         uint32 `mapstructure:"inner_tcp_ack_num"`
	OuterTCPAckNum         uint32 `mapstructure:"outer_tcp_ack_num"`
	OuterVXLANGPEVNI       uint32 `mapstructure:"outer_vxlan_gpe_vni"`
	OuterVXLANGPENextProto uint8  `mapstructure:"outer_vxlan_gpe_next_protocol"`
	OuterVXLANGPEFlags     uint8  `mapstructure:"outer_vxlan_gpe_flags"`
	ICMPv4HeaderData       uint32 `mapstructure:"icmpv4_header_data"`
	ICMPv6HeaderData       uint32 `mapstructure:"icmpv6_header_data"`
	ICMPv4Type             uint8  `mapstructure:"icmpv4_type"`
	ICMPv4Code             uint8  `mapstructure:"icmpv4_code"`
	ICMPv6Type             uint8  `mapstructure:"icmpv6_type"`
	ICMPv6Code             uint8  `mapstructure:"icmpv6_code"`
	GeneveTLVOption0Data   uint32 `mapstructure:"geneve_tlv_option_0_data"`
}

// TCPSeqNum returns the TCP sequence number mask of the given layer.
func (m *Misc3) TCPSeqNum(inner bool) *uint32 {
	if inner {
		return &m.InnerTCPSeqNum
	}
	return &m.OuterTCPSeqNum
}

// TCPAckNum returns the TCP acknowledgement number mask of the given layer.
func (m *Misc3) TCPAckNum(inner bool) *uint32 {
	if inner {
		return &m.InnerTCPAckNum
	}
	return &m.OuterTCPAckNum
}

// ProgSample is one programmable flex parser sample.
type ProgSample struct {
	FieldID    uint32 `mapstructure:"field_id"`
	FieldValue uint32 `mapstructure:"field_value"`
}

// Misc4 holds the programmable flex parser samples.
type Misc4 struct {
	ProgSample [4]ProgSample `mapstructure:"prog_sample"`
}

// Param is the complete match parameter. Its big-endian packing is the
// byte layout accepted by FromBytes.
type Param struct {
	Outer Spec  `mapstructure:"outer"`
	Misc  Misc  `mapstructure:"misc"`
	Inner Spec  `mapstructure:"inner"`
	Misc2 Misc2 `mapstructure:"misc2"`
	Misc3 Misc3 `mapstructure:"misc3"`
	Misc4 Misc4 `mapstructure:"misc4"`
}

// Spec returns the L2-L4 record of the given layer.
func (p *Param) Spec(inner bool) *Spec {
	if inner {
		return &p.Inner
	}
	return &p.Outer
}

// IsConsumed reports whether every field of p is zero.
func (p *Param) IsConsumed() bool {
	return *p == Param{}
}
