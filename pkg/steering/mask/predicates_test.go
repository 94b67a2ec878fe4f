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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerPredicates(t *testing.T) {
	tests := []struct {
		name      string
		set       func(p *Param)
		inner     bool
		predicate func(p *Param, inner bool) bool
		expected  bool
	}{
		{
			name:      "second vlan makes l2 dst set",
			set:       func(p *Param) { p.Misc.InnerSecondVLAN.VID = 1 },
			inner:     true,
			predicate: IsL2DstSet,
			expected:  true,
		},
		{
			name:      "second vlan of the other layer",
			set:       func(p *Param) { p.Misc.OuterSecondVLAN.VID = 1 },
			inner:     true,
			predicate: IsL2DstSet,
		},
		{
			name:      "ip_version makes l2 dst set",
			set:       func(p *Param) { p.Outer.IPVersion = 6 },
			predicate: IsL2DstSet,
			expected:  true,
		},
		{
			name:      "source mac alone",
			set:       func(p *Param) { p.Outer.SMACLo = 0xffff },
			predicate: IsL2DstSet,
		},
		{
			name:      "flow label",
			set:       func(p *Param) { p.Misc.OuterIPv6FlowLabel = 0xfffff },
			predicate: IsEthL4Set,
			expected:  true,
		},
		{
			name:      "hop limit",
			set:       func(p *Param) { p.Inner.TTLHoplimit = 0xff },
			inner:     true,
			predicate: IsEthL4Set,
			expected:  true,
		},
		{
			name:      "inner ack number",
			set:       func(p *Param) { p.Misc3.InnerTCPAckNum = 1 },
			inner:     true,
			predicate: IsEthL4MiscSet,
			expected:  true,
		},
		{
			name:      "outer mpls ttl",
			set:       func(p *Param) { p.Misc2.OuterFirstMPLS.TTL = 0xff },
			predicate: IsFirstMPLSSet,
			expected:  true,
		},
		{
			name:      "mpls over udp is not the first label",
			set:       func(p *Param) { p.Misc2.OuterFirstMPLSOverUDP.Label = 1 },
			predicate: IsFirstMPLSSet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Param{}
			tt.set(p)
			before := *p
			assert.Equal(t, tt.expected, tt.predicate(p, tt.inner))
			assert.Equal(t, before, *p)
		})
	}
}

func TestAddressPredicates(t *testing.T) {
	s := &Spec{}
	s.SrcIP[3] = 0xffffffff
	assert.True(t, IsSrcAddrSet(s))
	assert.True(t, IsIPv4Set(s))
	assert.True(t, IsIPv4FiveTupleSet(s))
	assert.False(t, IsIPv6OnlySet(s))
	assert.False(t, IsDstAddrSet(s))

	s.DstIP[1] = 1
	assert.True(t, IsIPv6OnlySet(s))
	assert.True(t, IsDstAddrSet(s))

	s = &Spec{TCPFlags: 0x3f}
	assert.True(t, IsL3BaseSet(s))
	assert.False(t, IsTCPUDPBaseSet(s))
	assert.True(t, IsIPv4FiveTupleSet(s))
}

func TestFlexParserPredicates(t *testing.T) {
	tests := []struct {
		name   string
		sample ProgSample
		low    bool
		high   bool
	}{
		{name: "unset"},
		{name: "parser 0 with value", sample: ProgSample{FieldValue: 0xff}, low: true},
		{name: "parser 3", sample: ProgSample{FieldID: 3}, low: true},
		{name: "parser 4", sample: ProgSample{FieldID: 4, FieldValue: 1}, high: true},
		{name: "parser 7", sample: ProgSample{FieldID: 7}, high: true},
		{name: "parser 8", sample: ProgSample{FieldID: 8, FieldValue: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Misc4{}
			m.ProgSample[3] = tt.sample
			assert.Equal(t, tt.low, IsFlexParser0To3Set(m))
			assert.Equal(t, tt.high, IsFlexParser4To7Set(m))
		})
	}
}

func TestMiscPredicates(t *testing.T) {
	m := &Misc{GREKPresent: 1}
	assert.True(t, IsTunnelGRESet(m))
	assert.False(t, IsGeneveSet(m))
	assert.False(t, IsGVMIOrQPNSet(m))
	m = &Misc{GeneveOptLen: 0x3f, SourceSQN: 0xffffff}
	assert.True(t, IsGeneveSet(m))
	assert.True(t, IsGVMIOrQPNSet(m))
	assert.False(t, IsEthL2TunnelSet(m))

	m3 := &Misc3{OuterVXLANGPEFlags: 0xff, ICMPv4HeaderData: 1}
	assert.True(t, IsVXLANGPESet(m3))
	assert.True(t, IsICMPv4Set(m3))
	assert.False(t, IsICMPv6Set(m3))
	assert.False(t, IsGeneveTLVOptionSet(m3))

	m2 := &Misc2{MetadataRegC: [8]uint32{4: 1}}
	assert.False(t, IsRegC0To3Set(m2))
	assert.True(t, IsRegC4To7Set(m2))
	assert.False(t, IsWQEMetadataSet(m2))
	assert.False(t, IsMPLSOverGRESet(m2))
}
