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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/mask"
	"antrea.io/steering/pkg/steering/ste"
)

func TestSelectBuilders(t *testing.T) {
	type selection struct {
		dir          device.Direction
		outer, inner mask.IPVersion
		kinds        []ste.Kind
	}
	tests := []struct {
		name       string
		domainType DomainType
		caps       device.Caps
		criteria   mask.Criteria
		mask       func(p *mask.Param)
		opts       Options
		expected   []selection
	}{
		{
			name:       "IPv4 addresses only",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter,
			mask: func(p *mask.Param) {
				*p = *ipv4AddrMask()
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindEthL3IPv4FiveTuple}},
			},
		},
		{
			name:       "L2 and IPv4 with TTL",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter,
			mask: func(p *mask.Param) {
				p.Outer.SMACHi, p.Outer.SMACLo = 0xffffffff, 0xffff
				p.Outer.DMACHi, p.Outer.DMACLo = 0xffffffff, 0xffff
				p.Outer.FirstVID = 0xfff
				p.Outer.Ethertype = 0xffff
				p.Outer.SrcIP[3] = 0xffffffff
				p.Outer.IPProtocol = 0xff
				p.Outer.TCPDport = 0xffff
				p.Outer.TTLHoplimit = 0xff
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{
					ste.KindEthL2SrcDst, ste.KindEthL2Dst, ste.KindEthL3IPv4FiveTuple, ste.KindEthL3IPv4Misc,
				}},
			},
		},
		{
			name:       "IPv6 addresses, ports and flow label",
			domainType: DomainTypeNICTX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter | mask.CriteriaMisc,
			mask: func(p *mask.Param) {
				p.Outer.SrcIP = [4]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}
				p.Outer.DstIP = [4]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}
				p.Outer.TCPSport = 0xffff
				p.Misc.OuterIPv6FlowLabel = 0xfffff
			},
			expected: []selection{
				{device.DirectionTX, mask.IPv6, mask.IPv4, []ste.Kind{
					ste.KindEthL3IPv6Dst, ste.KindEthL3IPv6Src, ste.KindEthIPv6L3L4,
				}},
			},
		},
		{
			name:       "VXLAN tunnel with inner IPv4 and registers",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaMisc | mask.CriteriaInner | mask.CriteriaMisc2,
			mask: func(p *mask.Param) {
				p.Misc.VXLANVNI = 0xffffff
				p.Inner.DMACHi, p.Inner.DMACLo = 0xffffffff, 0xffff
				p.Inner.SrcIP[3] = 0xffffffff
				p.Misc2.MetadataRegC[0] = 0xffff
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{
					ste.KindRegister0, ste.KindEthL2Tunnel, ste.KindEthL3IPv4FiveTuple,
				}},
			},
		},
		{
			name:       "flex parser groups",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaMisc4,
			mask: func(p *mask.Param) {
				p.Misc4.ProgSample[0] = mask.ProgSample{FieldID: 5, FieldValue: 0xff}
				p.Misc4.ProgSample[1] = mask.ProgSample{FieldID: 0, FieldValue: 0xff}
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindFlexParser0, ste.KindFlexParser1}},
			},
		},
		{
			name:       "MPLS over UDP and ICMPv4 through flex parsers",
			domainType: DomainTypeNICRX,
			caps: func() device.Caps {
				c := testCaps(device.GenerationConnectX5)
				c.FlexProtocols = device.FlexParserMPLSOverUDP | device.FlexParserICMPv4
				return c
			}(),
			criteria: mask.CriteriaMisc2 | mask.CriteriaMisc3,
			mask: func(p *mask.Param) {
				p.Misc2.OuterFirstMPLSOverUDP.Label = 0xfffff
				p.Misc3.ICMPv4Type = 0xff
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindTunnelMPLSOverUDP, ste.KindICMP}},
			},
		},
		{
			name:       "GENEVE with TLV option",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX6DX),
			criteria:   mask.CriteriaMisc | mask.CriteriaMisc3,
			mask: func(p *mask.Param) {
				p.Misc.GeneveVNI = 0xffffff
				p.Misc3.GeneveTLVOption0Data = 0xffffffff
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindTunnelGeneve, ste.KindTunnelGeneveTLVOption}},
			},
		},
		{
			name:       "wildcard outer IP version with IPv6 inner",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter | mask.CriteriaInner,
			mask: func(p *mask.Param) {
				p.Outer.IPVersion = mask.IPVersionWildcard
				p.Outer.TCPDport = 0xffff
				p.Inner.IPVersion = 6
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv6, []ste.Kind{ste.KindEthL3IPv4FiveTuple, ste.KindEthL2Dst}},
				{device.DirectionRX, mask.IPv6, mask.IPv6, []ste.Kind{ste.KindEthIPv6L3L4, ste.KindEthL2Dst}},
			},
		},
		{
			name:       "FDB rx drops the source port",
			domainType: DomainTypeFDB,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter | mask.CriteriaMisc,
			mask: func(p *mask.Param) {
				p.Outer.IPVersion = mask.IPVersionWildcard
				p.Misc.SourcePort = 0xffff
			},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindEmptyAlwaysHit}},
				{device.DirectionRX, mask.IPv6, mask.IPv4, []ste.Kind{ste.KindEmptyAlwaysHit}},
				{device.DirectionTX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindSrcGVMIQPN}},
				{device.DirectionTX, mask.IPv6, mask.IPv4, []ste.Kind{ste.KindSrcGVMIQPN}},
			},
		},
		{
			name:       "FDB rx keeps the source port when requested",
			domainType: DomainTypeFDB,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter | mask.CriteriaMisc,
			mask: func(p *mask.Param) {
				p.Outer.IPVersion = mask.IPVersionWildcard
				p.Misc.SourcePort = 0xffff
			},
			opts: Options{FDBRxMatchSourcePort: true},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindSrcGVMIQPN}},
				{device.DirectionRX, mask.IPv6, mask.IPv4, []ste.Kind{ste.KindSrcGVMIQPN}},
				{device.DirectionTX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindSrcGVMIQPN}},
				{device.DirectionTX, mask.IPv6, mask.IPv4, []ste.Kind{ste.KindSrcGVMIQPN}},
			},
		},
		{
			name:       "empty criteria always hits",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaEmpty,
			mask:       func(p *mask.Param) {},
			expected: []selection{
				{device.DirectionRX, mask.IPv4, mask.IPv4, []ste.Kind{ste.KindEmptyAlwaysHit}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, _ := newTestTable(t, tt.domainType, tt.caps, tt.opts)
			var p mask.Param
			tt.mask(&p)
			m, err := tbl.CreateMatcher(1, tt.criteria, p.Bytes())
			require.NoError(t, err)

			found := map[device.Direction]map[[2]mask.IPVersion]bool{}
			for _, s := range tt.expected {
				bs, err := m.SelectBuilders(s.dir, s.outer, s.inner)
				require.NoError(t, err, "outer %s inner %s", s.outer, s.inner)
				assert.Equal(t, s.kinds, kinds(bs), "outer %s inner %s", s.outer, s.inner)
				if found[s.dir] == nil {
					found[s.dir] = map[[2]mask.IPVersion]bool{}
				}
				found[s.dir][[2]mask.IPVersion{s.outer, s.inner}] = true
			}
			// Every other combination has no builders.
			for dir, combos := range found {
				for o := mask.IPv4; o < mask.IPVersionMax; o++ {
					for i := mask.IPv4; i < mask.IPVersionMax; i++ {
						if combos[[2]mask.IPVersion{o, i}] {
							continue
						}
						_, err := m.SelectBuilders(dir, o, i)
						assert.ErrorIs(t, err, ErrUnsupported, "outer %s inner %s", o, i)
					}
				}
			}
		})
	}
}

func TestCreateMatcherErrors(t *testing.T) {
	tests := []struct {
		name       string
		domainType DomainType
		caps       device.Caps
		criteria   mask.Criteria
		mask       func(p *mask.Param)
		maskBytes  []byte
		expectErr  error
	}{
		{
			name:       "invalid criteria",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaMax,
			expectErr:  ErrInvalidArgument,
		},
		{
			name:       "oversized mask",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter,
			maskBytes:  make([]byte, mask.ParamSize+1),
			expectErr:  ErrInvalidArgument,
		},
		{
			name:       "IPv4 version with IPv6 addresses",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter,
			mask: func(p *mask.Param) {
				p.Outer.IPVersion = 4
				p.Outer.SrcIP[0] = 0xffffffff
			},
			expectErr: ErrInvalidArgument,
		},
		{
			name:       "inner IPv4 version with IPv6 addresses",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaInner,
			mask: func(p *mask.Param) {
				p.Inner.IPVersion = 4
				p.Inner.DstIP[1] = 0xffff
			},
			expectErr: ErrInvalidArgument,
		},
		{
			name:       "wildcard IP version only",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaOuter,
			mask: func(p *mask.Param) {
				p.Outer.IPVersion = mask.IPVersionWildcard
			},
			expectErr: ErrNoValidRule,
		},
		{
			name:       "GENEVE TLV option without GENEVE",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX6DX),
			criteria:   mask.CriteriaMisc3,
			mask: func(p *mask.Param) {
				p.Misc3.GeneveTLVOption0Data = 0xffffffff
			},
			expectErr: ErrUnsupported,
		},
		{
			name:       "GENEVE TLV option without flex parser",
			domainType: DomainTypeNICRX,
			caps: func() device.Caps {
				c := testCaps(device.GenerationConnectX6DX)
				c.FlexParserIDGeneveTLVOption0 = device.InvalidFlexParserID
				return c
			}(),
			criteria: mask.CriteriaMisc | mask.CriteriaMisc3,
			mask: func(p *mask.Param) {
				p.Misc.GeneveVNI = 0xffffff
				p.Misc3.GeneveTLVOption0Data = 0xffffffff
			},
			expectErr: ErrUnsupported,
		},
		{
			name:       "VXLAN-GPE not enabled",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaMisc3,
			mask: func(p *mask.Param) {
				p.Misc3.OuterVXLANGPEVNI = 0xffffff
			},
			expectErr: ErrUnsupported,
		},
		{
			name:       "MPLS over GRE not enabled",
			domainType: DomainTypeNICRX,
			caps:       testCaps(device.GenerationConnectX6DX),
			criteria:   mask.CriteriaOuter | mask.CriteriaMisc2,
			mask: func(p *mask.Param) {
				p.Outer.SrcIP[3] = 0xffffffff
				p.Misc2.OuterFirstMPLSOverGRE.Label = 0xfffff
			},
			expectErr: ErrUnsupported,
		},
		{
			name:       "source port on NIC tx",
			domainType: DomainTypeNICTX,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaMisc,
			mask: func(p *mask.Param) {
				p.Misc.SourcePort = 0xffff
			},
			expectErr: ErrUnsupported,
		},
		{
			name:       "partial source port",
			domainType: DomainTypeFDB,
			caps:       testCaps(device.GenerationConnectX5),
			criteria:   mask.CriteriaMisc,
			mask: func(p *mask.Param) {
				p.Misc.SourcePort = 0x00ff
			},
			expectErr: ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, sim := newTestTable(t, tt.domainType, tt.caps, Options{})
			postSends := sim.PostSendCount()
			inUse := tbl.dmn.pool.InUse()
			b := tt.maskBytes
			if tt.mask != nil {
				var p mask.Param
				tt.mask(&p)
				b = p.Bytes()
			}
			m, err := tbl.CreateMatcher(1, tt.criteria, b)
			assert.ErrorIs(t, err, tt.expectErr)
			assert.Nil(t, m)
			assert.Equal(t, 0, tbl.Len())
			assert.Equal(t, int32(1), tbl.refCount.Load())
			assert.Equal(t, inUse, tbl.dmn.pool.InUse())
			assert.Equal(t, postSends, sim.PostSendCount())
		})
	}
}

// TestConsumedFieldsCoverMask checks that the builders of every compiled set
// together consume exactly the fields of the mask, each field once.
func TestConsumedFieldsCoverMask(t *testing.T) {
	masks := []struct {
		criteria mask.Criteria
		mask     func(p *mask.Param)
	}{
		{mask.CriteriaOuter, func(p *mask.Param) { *p = *ipv4AddrMask() }},
		{mask.CriteriaOuter | mask.CriteriaMisc | mask.CriteriaMisc2, func(p *mask.Param) {
			p.Outer.SMACHi = 0xffff
			p.Outer.FirstPrio = 0x7
			p.Misc.OuterSecondVLAN.VID = 0xfff
			p.Outer.Frag = 0x1
			p.Outer.UDPDport = 0xffff
			p.Misc.GREKeyHi = 0xffffffff
			p.Misc2.MetadataRegA = 0xffffffff
			p.Misc2.MetadataRegC[5] = 0xffff
			p.Misc2.OuterFirstMPLS.Label = 0xfffff
		}},
		{mask.CriteriaOuter | mask.CriteriaMisc3, func(p *mask.Param) {
			p.Outer.SrcIP = [4]uint32{0xffff, 0, 0, 0xffffffff}
			p.Outer.TTLHoplimit = 0xff
			p.Misc3.OuterTCPSeqNum = 0xffffffff
			p.Misc3.ICMPv6Type = 0xff
		}},
		{mask.CriteriaInner | mask.CriteriaMisc | mask.CriteriaMisc3, func(p *mask.Param) {
			p.Inner.SMACHi, p.Inner.SMACLo = 0xffffffff, 0xffff
			p.Inner.DMACHi = 0xffffffff
			p.Inner.IPVersion = 6
			p.Inner.DstIP[2] = 0xffffffff
			p.Misc.InnerIPv6FlowLabel = 0xfffff
			p.Misc3.InnerTCPAckNum = 0xffffffff
		}},
	}
	for _, tc := range masks {
		tbl, _ := newTestTable(t, DomainTypeNICRX, testCaps(device.GenerationConnectX6DX), Options{})
		var p mask.Param
		tc.mask(&p)
		m, err := tbl.CreateMatcher(1, tc.criteria, p.Bytes())
		require.NoError(t, err, "criteria %s", tc.criteria)
		compiledMask := m.Mask()
		expected := compiledMask.Bytes()

		compiled := 0
		for o := mask.IPv4; o < mask.IPVersionMax; o++ {
			for i := mask.IPv4; i < mask.IPVersionMax; i++ {
				bs, err := m.SelectBuilders(device.DirectionRX, o, i)
				if err != nil {
					continue
				}
				compiled++
				union := make([]byte, mask.ParamSize)
				for _, b := range bs {
					for j, v := range b.Match.Bytes() {
						assert.Zero(t, union[j]&v, "byte %d consumed twice by %s", j, b.Kind)
						union[j] |= v
					}
				}
				assert.Equal(t, expected, union, "criteria %s outer %s inner %s", tc.criteria, o, i)
			}
		}
		assert.Equal(t, 1, compiled)
	}
}
