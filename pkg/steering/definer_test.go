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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"antrea.io/steering/pkg/steering/device"
	devicetesting "antrea.io/steering/pkg/steering/device/testing"
	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/mask"
	"antrea.io/steering/pkg/steering/ste"
)

func definerCaps(formats ...uint16) *device.Caps {
	caps := testCaps(device.GenerationConnectX6DX)
	for _, f := range formats {
		caps.DefinerFormats |= 1 << f
	}
	return &caps
}

func newMockTable(t *testing.T, caps *device.Caps) (*Table, *devicetesting.MockDevice) {
	ctrl := gomock.NewController(t)
	dev := devicetesting.NewMockDevice(ctrl)
	dev.EXPECT().QueryCaps().Return(caps, nil)
	dev.EXPECT().PostSend(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d, err := NewDomain(dev, DomainTypeNICRX, nil, Options{EnableDefiners: true})
	require.NoError(t, err)
	tbl, err := d.CreateTable()
	require.NoError(t, err)
	return tbl, dev
}

func l2IPv4Mask() []byte {
	p := &mask.Param{}
	p.Outer.SMACHi = 0xffffffff
	p.Outer.SrcIP[3] = 0xffffffff
	p.Outer.TCPDport = 0xffff
	return p.Bytes()
}

func ipv6AddrMask() []byte {
	p := &mask.Param{}
	p.Outer.SrcIP = [4]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}
	p.Outer.DstIP = [4]uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}
	return p.Bytes()
}

func TestDefinerMatcher(t *testing.T) {
	tbl, dev := newMockTable(t, definerCaps(ste.DefinerFormat0, ste.DefinerFormat22))
	dev.EXPECT().CreateDefiner(ste.DefinerFormat0, gomock.Any()).Return(uint32(7), nil)

	m, err := tbl.CreateMatcher(1, mask.CriteriaOuter, l2IPv4Mask())
	require.NoError(t, err)
	bs, err := m.SelectBuilders(device.DirectionRX, mask.IPv4, mask.IPv4)
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, ste.KindDefiner0, bs[0].Kind)
	assert.Equal(t, ste.LookupTypeMatch|7, bs[0].LookupType)
	assert.Equal(t, uint32(7), bs[0].DefinerID)

	sHTBL, _, _ := m.Anchors(device.DirectionRX)
	info, err := tbl.dmn.pool.Info(sHTBL)
	require.NoError(t, err)
	assert.Equal(t, htbl.TypeMatch, info.Type)
	assert.Equal(t, ste.LookupTypeMatch|7, info.LookupType)

	_, err = m.SelectBuilders(device.DirectionRX, mask.IPv6, mask.IPv4)
	assert.ErrorIs(t, err, ErrUnsupported)

	dev.EXPECT().DestroyDefiner(uint32(7)).Return(nil)
	require.NoError(t, m.Destroy())
}

func TestDefinerMatcherFallback(t *testing.T) {
	tests := []struct {
		name          string
		caps          *device.Caps
		maskBytes     []byte
		expectDevice  func(dev *devicetesting.MockDeviceMockRecorder)
		outer         mask.IPVersion
		expectedKinds []ste.Kind
	}{
		{
			name:      "no definer support",
			caps:      definerCaps(),
			maskBytes: l2IPv4Mask(),
			outer:     mask.IPv4,
			expectedKinds: []ste.Kind{
				ste.KindEthL2Src, ste.KindEthL3IPv4FiveTuple,
			},
		},
		{
			name:      "definer creation failure",
			caps:      definerCaps(ste.DefinerFormat0),
			maskBytes: l2IPv4Mask(),
			expectDevice: func(dev *devicetesting.MockDeviceMockRecorder) {
				dev.CreateDefiner(ste.DefinerFormat0, gomock.Any()).Return(uint32(0), fmt.Errorf("no resources"))
			},
			outer: mask.IPv4,
			expectedKinds: []ste.Kind{
				ste.KindEthL2Src, ste.KindEthL3IPv4FiveTuple,
			},
		},
		{
			name:      "second definer creation failure",
			caps:      definerCaps(ste.DefinerFormat6, ste.DefinerFormat26),
			maskBytes: ipv6AddrMask(),
			expectDevice: func(dev *devicetesting.MockDeviceMockRecorder) {
				gomock.InOrder(
					dev.CreateDefiner(ste.DefinerFormat26, gomock.Any()).Return(uint32(11), nil),
					dev.CreateDefiner(ste.DefinerFormat6, gomock.Any()).Return(uint32(0), fmt.Errorf("no resources")),
					dev.DestroyDefiner(uint32(11)).Return(nil),
				)
			},
			outer: mask.IPv6,
			expectedKinds: []ste.Kind{
				ste.KindEthL3IPv6Dst, ste.KindEthL3IPv6Src,
			},
		},
		{
			name: "mask not covered",
			caps: definerCaps(ste.DefinerFormat0),
			maskBytes: func() []byte {
				p := &mask.Param{}
				p.Outer.TTLHoplimit = 0xff
				p.Outer.SrcIP[3] = 0xffffffff
				return p.Bytes()
			}(),
			outer: mask.IPv4,
			expectedKinds: []ste.Kind{
				ste.KindEthL3IPv4FiveTuple, ste.KindEthL3IPv4Misc,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, dev := newMockTable(t, tt.caps)
			if tt.expectDevice != nil {
				tt.expectDevice(dev.EXPECT())
			}
			m, err := tbl.CreateMatcher(1, mask.CriteriaOuter, tt.maskBytes)
			require.NoError(t, err)
			bs, err := m.SelectBuilders(device.DirectionRX, tt.outer, mask.IPv4)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedKinds, kinds(bs))
			for i := range bs {
				assert.Equal(t, htbl.TypeLegacy, bs[i].HTBLType)
			}
			// Destroying a matcher with fixed builders does not touch definers.
			require.NoError(t, m.Destroy())
		})
	}
}

func TestDefinerIPv6Pair(t *testing.T) {
	tbl, dev := newMockTable(t, definerCaps(ste.DefinerFormat6, ste.DefinerFormat26))
	dev.EXPECT().CreateDefiner(ste.DefinerFormat26, gomock.Any()).Return(uint32(11), nil)
	dev.EXPECT().CreateDefiner(ste.DefinerFormat6, gomock.Any()).Return(uint32(12), nil)

	m, err := tbl.CreateMatcher(1, mask.CriteriaOuter, ipv6AddrMask())
	require.NoError(t, err)
	bs, err := m.SelectBuilders(device.DirectionRX, mask.IPv6, mask.IPv4)
	require.NoError(t, err)
	assert.Equal(t, []ste.Kind{ste.KindDefiner26, ste.KindDefiner6}, kinds(bs))
	assert.Equal(t, ste.LookupTypeMatch|11, bs[0].LookupType)
	assert.Equal(t, ste.LookupTypeMatch|12, bs[1].LookupType)

	dev.EXPECT().DestroyDefiner(uint32(11)).Return(nil)
	dev.EXPECT().DestroyDefiner(uint32(12)).Return(nil)
	require.NoError(t, m.Destroy())
}

func TestDefinerObjectsReleased(t *testing.T) {
	caps := *definerCaps(ste.DefinerFormat0)
	sim := device.NewSimulator(caps)
	d, err := NewDomain(sim, DomainTypeFDB, nil, Options{EnableDefiners: true})
	require.NoError(t, err)
	tbl, err := d.CreateTable()
	require.NoError(t, err)

	m, err := tbl.CreateMatcher(1, mask.CriteriaOuter, l2IPv4Mask())
	require.NoError(t, err)
	// One definer per pipeline.
	assert.Equal(t, 2, sim.Definers().Len())
	checkChain(t, sim, tbl, device.DirectionRX, m)
	checkChain(t, sim, tbl, device.DirectionTX, m)

	// A failed link releases the definers of the new matcher.
	sim.FailPostSendWhen(func(n int, dir device.Direction, addr uint64, info device.ConnectInfo) bool {
		return dir == device.DirectionTX
	})
	_, err = tbl.CreateMatcher(2, mask.CriteriaOuter, l2IPv4Mask())
	assert.ErrorIs(t, err, ErrDeviceError)
	assert.Equal(t, 2, sim.Definers().Len())
	sim.FailPostSendWhen(nil)

	require.NoError(t, m.Destroy())
	assert.Equal(t, 0, sim.Definers().Len())
}
