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

func testCaps(gen device.Generation) device.Caps {
	return device.Caps{
		Generation:                   gen,
		FlexParserIDICMPDW0:          4,
		FlexParserIDICMPDW1:          5,
		FlexParserIDICMPv6DW0:        4,
		FlexParserIDICMPv6DW1:        5,
		FlexParserIDGeneveTLVOption0: 6,
		FlexParserIDMPLSOverGRE:      device.InvalidFlexParserID,
		FlexParserIDMPLSOverUDPLabel: 3,
		VHCAIDValid:                  true,
	}
}

func newTestTable(t *testing.T, typ DomainType, caps device.Caps, opts Options) (*Table, *device.Simulator) {
	sim := device.NewSimulator(caps)
	d, err := NewDomain(sim, typ, nil, opts)
	require.NoError(t, err)
	tbl, err := d.CreateTable()
	require.NoError(t, err)
	return tbl, sim
}

func kinds(bs []ste.Builder) []ste.Kind {
	ks := make([]ste.Kind, 0, len(bs))
	for i := range bs {
		ks = append(ks, bs[i].Kind)
	}
	return ks
}

func ipv4AddrMask() *mask.Param {
	p := &mask.Param{}
	p.Outer.SrcIP[3] = 0xffffffff
	p.Outer.DstIP[3] = 0xffffffff
	return p
}

// walkDevice follows the entries programmed on the simulator from the start
// anchor of the table and returns the ICM addresses of the matcher start
// tables it passes and the final miss address.
func walkDevice(t *testing.T, sim *device.Simulator, tbl *Table, dir device.Direction) ([]uint64, uint64) {
	t.Helper()
	anchor, ok := tbl.StartAnchor(dir)
	require.True(t, ok)
	addr := tbl.dmn.pool.ICMAddr(anchor)
	var starts []uint64
	for i := 0; i < 64; i++ {
		info, ok := sim.Anchor(dir, addr)
		require.True(t, ok, "no entry programmed at 0x%x", addr)
		if info.Type == device.ConnectMiss {
			return starts, info.MissAddr
		}
		starts = append(starts, info.HitAddr)
		start, ok := sim.Anchor(dir, info.HitAddr)
		require.True(t, ok, "no entry programmed at 0x%x", info.HitAddr)
		require.Equal(t, device.ConnectMiss, start.Type)
		addr = start.MissAddr
	}
	t.Fatalf("chain of %s pipeline does not terminate", dir)
	return nil, 0
}

// checkChain verifies that both the software links and the programmed
// entries of a pipeline visit exactly the expected matchers.
func checkChain(t *testing.T, sim *device.Simulator, tbl *Table, dir device.Direction, expected ...*Matcher) {
	t.Helper()
	res, err := tbl.Walk(dir)
	require.NoError(t, err)
	assert.Equal(t, expected, res.Matchers)
	assert.Equal(t, uint64(DefaultMissAddress), res.MissAddress)

	var expectedStarts []uint64
	for _, m := range expected {
		sHTBL, _, ok := m.Anchors(dir)
		require.True(t, ok)
		expectedStarts = append(expectedStarts, tbl.dmn.pool.ICMAddr(sHTBL))
	}
	starts, miss := walkDevice(t, sim, tbl, dir)
	assert.Equal(t, expectedStarts, starts)
	assert.Equal(t, uint64(DefaultMissAddress), miss)
}
