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

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antrea.io/steering/pkg/devlinkport"
)

func TestRunPorts(t *testing.T) {
	o := newTestOptions(t, `
eswitch:
  pciAddress: "0000:03:00.0"
  pfNumber: 0
  vhcaID: 1
  systemImageGUID: "0x0102030405060708"
  numVFs: 2
  sfBase: 16
  maxSFs: 4
  subFunctions:
  - vport: 16
    sfNumber: 100
  - vport: 24
    sfNumber: 101
`)
	require.NoError(t, o.complete(nil))
	require.NoError(t, o.validate(nil))

	sink := devlinkport.NewRecordingSink()
	var out bytes.Buffer
	err := runPorts(o, sink, &out)
	assert.ErrorContains(t, err, "1 devlink ports")
	// Uplink, 2 VFs and 1 SF. The PF vport has no port without ECPF.
	assert.Equal(t, 4, sink.Len())
	s := out.String()
	assert.Contains(t, s, "✗ sf vport 24:")
	assert.Contains(t, s, "✓ pci/0000:03:00.0/65537: vport 0x0001, pcivf controller 0 pf 0 vf 0 external false")
	assert.Contains(t, s, "✓ pci/0000:03:00.0/65552: vport 0x0010, pcisf controller 0 pf 0 sf 100 external false")
	assert.Contains(t, s, "✓ pci/0000:03:00.0/131071: vport 0xffff, physical port 0")
}
