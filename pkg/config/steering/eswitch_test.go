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
	"gopkg.in/yaml.v2"

	"antrea.io/steering/pkg/devlinkport"
)

func TestEswitch(t *testing.T) {
	data := `
pciAddress: "0000:03:00.0"
pfNumber: 1
vhcaID: 2
systemImageGUID: "0x0c42a10300a1b2c3"
ecpf: true
numVFs: 4
sfBase: 32768
maxSFs: 16
subFunctions:
- vport: 32768
  sfNumber: 88
`
	var c EswitchConfig
	require.NoError(t, yaml.UnmarshalStrict([]byte(data), &c))
	esw, err := c.Eswitch()
	require.NoError(t, err)
	assert.Equal(t, devlinkport.Eswitch{
		VHCAID:          2,
		PFNumber:        1,
		SystemImageGUID: 0x0c42a10300a1b2c3,
		ECPF:            true,
		NumVFs:          4,
		SFBase:          0x8000,
		MaxSFs:          16,
	}, esw)
	assert.Equal(t, []SubFunctionConfig{{Vport: 0x8000, SFNumber: 88}}, c.SubFunctions)
}

func TestEswitchErrors(t *testing.T) {
	tests := []struct {
		name string
		c    EswitchConfig
	}{
		{name: "guid", c: EswitchConfig{SystemImageGUID: "guid"}},
		{name: "reserved vports", c: EswitchConfig{SFBase: 0xfff0, MaxSFs: 0x20}},
		{name: "overlapping vfs", c: EswitchConfig{NumVFs: 8, SFBase: 8, MaxSFs: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.Eswitch()
			assert.Error(t, err)
		})
	}
}
