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

	"antrea.io/steering/pkg/devlinkport"
)

// Eswitch converts the eswitch section into the description used by the
// devlink port registrar.
func (c *EswitchConfig) Eswitch() (devlinkport.Eswitch, error) {
	var guid uint64
	if c.SystemImageGUID != "" {
		var err error
		if guid, err = ParseAddress(c.SystemImageGUID); err != nil {
			return devlinkport.Eswitch{}, fmt.Errorf("invalid system image GUID: %w", err)
		}
	}
	if uint32(c.SFBase)+uint32(c.MaxSFs) > uint32(devlinkport.VportECPF) {
		return devlinkport.Eswitch{}, fmt.Errorf("subfunction vports [%d, %d) overlap reserved vports", c.SFBase, uint32(c.SFBase)+uint32(c.MaxSFs))
	}
	if c.MaxSFs > 0 && c.SFBase <= c.NumVFs {
		return devlinkport.Eswitch{}, fmt.Errorf("subfunction vports must start after the %d VF vports", c.NumVFs)
	}
	return devlinkport.Eswitch{
		VHCAID:          c.VHCAID,
		PFNumber:        c.PFNumber,
		SystemImageGUID: guid,
		ECPF:            c.ECPF,
		External:        c.External,
		HostNumber:      c.HostNumber,
		NumVFs:          c.NumVFs,
		SFBase:          c.SFBase,
		MaxSFs:          c.MaxSFs,
	}, nil
}
