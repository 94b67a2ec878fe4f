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
	"strconv"
	"strings"

	"k8s.io/utils/ptr"

	"antrea.io/steering/pkg/steering/device"
)

const (
	DefaultDomainType         = "fdb"
	DefaultHashTablePoolSize  = 1024
	DefaultICMBase            = "0x100000000"
	DefaultDefaultMissAddress = "0xdead0000"
	DefaultGeneration         = "ConnectX-5"
	DefaultBusName            = "pci"
)

func SetConfigDefaults(c *SteeringConfig) {
	if c.DomainType == "" {
		c.DomainType = DefaultDomainType
	}
	if c.HashTablePoolSize == 0 {
		c.HashTablePoolSize = DefaultHashTablePoolSize
	}
	if c.ICMBase == "" {
		c.ICMBase = DefaultICMBase
	}
	if c.FDBRxWireOnly == nil {
		c.FDBRxWireOnly = ptr.To(true)
	}
	if c.DefaultMissAddress == "" {
		c.DefaultMissAddress = DefaultDefaultMissAddress
	}
	if c.Device.Generation == "" {
		c.Device.Generation = DefaultGeneration
	}
	if c.Eswitch.BusName == "" {
		c.Eswitch.BusName = DefaultBusName
	}
}

// ParseAddress parses an ICM address written in hexadecimal, with or without
// a 0x prefix.
func ParseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %v", s, err)
	}
	return v, nil
}

var flexParserIDFields = map[string]func(c *device.Caps) *uint8{
	"icmp-dw0":            func(c *device.Caps) *uint8 { return &c.FlexParserIDICMPDW0 },
	"icmp-dw1":            func(c *device.Caps) *uint8 { return &c.FlexParserIDICMPDW1 },
	"icmpv6-dw0":          func(c *device.Caps) *uint8 { return &c.FlexParserIDICMPv6DW0 },
	"icmpv6-dw1":          func(c *device.Caps) *uint8 { return &c.FlexParserIDICMPv6DW1 },
	"geneve-tlv-option-0": func(c *device.Caps) *uint8 { return &c.FlexParserIDGeneveTLVOption0 },
	"mpls-over-gre":       func(c *device.Caps) *uint8 { return &c.FlexParserIDMPLSOverGRE },
	"mpls-over-udp-label": func(c *device.Caps) *uint8 { return &c.FlexParserIDMPLSOverUDPLabel },
}

// Caps converts the device section into the capability record reported by
// the simulated device.
func (c *DeviceConfig) Caps() (device.Caps, error) {
	gen, err := device.ParseGeneration(c.Generation)
	if err != nil {
		return device.Caps{}, err
	}
	flex, err := device.ParseFlexParsers(c.FlexParsers)
	if err != nil {
		return device.Caps{}, err
	}
	caps := device.Caps{
		Generation:    gen,
		FlexProtocols: flex,
		VHCAIDValid:   c.VHCAIDValid,
	}
	for _, field := range flexParserIDFields {
		*field(&caps) = device.InvalidFlexParserID
	}
	for name, id := range c.FlexParserIDs {
		field, ok := flexParserIDFields[strings.ToLower(name)]
		if !ok {
			return device.Caps{}, fmt.Errorf("unknown flex parser field %q", name)
		}
		*field(&caps) = id
	}
	for _, f := range c.DefinerFormats {
		if f >= 64 {
			return device.Caps{}, fmt.Errorf("definer format %d is out of range", f)
		}
		caps.DefinerFormats |= 1 << f
	}
	return caps, nil
}
