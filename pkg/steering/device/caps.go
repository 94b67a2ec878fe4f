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

package device

import (
	"fmt"
	"strings"
)

// Generation identifies the steering entry format of a device.
type Generation uint8

const (
	GenerationConnectX5 Generation = iota
	GenerationConnectX6DX
)

func (g Generation) String() string {
	switch g {
	case GenerationConnectX5:
		return "ConnectX-5"
	case GenerationConnectX6DX:
		return "ConnectX-6DX"
	default:
		return fmt.Sprintf("Generation(%d)", uint8(g))
	}
}

// ParseGeneration accepts the names returned by Generation.String.
func ParseGeneration(s string) (Generation, error) {
	switch strings.ToLower(s) {
	case "", "connectx-5", "connectx5":
		return GenerationConnectX5, nil
	case "connectx-6dx", "connectx6dx":
		return GenerationConnectX6DX, nil
	}
	return 0, fmt.Errorf("unknown hardware generation %q", s)
}

// FlexParser is a bitmap of protocols enabled in the flexible parser.
type FlexParser uint32

const (
	FlexParserICMPv4 FlexParser = 1 << iota
	FlexParserICMPv6
	FlexParserVXLANGPE
	FlexParserGeneve
	FlexParserGeneveTLVOption0
	FlexParserMPLSOverGRE
	FlexParserMPLSOverUDP
)

var flexParserNames = map[string]FlexParser{
	"icmpv4":              FlexParserICMPv4,
	"icmpv6":              FlexParserICMPv6,
	"vxlan-gpe":           FlexParserVXLANGPE,
	"geneve":              FlexParserGeneve,
	"geneve-tlv-option-0": FlexParserGeneveTLVOption0,
	"mpls-over-gre":       FlexParserMPLSOverGRE,
	"mpls-over-udp":       FlexParserMPLSOverUDP,
}

// ParseFlexParsers converts protocol names into a FlexParser bitmap.
func ParseFlexParsers(names []string) (FlexParser, error) {
	var f FlexParser
	for _, n := range names {
		p, ok := flexParserNames[strings.ToLower(n)]
		if !ok {
			return 0, fmt.Errorf("unknown flex parser protocol %q", n)
		}
		f |= p
	}
	return f, nil
}

// InvalidFlexParserID marks a flex parser id that was not assigned.
const InvalidFlexParserID uint8 = 0xff

// Caps is the capability record of a steering device.
type Caps struct {
	Generation    Generation
	FlexProtocols FlexParser
	// DefinerFormats has bit N set when definer format N is supported.
	DefinerFormats uint64

	FlexParserIDICMPDW0          uint8
	FlexParserIDICMPDW1          uint8
	FlexParserIDICMPv6DW0        uint8
	FlexParserIDICMPv6DW1        uint8
	FlexParserIDGeneveTLVOption0 uint8
	FlexParserIDMPLSOverGRE      uint8
	FlexParserIDMPLSOverUDPLabel uint8
	VHCAIDValid                  bool
}

func (c *Caps) is6DX() bool {
	return c.Generation == GenerationConnectX6DX
}

func (c *Caps) SupportsVXLANGPE() bool {
	return c.is6DX() || c.FlexProtocols&FlexParserVXLANGPE != 0
}

func (c *Caps) SupportsGeneve() bool {
	return c.is6DX() || c.FlexProtocols&FlexParserGeneve != 0
}

func (c *Caps) SupportsICMPv4() bool {
	return c.is6DX() || c.FlexProtocols&FlexParserICMPv4 != 0
}

func (c *Caps) SupportsICMPv6() bool {
	return c.is6DX() || c.FlexProtocols&FlexParserICMPv6 != 0
}

func (c *Caps) SupportsMPLSOverGRE() bool {
	return c.FlexProtocols&FlexParserMPLSOverGRE != 0
}

func (c *Caps) SupportsMPLSOverUDP() bool {
	return c.FlexProtocols&FlexParserMPLSOverUDP != 0
}

// SupportsDefiner reports whether definer format id can be created.
func (c *Caps) SupportsDefiner(id uint16) bool {
	return id < 64 && c.DefinerFormats&(1<<id) != 0
}

// SupportsDefiners reports whether the definer fast path can be used at all.
func (c *Caps) SupportsDefiners() bool {
	return c.is6DX() && c.DefinerFormats != 0
}
