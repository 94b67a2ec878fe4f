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

type SteeringConfig struct {
	// FeatureGates is a map of feature names to bools that enable or disable experimental features.
	FeatureGates map[string]bool `yaml:"featureGates,omitempty"`
	// Traffic scope of the steering domain. Supported values are:
	// - nic_rx
	// - nic_tx
	// - fdb (default)
	DomainType string `yaml:"domainType,omitempty"`
	// Number of hash tables the domain can allocate. Every table takes one
	// start anchor per pipeline and every matcher takes two hash tables per
	// pipeline. Defaults to 1024.
	HashTablePoolSize int `yaml:"hashTablePoolSize,omitempty"`
	// ICM address of the first hash table, as a hexadecimal string.
	// Defaults to 0x100000000.
	ICMBase string `yaml:"icmBase,omitempty"`
	// Whether the rx side of an FDB domain only receives traffic from the
	// wire. When true, source port matches are dropped from rx matchers of
	// FDB domains. This is only correct when no other vport can inject
	// traffic into the rx pipeline. Defaults to true.
	FDBRxWireOnly *bool `yaml:"fdbRxWireOnly,omitempty"`
	// ICM address the last matcher of every table misses to, as a
	// hexadecimal string. Defaults to 0xdead0000.
	DefaultMissAddress string `yaml:"defaultMissAddress,omitempty"`
	// Log verbosity of the process. Overrides the -v flag when set.
	LogVerbosity string `yaml:"logVerbosity,omitempty"`
	// Capabilities reported by the simulated steering device.
	Device DeviceConfig `yaml:"device"`
	// Eswitch whose vports are exposed as devlink ports.
	Eswitch EswitchConfig `yaml:"eswitch"`
}

type DeviceConfig struct {
	// Hardware generation of the device. Supported values are:
	// - ConnectX-5 (default)
	// - ConnectX-6DX
	Generation string `yaml:"generation,omitempty"`
	// Protocols enabled in the flexible parser. Supported values are
	// icmpv4, icmpv6, vxlan-gpe, geneve, geneve-tlv-option-0, mpls-over-gre
	// and mpls-over-udp.
	FlexParsers []string `yaml:"flexParsers,omitempty"`
	// Flex parser ids assigned to protocol fields, keyed by field name:
	// icmp-dw0, icmp-dw1, icmpv6-dw0, icmpv6-dw1, geneve-tlv-option-0,
	// mpls-over-gre and mpls-over-udp-label. Fields without an id cannot be
	// matched.
	FlexParserIDs map[string]uint8 `yaml:"flexParserIDs,omitempty"`
	// Definer formats the device can create.
	DefinerFormats []uint16 `yaml:"definerFormats,omitempty"`
	// Whether source_eswitch_owner_vhca_id can be matched.
	VHCAIDValid bool `yaml:"vhcaIDValid,omitempty"`
}

type EswitchConfig struct {
	// PCI address of the physical function owning the eswitch.
	PCIAddress string `yaml:"pciAddress,omitempty"`
	// Devlink bus name of the device. Defaults to pci.
	BusName string `yaml:"busName,omitempty"`
	// PCI function number of the physical function.
	PFNumber uint16 `yaml:"pfNumber,omitempty"`
	// vhca id of the function. It is the upper half of every port index.
	VHCAID uint16 `yaml:"vhcaID,omitempty"`
	// System image GUID of the device, as a hexadecimal string. It is used
	// as the switch id of every port.
	SystemImageGUID string `yaml:"systemImageGUID,omitempty"`
	// Whether the function is an embedded CPU physical function, which
	// manages the host PF vport.
	ECPF bool `yaml:"ecpf,omitempty"`
	// Whether the ports belong to an external host controller.
	External bool `yaml:"external,omitempty"`
	// Host number of the external controller.
	HostNumber uint32 `yaml:"hostNumber,omitempty"`
	// Number of enabled VFs.
	NumVFs uint16 `yaml:"numVFs,omitempty"`
	// First vport number used by subfunctions.
	SFBase uint16 `yaml:"sfBase,omitempty"`
	// Number of subfunction vports.
	MaxSFs uint16 `yaml:"maxSFs,omitempty"`
	// Subfunctions to register.
	SubFunctions []SubFunctionConfig `yaml:"subFunctions,omitempty"`
}

type SubFunctionConfig struct {
	Vport      uint16 `yaml:"vport"`
	Controller uint32 `yaml:"controller,omitempty"`
	SFNumber   uint32 `yaml:"sfNumber"`
}
