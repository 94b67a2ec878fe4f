//go:build linux
// +build linux

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

package devlinkport

import (
	"fmt"
	"sync"

	"github.com/Mellanox/sriovnet"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
	"k8s.io/klog/v2"
)

const eswitchModeSwitchdev = "switchdev"

// devlinkInterface is the subset of devlink operations used by netlinkSink.
type devlinkInterface interface {
	DevLinkGetDeviceByName(bus, device string) (*netlink.DevlinkDevice, error)
	DevLinkGetPortByIndex(bus, device string, index uint32) (*netlink.DevlinkPort, error)
	DevLinkPortAdd(bus, device string, flavour uint16, attrs netlink.DevLinkPortAddAttrs) (*netlink.DevlinkPort, error)
	DevLinkPortDel(bus, device string, index uint32) error
}

type sriovNetInterface interface {
	GetUplinkRepresentor(pciAddress string) (string, error)
	GetVFRepresentor(uplink string, vfIndex int) (string, error)
}

type netlinkDevlink struct{}

func (netlinkDevlink) DevLinkGetDeviceByName(bus, device string) (*netlink.DevlinkDevice, error) {
	return netlink.DevLinkGetDeviceByName(bus, device)
}

func (netlinkDevlink) DevLinkGetPortByIndex(bus, device string, index uint32) (*netlink.DevlinkPort, error) {
	return netlink.DevLinkGetPortByIndex(bus, device, index)
}

func (netlinkDevlink) DevLinkPortAdd(bus, device string, flavour uint16, attrs netlink.DevLinkPortAddAttrs) (*netlink.DevlinkPort, error) {
	return netlink.DevLinkPortAdd(bus, device, flavour, attrs)
}

func (netlinkDevlink) DevLinkPortDel(bus, device string, index uint32) error {
	return netlink.DevLinkPortDel(bus, device, index)
}

type sriovNet struct{}

func (sriovNet) GetUplinkRepresentor(pciAddress string) (string, error) {
	return sriovnet.GetUplinkRepresentor(pciAddress)
}

func (sriovNet) GetVFRepresentor(uplink string, vfIndex int) (string, error) {
	return sriovnet.GetVfRepresentor(uplink, vfIndex)
}

func nlFlavour(f Flavour) (uint16, error) {
	switch f {
	case FlavourPhysical:
		return nl.DEVLINK_PORT_FLAVOUR_PHYSICAL, nil
	case FlavourPCIPF:
		return nl.DEVLINK_PORT_FLAVOUR_PCI_PF, nil
	case FlavourPCIVF:
		return nl.DEVLINK_PORT_FLAVOUR_PCI_VF, nil
	case FlavourPCISF:
		return nl.DEVLINK_PORT_FLAVOUR_PCI_SF, nil
	}
	return 0, fmt.Errorf("unsupported port flavour %s", f)
}

// netlinkSink publishes ports through the devlink netlink family. Ports of
// the uplink, PF and VF flavours are created by the driver and are only
// checked against the expected attributes. Subfunction ports are added and
// deleted.
type netlinkSink struct {
	bus        string
	device     string
	uplink     string
	devlink    devlinkInterface
	sriovnet   sriovNetInterface
	mutex      sync.Mutex
	registered map[uint32]Flavour
}

// NewNetlinkSink returns an AttrSink for the devlink device bus/pciAddress.
// The device must be in switchdev mode.
func NewNetlinkSink(bus, pciAddress string) (AttrSink, error) {
	return newNetlinkSink(bus, pciAddress, netlinkDevlink{}, sriovNet{})
}

func newNetlinkSink(bus, pciAddress string, devlink devlinkInterface, sn sriovNetInterface) (*netlinkSink, error) {
	dev, err := devlink.DevLinkGetDeviceByName(bus, pciAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get devlink device %s/%s: %w", bus, pciAddress, err)
	}
	if dev.Attrs.Eswitch.Mode != eswitchModeSwitchdev {
		return nil, fmt.Errorf("eswitch of devlink device %s/%s is in %q mode, not %s", bus, pciAddress, dev.Attrs.Eswitch.Mode, eswitchModeSwitchdev)
	}
	uplink, err := sn.GetUplinkRepresentor(pciAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get uplink representor of %s: %w", pciAddress, err)
	}
	klog.InfoS("Using devlink device", "bus", bus, "device", pciAddress, "uplink", uplink)
	return &netlinkSink{
		bus:        bus,
		device:     pciAddress,
		uplink:     uplink,
		devlink:    devlink,
		sriovnet:   sn,
		registered: make(map[uint32]Flavour),
	}, nil
}

func (s *netlinkSink) Register(index uint32, attrs Attrs) error {
	flavour, err := nlFlavour(attrs.Flavour)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.registered[index]; ok {
		return fmt.Errorf("port index %d is in use", index)
	}

	if attrs.Flavour == FlavourPCISF {
		port, err := s.devlink.DevLinkPortAdd(s.bus, s.device, flavour, netlink.DevLinkPortAddAttrs{
			Controller:      attrs.Controller,
			ControllerValid: attrs.External,
			SfNumber:        attrs.SFNumber,
			SfNumberValid:   true,
			PfNumber:        attrs.PFNumber,
			PortIndex:       index,
			PortIndexValid:  true,
		})
		if err != nil {
			return err
		}
		klog.InfoS("Added subfunction port", "index", index, "netdev", port.NetdeviceName)
		s.registered[index] = attrs.Flavour
		return nil
	}

	port, err := s.devlink.DevLinkGetPortByIndex(s.bus, s.device, index)
	if err != nil {
		return fmt.Errorf("devlink port %d not found: %w", index, err)
	}
	if port.PortFlavour != flavour {
		return fmt.Errorf("devlink port %d has flavour %d, expected %s", index, port.PortFlavour, attrs.Flavour)
	}
	if attrs.Flavour == FlavourPCIVF {
		if rep, err := s.sriovnet.GetVFRepresentor(s.uplink, int(attrs.VFNumber)); err != nil {
			klog.ErrorS(err, "Failed to get VF representor", "vf", attrs.VFNumber)
		} else if port.NetdeviceName != "" && rep != port.NetdeviceName {
			return fmt.Errorf("devlink port %d netdev %s does not match VF representor %s", index, port.NetdeviceName, rep)
		}
	}
	s.registered[index] = attrs.Flavour
	return nil
}

func (s *netlinkSink) Unregister(index uint32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	flavour, ok := s.registered[index]
	if !ok {
		return fmt.Errorf("port index %d is not registered", index)
	}
	if flavour == FlavourPCISF {
		if err := s.devlink.DevLinkPortDel(s.bus, s.device, index); err != nil {
			return err
		}
	}
	delete(s.registered, index)
	return nil
}
