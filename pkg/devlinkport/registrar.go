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
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"k8s.io/klog/v2"
)

const (
	VportPF     uint16 = 0
	VportECPF   uint16 = 0xfffe
	VportUplink uint16 = 0xffff
)

var (
	ErrUnknownVport = errors.New("unknown vport")
	ErrRegistered   = errors.New("vport already has a devlink port")
)

// Eswitch describes the eswitch owning the vports.
type Eswitch struct {
	// VHCAID is the vhca id of the function, used in port indexes.
	VHCAID uint16
	// PFNumber is the PCI function number of the physical function.
	PFNumber        uint16
	SystemImageGUID uint64
	// ECPF is set when the function is an embedded CPU physical function.
	ECPF       bool
	External   bool
	HostNumber uint32
	NumVFs     uint16
	// SFBase is the first subfunction vport, MaxSFs the number of them.
	SFBase uint16
	MaxSFs uint16
}

func (e *Eswitch) isVFVport(vport uint16) bool {
	return vport >= 1 && vport <= e.NumVFs
}

func (e *Eswitch) isSFVport(vport uint16) bool {
	return e.MaxSFs > 0 && vport >= e.SFBase && uint32(vport) < uint32(e.SFBase)+uint32(e.MaxSFs)
}

func (e *Eswitch) hasVport(vport uint16) bool {
	return vport == VportUplink || vport == VportPF || (e.ECPF && vport == VportECPF) || e.isVFVport(vport) || e.isSFVport(vport)
}

// supported reports whether vport gets a devlink port on registration. The
// host PF vport is only managed from an ECPF.
func (e *Eswitch) supported(vport uint16) bool {
	return vport == VportUplink || (e.ECPF && vport == VportPF) || e.isVFVport(vport)
}

func (e *Eswitch) switchID() SwitchID {
	var id SwitchID
	binary.NativeEndian.PutUint64(id[:], e.SystemImageGUID)
	return id
}

func (e *Eswitch) controller() uint32 {
	if e.External {
		return e.HostNumber + 1
	}
	return 0
}

// PortIndex returns the devlink port index of vport.
func (e *Eswitch) PortIndex(vport uint16) uint32 {
	return uint32(e.VHCAID)<<16 | uint32(vport)
}

func (e *Eswitch) vportAttrs(vport uint16) Attrs {
	attrs := Attrs{SwitchID: e.switchID()}
	switch {
	case vport == VportUplink:
		attrs.Flavour = FlavourPhysical
		attrs.PortNumber = uint32(e.PFNumber)
	case vport == VportPF:
		attrs.Flavour = FlavourPCIPF
		attrs.Controller = e.controller()
		attrs.PFNumber = e.PFNumber
		attrs.External = e.External
	default:
		attrs.Flavour = FlavourPCIVF
		attrs.Controller = e.controller()
		attrs.PFNumber = e.PFNumber
		attrs.VFNumber = vport - 1
		attrs.External = e.External
	}
	return attrs
}

// Port is a registered devlink port.
type Port struct {
	Vport uint16
	Index uint32
	Attrs Attrs
}

// Registrar keeps track of the devlink ports registered for the vports of
// one eswitch.
type Registrar struct {
	esw  Eswitch
	sink AttrSink

	mutex sync.Mutex
	ports map[uint16]Port
}

func NewRegistrar(esw Eswitch, sink AttrSink) *Registrar {
	return &Registrar{
		esw:   esw,
		sink:  sink,
		ports: make(map[uint16]Port),
	}
}

func (r *Registrar) register(vport uint16, attrs Attrs) error {
	if _, ok := r.ports[vport]; ok {
		return fmt.Errorf("%w: %d", ErrRegistered, vport)
	}
	index := r.esw.PortIndex(vport)
	if err := r.sink.Register(index, attrs); err != nil {
		return fmt.Errorf("failed to register devlink port %d for vport %d: %w", index, vport, err)
	}
	r.ports[vport] = Port{Vport: vport, Index: index, Attrs: attrs}
	klog.V(2).InfoS("Registered devlink port", "vport", vport, "index", index, "attrs", attrs)
	return nil
}

func (r *Registrar) unregister(vport uint16) error {
	port, ok := r.ports[vport]
	if !ok {
		return nil
	}
	if err := r.sink.Unregister(port.Index); err != nil {
		return fmt.Errorf("failed to unregister devlink port %d for vport %d: %w", port.Index, vport, err)
	}
	delete(r.ports, vport)
	klog.V(2).InfoS("Unregistered devlink port", "vport", vport, "index", port.Index)
	return nil
}

// RegisterVport registers the devlink port of the uplink, the host PF or a
// VF vport. Vports that have no devlink port are ignored.
func (r *Registrar) RegisterVport(vport uint16) error {
	if !r.esw.supported(vport) {
		return nil
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.register(vport, r.esw.vportAttrs(vport))
}

func (r *Registrar) UnregisterVport(vport uint16) error {
	if !r.esw.supported(vport) {
		return nil
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.unregister(vport)
}

// RegisterSF registers the devlink port of a subfunction. A non-zero
// controller marks the subfunction as external.
func (r *Registrar) RegisterSF(vport uint16, controller, sfNumber uint32) error {
	if !r.esw.isSFVport(vport) {
		return fmt.Errorf("%w: %d is not a subfunction vport", ErrUnknownVport, vport)
	}
	attrs := Attrs{
		Flavour:    FlavourPCISF,
		SwitchID:   r.esw.switchID(),
		Controller: controller,
		PFNumber:   r.esw.PFNumber,
		SFNumber:   sfNumber,
		External:   controller != 0,
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.register(vport, attrs)
}

func (r *Registrar) UnregisterSF(vport uint16) error {
	if !r.esw.isSFVport(vport) {
		return fmt.Errorf("%w: %d is not a subfunction vport", ErrUnknownVport, vport)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.unregister(vport)
}

// Port returns the devlink port registered for vport.
func (r *Registrar) Port(vport uint16) (Port, error) {
	if !r.esw.hasVport(vport) {
		return Port{}, fmt.Errorf("%w: %d", ErrUnknownVport, vport)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	port, ok := r.ports[vport]
	if !ok {
		return Port{}, fmt.Errorf("vport %d has no devlink port", vport)
	}
	return port, nil
}

// Ports returns all registered ports ordered by port index.
func (r *Registrar) Ports() []Port {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ports := make([]Port, 0, len(r.ports))
	for _, p := range r.ports {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].Index < ports[j].Index
	})
	return ports
}
