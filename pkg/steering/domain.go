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

// Package steering compiles match masks into steering entry builders and
// links matchers into the priority ordered hash table chain of their table.
package steering

import (
	"fmt"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/ste"
)

// DomainType is the traffic scope of a Domain.
type DomainType int

const (
	DomainTypeNICRX DomainType = iota
	DomainTypeNICTX
	DomainTypeFDB
)

func (t DomainType) String() string {
	switch t {
	case DomainTypeNICRX:
		return "nic_rx"
	case DomainTypeNICTX:
		return "nic_tx"
	case DomainTypeFDB:
		return "fdb"
	default:
		return fmt.Sprintf("DomainType(%d)", int(t))
	}
}

// ParseDomainType converts the name of a domain type into a DomainType.
func ParseDomainType(s string) (DomainType, error) {
	switch strings.ToLower(s) {
	case "nic_rx", "nicrx", "rx":
		return DomainTypeNICRX, nil
	case "nic_tx", "nictx", "tx":
		return DomainTypeNICTX, nil
	case "fdb":
		return DomainTypeFDB, nil
	}
	return 0, fmt.Errorf("unknown domain type %q", s)
}

var (
	rxOnly = []device.Direction{device.DirectionRX}
	txOnly = []device.Direction{device.DirectionTX}
	rxTx   = []device.Direction{device.DirectionRX, device.DirectionTX}
)

// directions returns the pipelines a domain type spans, in programming order.
func (t DomainType) directions() []device.Direction {
	switch t {
	case DomainTypeNICRX:
		return rxOnly
	case DomainTypeNICTX:
		return txOnly
	case DomainTypeFDB:
		return rxTx
	}
	// NewDomain rejects unknown types.
	panic(fmt.Sprintf("invalid domain type %d", int(t)))
}

const (
	defaultPoolSize = 1024
	defaultICMBase  = 0x100000000
	// DefaultMissAddress is where the last anchor of a chain misses to when
	// no address is configured.
	DefaultMissAddress = 0xdead0000
)

type Options struct {
	// EnableDefiners makes matchers try the definer templates before the
	// fixed builders.
	EnableDefiners bool
	// FDBRxMatchSourcePort keeps the source port match of FDB matchers on the
	// rx pipeline. By default it is dropped there, as the rx side of the FDB
	// is connected to the wire and nothing else.
	FDBRxMatchSourcePort bool
	// PoolSize is the number of hash tables the domain can allocate.
	PoolSize int
	// ICMBase is the ICM address of the first hash table.
	ICMBase uint64
	// DefaultMissAddress is the miss target of new tables.
	DefaultMissAddress uint64
}

// Domain owns the device, its capabilities and the hash table pool shared by
// all tables created in it.
type Domain struct {
	// mu serializes structural changes of tables and matchers. It nests the
	// table locks.
	mu     sync.Mutex
	typ    DomainType
	dev    device.Device
	caps   *device.Caps
	steCtx ste.Context
	pool   *htbl.Pool
	opts   Options
}

// NewDomain queries the capabilities of dev and returns a Domain of the given
// type.
func NewDomain(dev device.Device, typ DomainType, steCtx ste.Context, opts Options) (*Domain, error) {
	if typ < DomainTypeNICRX || typ > DomainTypeFDB {
		return nil, fmt.Errorf("%w: invalid domain type %d", ErrInvalidArgument, int(typ))
	}
	caps, err := dev.QueryCaps()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query device capabilities: %v", ErrDeviceError, err)
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaultPoolSize
	}
	if opts.ICMBase == 0 {
		opts.ICMBase = defaultICMBase
	}
	if opts.DefaultMissAddress == 0 {
		opts.DefaultMissAddress = DefaultMissAddress
	}
	if steCtx == nil {
		steCtx = ste.NewContext()
	}
	if opts.EnableDefiners && !caps.SupportsDefiners() {
		klog.InfoS("Definer templates requested but not supported by the device", "generation", caps.Generation)
	}
	if typ == DomainTypeFDB && !opts.FDBRxMatchSourcePort {
		klog.V(2).InfoS("FDB rx pipeline assumed to be connected to the wire only, source port matches are dropped on rx")
	}
	d := &Domain{
		typ:    typ,
		dev:    dev,
		caps:   caps,
		steCtx: steCtx,
		pool:   htbl.NewPool(opts.ICMBase, opts.PoolSize),
		opts:   opts,
	}
	klog.InfoS("Created steering domain", "type", typ, "generation", caps.Generation, "poolSize", opts.PoolSize)
	return d, nil
}

func (d *Domain) Type() DomainType {
	return d.typ
}

func (d *Domain) Caps() device.Caps {
	return *d.caps
}

// Pool returns the hash table pool of the domain. Callers must treat it as
// read only.
func (d *Domain) Pool() *htbl.Pool {
	return d.pool
}
