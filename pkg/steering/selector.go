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

	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/mask"
	"antrea.io/steering/pkg/steering/ste"
)

const (
	criteriaOuterLayer = mask.CriteriaOuter | mask.CriteriaMisc | mask.CriteriaMisc2 | mask.CriteriaMisc3
	criteriaInnerLayer = mask.CriteriaInner | mask.CriteriaMisc | mask.CriteriaMisc2 | mask.CriteriaMisc3
)

// Gated field groups are only honored when the device can parse them. A
// rejected group stays in the working mask and fails the consumption check.

func isVXLANGPE(p *mask.Param, caps *device.Caps) bool {
	return mask.IsVXLANGPESet(&p.Misc3) && caps.SupportsVXLANGPE()
}

func isGeneve(p *mask.Param, caps *device.Caps) bool {
	return mask.IsGeneveSet(&p.Misc) && caps.SupportsGeneve()
}

func isMPLSOverGRE(p *mask.Param, caps *device.Caps) bool {
	return mask.IsMPLSOverGRESet(&p.Misc2) && caps.SupportsMPLSOverGRE()
}

func isMPLSOverUDP(p *mask.Param, caps *device.Caps) bool {
	return mask.IsMPLSOverUDPSet(&p.Misc2) && caps.SupportsMPLSOverUDP()
}

// isICMP checks ICMPv4 first, the ICMPv6 fields are only considered when no
// ICMPv4 field is set.
func isICMP(p *mask.Param, caps *device.Caps) bool {
	if mask.IsICMPv4Set(&p.Misc3) {
		return caps.SupportsICMPv4()
	}
	if mask.IsICMPv6Set(&p.Misc3) {
		return caps.SupportsICMPv6()
	}
	return false
}

// selector appends builders to a builder set, consuming the working mask.
// The first error stops all further appends.
type selector struct {
	ctx  ste.Context
	caps *device.Caps
	rx   bool
	work *mask.Param
	set  *builderSet
	err  error
}

func (s *selector) add(kind ste.Kind, inner bool) {
	if s.err != nil {
		return
	}
	if s.set.n == ste.MaxBuilders {
		s.err = fmt.Errorf("%w: mask needs more than %d builders", ErrUnsupported, ste.MaxBuilders)
		return
	}
	if err := s.ctx.Build(&s.set.builders[s.set.n], kind, s.work, s.caps, inner, s.rx); err != nil {
		s.err = builderError(err)
		return
	}
	s.set.n++
}

func (s *selector) addIPBuilders(ipv mask.IPVersion, inner bool) {
	p := s.work
	spec := p.Spec(inner)
	if ipv == mask.IPv6 {
		if mask.IsDstAddrSet(spec) {
			s.add(ste.KindEthL3IPv6Dst, inner)
		}
		if mask.IsSrcAddrSet(spec) {
			s.add(ste.KindEthL3IPv6Src, inner)
		}
		if mask.IsEthL4Set(p, inner) {
			s.add(ste.KindEthIPv6L3L4, inner)
		}
		return
	}
	if mask.IsIPv4FiveTupleSet(spec) {
		s.add(ste.KindEthL3IPv4FiveTuple, inner)
	}
	if mask.IsTTLSet(spec) {
		s.add(ste.KindEthL3IPv4Misc, inner)
	}
}

func (s *selector) addL2Builders(inner bool) {
	p := s.work
	spec := p.Spec(inner)
	if mask.IsSMACSet(spec) && mask.IsDMACSet(spec) {
		s.add(ste.KindEthL2SrcDst, inner)
	}
	if mask.IsSMACSet(spec) {
		s.add(ste.KindEthL2Src, inner)
	}
	if mask.IsL2DstSet(p, inner) {
		s.add(ste.KindEthL2Dst, inner)
	}
}

func (s *selector) addMPLSOverTunnel(inner bool) {
	if isMPLSOverGRE(s.work, s.caps) {
		s.add(ste.KindTunnelMPLSOverGRE, inner)
	} else if isMPLSOverUDP(s.work, s.caps) {
		s.add(ste.KindTunnelMPLSOverUDP, inner)
	}
}

func (s *selector) addOuter(d *Domain, ipv mask.IPVersion) {
	const inner = false
	p := s.work
	if mask.IsWQEMetadataSet(&p.Misc2) {
		s.add(ste.KindGeneralPurpose, inner)
	}
	if mask.IsRegC0To3Set(&p.Misc2) {
		s.add(ste.KindRegister0, inner)
	}
	if mask.IsRegC4To7Set(&p.Misc2) {
		s.add(ste.KindRegister1, inner)
	}
	if mask.IsGVMIOrQPNSet(&p.Misc) && (d.typ == DomainTypeFDB || d.typ == DomainTypeNICRX) {
		s.add(ste.KindSrcGVMIQPN, inner)
	}
	s.addL2Builders(inner)
	s.addIPBuilders(ipv, inner)

	if isVXLANGPE(p, s.caps) {
		s.add(ste.KindTunnelVXLANGPE, inner)
	} else if isGeneve(p, s.caps) {
		s.add(ste.KindTunnelGeneve, inner)
		if mask.IsGeneveTLVOptionSet(&p.Misc3) {
			s.add(ste.KindTunnelGeneveTLVOption, inner)
		}
	}
	if mask.IsEthL4MiscSet(p, inner) {
		s.add(ste.KindEthL4Misc, inner)
	}
	if mask.IsFirstMPLSSet(p, inner) {
		s.add(ste.KindMPLS, inner)
	}
	s.addMPLSOverTunnel(inner)
	if isICMP(p, s.caps) {
		s.add(ste.KindICMP, inner)
	}
	if mask.IsTunnelGRESet(&p.Misc) {
		s.add(ste.KindTunnelGRE, inner)
	}
}

func (s *selector) addInner(ipv mask.IPVersion) {
	const inner = true
	p := s.work
	if mask.IsEthL2TunnelSet(&p.Misc) {
		s.add(ste.KindEthL2Tunnel, inner)
	}
	s.addL2Builders(inner)
	s.addIPBuilders(ipv, inner)
	if mask.IsEthL4MiscSet(p, inner) {
		s.add(ste.KindEthL4Misc, inner)
	}
	if mask.IsFirstMPLSSet(p, inner) {
		s.add(ste.KindMPLS, inner)
	}
	s.addMPLSOverTunnel(inner)
}

// setBuilders compiles the builder set of one outer and inner IP version
// combination. On failure the set is left empty.
func (m *Matcher) setBuilders(nm *nicMatcher, outer, inner mask.IPVersion) error {
	d := m.tbl.dmn
	set := &nm.sets[outer][inner]
	set.reset()

	if d.opts.EnableDefiners {
		err := m.setDefinerBuilders(nm, set)
		if err == nil {
			return nil
		}
		klog.V(4).InfoS("Definer templates not usable, falling back to fixed builders", "err", err)
	}

	rx := nm.dir == device.DirectionRX
	var work mask.Param
	mask.CopyByCriteria(&work, &m.mask, m.criteria)
	// The IP version of a wildcard layer is carried by the builder set slot.
	if work.Outer.IPVersion == mask.IPVersionWildcard {
		work.Outer.IPVersion = 0
	}
	if work.Inner.IPVersion == mask.IPVersionWildcard {
		work.Inner.IPVersion = 0
	}

	allowEmpty := false
	if d.typ == DomainTypeFDB && rx && !d.opts.FDBRxMatchSourcePort && work.Misc.SourcePort != 0 {
		work.Misc.SourcePort = 0
		work.Misc.SourceEswitchOwnerVHCAID = 0
		allowEmpty = true
	}

	s := &selector{ctx: d.steCtx, caps: d.caps, rx: rx, work: &work, set: set}
	if m.criteria.Has(criteriaOuterLayer) {
		s.addOuter(d, outer)
	}
	if m.criteria.Has(criteriaInnerLayer) {
		s.addInner(inner)
	}
	if m.criteria.Has(mask.CriteriaMisc4) {
		if mask.IsFlexParser0To3Set(&work.Misc4) {
			s.add(ste.KindFlexParser0, false)
		}
		if mask.IsFlexParser4To7Set(&work.Misc4) {
			s.add(ste.KindFlexParser1, false)
		}
	}
	if s.err == nil && ((set.n == 0 && allowEmpty) || m.criteria == mask.CriteriaEmpty) {
		s.add(ste.KindEmptyAlwaysHit, false)
	}
	if s.err != nil {
		set.reset()
		return s.err
	}
	if !work.IsConsumed() {
		klog.V(4).InfoS("Mask contains unsupported parameters", "outer", outer, "inner", inner, "direction", nm.dir)
		set.reset()
		return fmt.Errorf("%w: mask contains unsupported parameters", ErrUnsupported)
	}
	if set.n == 0 {
		return ErrNoValidRule
	}
	return nil
}

// setAllBuilders compiles a builder set for every IP version combination the
// mask allows. It succeeds when at least one combination compiles.
func (m *Matcher) setAllBuilders(nm *nicMatcher) error {
	outer, inner, err := maskIPVersions(&m.mask, m.criteria)
	if err != nil {
		return fmt.Errorf("cannot generate IPv4/IPv6 rules with given IP version and address mask: %w", err)
	}
	var lastErr error
	for o := mask.IPv4; o < mask.IPVersionMax; o++ {
		for i := mask.IPv4; i < mask.IPVersionMax; i++ {
			if !outer[o] || !inner[i] {
				continue
			}
			if err := m.setBuilders(nm, o, i); err != nil {
				klog.V(4).InfoS("Cannot compile builders", "outer", o, "inner", i, "direction", nm.dir, "err", err)
				lastErr = err
				continue
			}
			nm.selected = &nm.sets[o][i]
		}
	}
	if nm.selected == nil {
		if lastErr == nil {
			lastErr = ErrNoValidRule
		}
		return lastErr
	}
	return nil
}
