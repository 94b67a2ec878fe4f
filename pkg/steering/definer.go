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

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/metrics"
	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/mask"
	"antrea.io/steering/pkg/steering/ste"
)

// definerCandidate is one combination of definer templates able to cover a
// whole mask.
type definerCandidate struct {
	kinds []ste.Kind
	// ipVersion replaces a wildcard ip_version of the mask.
	ipVersion uint8
}

// definerCandidates returns the candidates the device supports, in the order
// they are tried.
func definerCandidates(caps *device.Caps, p *mask.Param) []definerCandidate {
	var cs []definerCandidate
	for _, k := range []ste.Kind{ste.KindDefiner0, ste.KindDefiner22, ste.KindDefiner24, ste.KindDefiner25} {
		if caps.SupportsDefiner(k.DefinerFormat()) {
			cs = append(cs, definerCandidate{kinds: []ste.Kind{k}, ipVersion: 4})
		}
	}
	if mask.IsSrcAddrSet(&p.Outer) &&
		caps.SupportsDefiner(ste.DefinerFormat6) && caps.SupportsDefiner(ste.DefinerFormat26) {
		c := definerCandidate{kinds: []ste.Kind{ste.KindDefiner26}, ipVersion: 6}
		if mask.IsDstAddrSet(&p.Outer) {
			c.kinds = append(c.kinds, ste.KindDefiner6)
		}
		cs = append(cs, c)
	}
	return cs
}

func adjustDefinerIPVersion(p *mask.Param, ipVersion uint8) {
	if p.Outer.IPVersion == mask.IPVersionWildcard {
		p.Outer.IPVersion = ipVersion
	}
	if p.Inner.IPVersion == mask.IPVersionWildcard {
		p.Inner.IPVersion = ipVersion
	}
}

// setDefinerBuilders tries to cover the mask with definer templates and
// creates the definer objects of the first candidate that consumes the whole
// mask. On failure set is left empty and no definer object is left behind.
func (m *Matcher) setDefinerBuilders(nm *nicMatcher, set *builderSet) error {
	d := m.tbl.dmn
	if !d.caps.SupportsDefiners() {
		return fmt.Errorf("%w: device does not support definers", ErrUnsupported)
	}
	rx := nm.dir == device.DirectionRX
	for _, c := range definerCandidates(d.caps, &m.mask) {
		var work mask.Param
		mask.CopyByCriteria(&work, &m.mask, m.criteria)
		adjustDefinerIPVersion(&work, c.ipVersion)

		set.reset()
		built := true
		for _, k := range c.kinds {
			if err := d.steCtx.Build(&set.builders[set.n], k, &work, d.caps, false, rx); err != nil {
				built = false
				break
			}
			set.n++
		}
		if !built || !work.IsConsumed() {
			continue
		}
		if err := m.createDefiners(set); err != nil {
			set.reset()
			return err
		}
		metrics.DefinerMatcherCount.Inc()
		return nil
	}
	set.reset()
	return fmt.Errorf("%w: no definer template covers the mask", ErrUnsupported)
}

// createDefiners creates a definer object for every builder of set. If one
// creation fails, the objects created before are destroyed.
func (m *Matcher) createDefiners(set *builderSet) error {
	dev := m.tbl.dmn.dev
	for i := 0; i < set.n; i++ {
		b := &set.builders[i]
		id, err := dev.CreateDefiner(b.FormatID, &b.Match)
		if err != nil {
			if derr := destroyDefiners(dev, set.builders[:i]); derr != nil {
				klog.ErrorS(derr, "Failed to destroy definers after a creation failure")
			}
			return fmt.Errorf("%w: failed to create definer of format %d: %v", ErrDeviceError, b.FormatID, err)
		}
		// The lookup type combines the definer and the entry type.
		b.LookupType = ste.LookupTypeMatch | uint16(id)
		b.HTBLType = htbl.TypeMatch
		b.DefinerID = id
	}
	return nil
}

func destroyDefiners(dev device.Device, builders []ste.Builder) error {
	var errs []error
	for i := range builders {
		if err := dev.DestroyDefiner(builders[i].DefinerID); err != nil {
			errs = append(errs, fmt.Errorf("definer %d: %w", builders[i].DefinerID, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// clearBuilders empties every builder set of nm and destroys the definer
// objects backing them.
func (m *Matcher) clearBuilders(nm *nicMatcher) error {
	dev := m.tbl.dmn.dev
	var errs []error
	for o := range nm.sets {
		for i := range nm.sets[o] {
			set := &nm.sets[o][i]
			if set.isDefiner() {
				if err := destroyDefiners(dev, set.builders[:set.n]); err != nil {
					errs = append(errs, err)
				}
			}
			set.reset()
		}
	}
	nm.selected = nil
	return utilerrors.NewAggregate(errs)
}
