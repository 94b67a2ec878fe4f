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

	"antrea.io/steering/pkg/steering/mask"
)

// ipVersions is the set of IP versions builder sets are compiled for on one
// layer.
type ipVersions [mask.IPVersionMax]bool

// layerIPVersions derives the IP versions of one layer from its ip_version
// mask and from the presence of address words only IPv6 can match.
func layerIPVersions(ipVersion uint8, ipv6Only bool) (ipVersions, error) {
	if ipVersion == 4 && ipv6Only {
		return ipVersions{}, fmt.Errorf("%w: ip_version 4 with IPv6 address fields", ErrInvalidArgument)
	}
	switch {
	case ipVersion == mask.IPVersionWildcard:
		return ipVersions{mask.IPv4: true, mask.IPv6: true}, nil
	case ipVersion == 6 || ipv6Only:
		return ipVersions{mask.IPv6: true}, nil
	default:
		return ipVersions{mask.IPv4: true}, nil
	}
}

// maskIPVersions returns the outer and inner IP versions a mask must be
// compiled for. A layer whose criteria bit is not set is treated as IPv4.
func maskIPVersions(p *mask.Param, criteria mask.Criteria) (outer, inner ipVersions, err error) {
	var outerIPVersion, innerIPVersion uint8
	var outerIPv6Only, innerIPv6Only bool
	if criteria.Has(mask.CriteriaOuter) {
		outerIPVersion = p.Outer.IPVersion
		outerIPv6Only = mask.IsIPv6OnlySet(&p.Outer)
	}
	if criteria.Has(mask.CriteriaInner) {
		innerIPVersion = p.Inner.IPVersion
		innerIPv6Only = mask.IsIPv6OnlySet(&p.Inner)
	}
	if outer, err = layerIPVersions(outerIPVersion, outerIPv6Only); err != nil {
		return outer, inner, fmt.Errorf("outer: %w", err)
	}
	if inner, err = layerIPVersions(innerIPVersion, innerIPv6Only); err != nil {
		return outer, inner, fmt.Errorf("inner: %w", err)
	}
	return outer, inner, nil
}
