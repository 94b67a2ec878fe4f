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

package mask

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Criteria records which sub-records of a Param are active.
type Criteria uint8

const (
	CriteriaOuter Criteria = 1 << iota
	CriteriaMisc
	CriteriaInner
	CriteriaMisc2
	CriteriaMisc3
	CriteriaMisc4

	CriteriaEmpty Criteria = 0
)

// CriteriaMax is the first invalid criteria value.
const CriteriaMax Criteria = 1 << 6

var criteriaNames = []struct {
	c    Criteria
	name string
}{
	{CriteriaOuter, "outer"},
	{CriteriaMisc, "misc"},
	{CriteriaInner, "inner"},
	{CriteriaMisc2, "misc2"},
	{CriteriaMisc3, "misc3"},
	{CriteriaMisc4, "misc4"},
}

// Has reports whether any of the bits in o are set in c.
func (c Criteria) Has(o Criteria) bool {
	return c&o != 0
}

func (c Criteria) String() string {
	if c == CriteriaEmpty {
		return "empty"
	}
	var names []string
	for _, cn := range criteriaNames {
		if c.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	if rest := c &^ (CriteriaMax - 1); rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint8(rest)))
	}
	return strings.Join(names, "|")
}

// ParseCriteria converts a list of sub-record names into a Criteria.
func ParseCriteria(names []string) (Criteria, error) {
	var c Criteria
	for _, n := range names {
		found := false
		for _, cn := range criteriaNames {
			if strings.EqualFold(n, cn.name) {
				c |= cn.c
				found = true
				break
			}
		}
		if !found {
			return CriteriaEmpty, fmt.Errorf("unknown match criteria %q", n)
		}
	}
	return c, nil
}

// ParamSize is the size in bytes of the packed match parameter.
var ParamSize = binary.Size(Param{})

// FromBytes decodes a packed match parameter. Inputs shorter than ParamSize
// are zero padded. Only the sub-records enabled in criteria are kept.
func FromBytes(criteria Criteria, b []byte) (*Param, error) {
	if len(b) > ParamSize {
		return nil, fmt.Errorf("match size %d exceeds %d bytes", len(b), ParamSize)
	}
	buf := make([]byte, ParamSize)
	copy(buf, b)
	full := &Param{}
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, full); err != nil {
		return nil, err
	}
	p := &Param{}
	CopyByCriteria(p, full, criteria)
	return p, nil
}

// Bytes returns the packed form of p.
func (p *Param) Bytes() []byte {
	var buf bytes.Buffer
	// Writing a fixed-size struct into a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.BigEndian, p)
	return buf.Bytes()
}

// CopyByCriteria copies the sub-records of src enabled in criteria into dst.
// Other sub-records of dst are left untouched.
func CopyByCriteria(dst, src *Param, criteria Criteria) {
	if criteria.Has(CriteriaOuter) {
		dst.Outer = src.Outer
	}
	if criteria.Has(CriteriaMisc) {
		dst.Misc = src.Misc
	}
	if criteria.Has(CriteriaInner) {
		dst.Inner = src.Inner
	}
	if criteria.Has(CriteriaMisc2) {
		dst.Misc2 = src.Misc2
	}
	if criteria.Has(CriteriaMisc3) {
		dst.Misc3 = src.Misc3
	}
	if criteria.Has(CriteriaMisc4) {
		dst.Misc4 = src.Misc4
	}
}
