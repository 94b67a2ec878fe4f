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

package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"antrea.io/steering/pkg/steering/mask"
)

// matcherDefinition is one entry of a matchers file. Mask values are
// integers or strings in any base accepted by strconv.ParseUint, and
// addresses may also be written as IPv4 or IPv6 masks, e.g.
//
//	matchers:
//	- name: l3
//	  priority: 10
//	  mask:
//	    outer:
//	      ip_version: 0xf
//	      dst_ip: 255.255.255.0
type matcherDefinition struct {
	Name     string `yaml:"name"`
	Priority uint32 `yaml:"priority"`
	// Criteria lists the active sub-records of the mask. When empty, the
	// sub-records present in Mask are used.
	Criteria []string               `yaml:"criteria,omitempty"`
	Mask     map[string]interface{} `yaml:"mask"`
}

type matcherFile struct {
	Matchers []matcherDefinition `yaml:"matchers"`
}

var ipMaskType = reflect.TypeOf([4]uint32{})

// ipMaskHookFunc decodes an address written as an IP into the word layout of
// mask.Spec addresses.
func ipMaskHookFunc(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != ipMaskType {
		return data, nil
	}
	s := data.(string)
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid address mask %q", s)
	}
	var words [4]uint32
	if ip4 := ip.To4(); ip4 != nil && !strings.Contains(s, ":") {
		words[3] = binary.BigEndian.Uint32(ip4)
		return words, nil
	}
	for i := range words {
		words[i] = binary.BigEndian.Uint32(ip[i*4:])
	}
	return words, nil
}

func decodeMask(raw map[string]interface{}) (*mask.Param, error) {
	p := &mask.Param{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       ipMaskHookFunc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           p,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// criteria returns the criteria of the definition.
func (d *matcherDefinition) criteria() (mask.Criteria, error) {
	if len(d.Criteria) > 0 {
		return mask.ParseCriteria(d.Criteria)
	}
	names := make([]string, 0, len(d.Mask))
	for name := range d.Mask {
		names = append(names, name)
	}
	return mask.ParseCriteria(names)
}

func loadMatchersFromFile(fs afero.Fs, file string) ([]matcherDefinition, error) {
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, err
	}
	var mf matcherFile
	if err := yaml.UnmarshalStrict(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse matchers file %s: %w", file, err)
	}
	for i := range mf.Matchers {
		if mf.Matchers[i].Name == "" {
			mf.Matchers[i].Name = fmt.Sprintf("matcher-%d", i)
		}
	}
	return mf.Matchers, nil
}
