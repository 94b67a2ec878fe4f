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
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
	"k8s.io/component-base/featuregate"

	steeringconfig "antrea.io/steering/pkg/config/steering"
	"antrea.io/steering/pkg/devlinkport"
	"antrea.io/steering/pkg/features"
	"antrea.io/steering/pkg/log"
	"antrea.io/steering/pkg/steering"
	"antrea.io/steering/pkg/steering/device"
)

const (
	// Every matcher takes two hash tables per pipeline, and the table one
	// start anchor per pipeline.
	minHashTablePoolSize = 6
	maxHashTablePoolSize = 1 << 20
	icmAlignment         = 0x1000
)

type Options struct {
	// The path of configuration file.
	configFile string
	// The configuration object
	config *steeringconfig.SteeringConfig
	fs     afero.Fs
	// Feature gate the configured featureGates are applied to.
	featureGate featuregate.MutableFeatureGate

	domainType  steering.DomainType
	icmBase     uint64
	missAddress uint64
	caps        device.Caps
	eswitch     devlinkport.Eswitch
}

func newOptions() *Options {
	return &Options{
		config:      new(steeringconfig.SteeringConfig),
		fs:          afero.NewOsFs(),
		featureGate: features.DefaultMutableFeatureGate,
	}
}

// addFlags adds flags to fs and binds them to options.
func (o *Options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configFile, "config", o.configFile, "The path to the configuration file")
}

// complete completes all the required options.
func (o *Options) complete(args []string) error {
	if len(o.configFile) > 0 {
		c, err := o.loadConfigFromFile(o.configFile)
		if err != nil {
			return err
		}
		o.config = c
	}
	steeringconfig.SetConfigDefaults(o.config)
	if o.config.LogVerbosity != "" {
		if err := log.SetLogLevel(o.config.LogVerbosity); err != nil {
			return err
		}
	}
	return o.featureGate.SetFromMap(o.config.FeatureGates)
}

// validate validates all the required options. It must be called after complete.
func (o *Options) validate(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("no positional arguments are supported")
	}
	var err error
	if o.domainType, err = steering.ParseDomainType(o.config.DomainType); err != nil {
		return err
	}
	if o.config.HashTablePoolSize < minHashTablePoolSize || o.config.HashTablePoolSize > maxHashTablePoolSize {
		return fmt.Errorf("hashTablePoolSize %d is out of range [%d, %d]", o.config.HashTablePoolSize, minHashTablePoolSize, maxHashTablePoolSize)
	}
	if o.icmBase, err = steeringconfig.ParseAddress(o.config.ICMBase); err != nil {
		return fmt.Errorf("icmBase: %w", err)
	}
	if o.icmBase == 0 || o.icmBase%icmAlignment != 0 {
		return fmt.Errorf("icmBase 0x%x must be a non-zero multiple of 0x%x", o.icmBase, icmAlignment)
	}
	if o.missAddress, err = steeringconfig.ParseAddress(o.config.DefaultMissAddress); err != nil {
		return fmt.Errorf("defaultMissAddress: %w", err)
	}
	if o.missAddress == 0 {
		return fmt.Errorf("defaultMissAddress must not be zero")
	}
	if o.caps, err = o.config.Device.Caps(); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	if o.featureGate.Enabled(features.DefinerFastPath) && !o.caps.SupportsDefiners() {
		return fmt.Errorf("feature gate %s requires a %s device with definer formats", features.DefinerFastPath, device.GenerationConnectX6DX)
	}
	if o.eswitch, err = o.config.Eswitch.Eswitch(); err != nil {
		return fmt.Errorf("eswitch: %w", err)
	}
	return nil
}

func (o *Options) loadConfigFromFile(file string) (*steeringconfig.SteeringConfig, error) {
	data, err := afero.ReadFile(o.fs, file)
	if err != nil {
		return nil, err
	}

	var c steeringconfig.SteeringConfig
	err = yaml.UnmarshalStrict(data, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// domainOptions returns the options of the steering domain built from the
// configuration.
func (o *Options) domainOptions() steering.Options {
	return steering.Options{
		EnableDefiners:       o.featureGate.Enabled(features.DefinerFastPath),
		FDBRxMatchSourcePort: !*o.config.FDBRxWireOnly,
		PoolSize:             o.config.HashTablePoolSize,
		ICMBase:              o.icmBase,
		DefaultMissAddress:   o.missAddress,
	}
}
