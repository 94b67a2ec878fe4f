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
	"io"

	"github.com/spf13/cobra"

	"antrea.io/steering/pkg/devlinkport"
)

type portsOptions struct {
	useNetlink bool
}

func newPortsCommand(opts *Options) *cobra.Command {
	popts := &portsOptions{}
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Register the devlink ports of the eswitch",
		Long: "Register a devlink port for the uplink, the host PF (ECPF only), every VF " +
			"and every configured subfunction of the eswitch, and print their attributes.",
	}
	cmd.Run = runWithOptions(opts, "ports", func() error {
		var sink devlinkport.AttrSink
		if popts.useNetlink {
			var err error
			if sink, err = devlinkport.NewNetlinkSink(opts.config.Eswitch.BusName, opts.config.Eswitch.PCIAddress); err != nil {
				return err
			}
		} else {
			sink = devlinkport.NewRecordingSink()
		}
		return runPorts(opts, sink, cmd.OutOrStdout())
	})
	cmd.Flags().BoolVar(&popts.useNetlink, "netlink", false, "Publish the ports through devlink instead of printing them only")
	return cmd
}

func runPorts(o *Options, sink devlinkport.AttrSink, out io.Writer) error {
	r := devlinkport.NewRegistrar(o.eswitch, sink)
	logger := NewLogger(out, "")

	vports := []uint16{devlinkport.VportUplink, devlinkport.VportPF}
	for vf := uint16(1); vf <= o.eswitch.NumVFs; vf++ {
		vports = append(vports, vf)
	}
	failed := 0
	for _, vport := range vports {
		if err := r.RegisterVport(vport); err != nil {
			logger.Fail("✗ vport %d: %v", vport, err)
			failed++
		}
	}
	for _, sf := range o.config.Eswitch.SubFunctions {
		if err := r.RegisterSF(sf.Vport, sf.Controller, sf.SFNumber); err != nil {
			logger.Fail("✗ sf vport %d: %v", sf.Vport, err)
			failed++
		}
	}
	for _, p := range r.Ports() {
		logger.Success("✓ %s/%s/%d: vport 0x%04x, %s", o.config.Eswitch.BusName, o.config.Eswitch.PCIAddress, p.Index, p.Vport, p.Attrs)
	}
	if failed > 0 {
		return fmt.Errorf("%d devlink ports could not be registered", failed)
	}
	return nil
}
