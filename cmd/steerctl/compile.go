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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/component-base/metrics/legacyregistry"
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/metrics"
	"antrea.io/steering/pkg/steering"
	"antrea.io/steering/pkg/steering/device"
	"antrea.io/steering/pkg/steering/mask"
)

type compileOptions struct {
	matchersFile string
	// printMetrics prints the steering metrics after the matchers are torn
	// down.
	printMetrics bool
}

func newCompileCommand(opts *Options) *cobra.Command {
	copts := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile matchers and link them into a table",
		Long: "Compile the matchers of a matchers file on a simulated device, print the " +
			"builders selected for every pipeline and address family combination, and " +
			"print the resulting hash table chain.",
	}
	cmd.Run = runWithOptions(opts, "compile", func() error {
		if copts.matchersFile == "" {
			return fmt.Errorf("--matchers is required")
		}
		return runCompile(opts, copts, cmd.OutOrStdout())
	})
	cmd.Flags().StringVar(&copts.matchersFile, "matchers", "", "The path to the matchers file")
	cmd.Flags().BoolVar(&copts.printMetrics, "metrics", false, "Print the steering metrics in the Prometheus text format")
	return cmd
}

var (
	directions   = []device.Direction{device.DirectionRX, device.DirectionTX}
	ipVersions   = []mask.IPVersion{mask.IPv4, mask.IPv6}
	errCompiling = errors.New("some matchers could not be compiled")
)

func runCompile(o *Options, co *compileOptions, out io.Writer) error {
	metrics.InitializeSteeringMetrics()

	defs, err := loadMatchersFromFile(o.fs, co.matchersFile)
	if err != nil {
		return err
	}

	sim := device.NewSimulator(o.caps)
	dmn, err := steering.NewDomain(sim, o.domainType, nil, o.domainOptions())
	if err != nil {
		return err
	}
	tbl, err := dmn.CreateTable()
	if err != nil {
		return err
	}

	logger := NewLogger(out, "")
	logger.Log("Domain %s on %s device, %d matchers", o.domainType, o.caps.Generation, len(defs))

	names := make(map[*steering.Matcher]string, len(defs))
	var created []*steering.Matcher
	failed := 0
	for i := range defs {
		def := &defs[i]
		m, err := createMatcher(tbl, def)
		if err != nil {
			logger.Fail("✗ %s: %v", def.Name, err)
			failed++
			continue
		}
		names[m] = def.Name
		created = append(created, m)
		logger.Success("✓ %s: priority %d, criteria %s", def.Name, m.Priority(), m.Criteria())
		printBuilders(logger.WithPrefix("    "), m)
	}

	for _, dir := range directions {
		if _, ok := tbl.StartAnchor(dir); !ok {
			continue
		}
		walk, err := tbl.Walk(dir)
		if err != nil {
			logger.Fail("%s chain is broken: %v", dir, err)
			failed++
			continue
		}
		chain := make([]string, 0, len(walk.Matchers)+2)
		chain = append(chain, "start")
		for _, m := range walk.Matchers {
			chain = append(chain, names[m])
		}
		chain = append(chain, fmt.Sprintf("miss 0x%x", walk.MissAddress))
		logger.Log("%s chain: %s", dir, strings.Join(chain, " -> "))
	}
	logger.Log("Hash tables in use: %d, device writes: %d", dmn.Pool().InUse(), sim.PostSendCount())

	if err := teardown(tbl, created); err != nil {
		return err
	}
	if co.printMetrics {
		if err := printSteeringMetrics(out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", errCompiling, failed, len(defs))
	}
	return nil
}

func createMatcher(tbl *steering.Table, def *matcherDefinition) (*steering.Matcher, error) {
	criteria, err := def.criteria()
	if err != nil {
		return nil, err
	}
	p, err := decodeMask(def.Mask)
	if err != nil {
		return nil, err
	}
	return tbl.CreateMatcher(def.Priority, criteria, p.Bytes())
}

func printBuilders(logger Logger, m *steering.Matcher) {
	for _, dir := range directions {
		if _, _, ok := m.Anchors(dir); !ok {
			continue
		}
		for _, outer := range ipVersions {
			for _, inner := range ipVersions {
				builders, err := m.SelectBuilders(dir, outer, inner)
				if err != nil {
					logger.Warning("%s %s/%s: unsupported", dir, outer, inner)
					continue
				}
				kinds := make([]string, len(builders))
				for i := range builders {
					kinds[i] = builders[i].String()
				}
				logger.Log("%s %s/%s: %s", dir, outer, inner, strings.Join(kinds, ", "))
			}
		}
	}
}

// teardown destroys the matchers in reverse creation order, then the table.
func teardown(tbl *steering.Table, matchers []*steering.Matcher) error {
	var errs []error
	for i := len(matchers) - 1; i >= 0; i-- {
		if err := matchers[i].Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		if err := tbl.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		klog.ErrorS(utilerrors.NewAggregate(errs), "Failed to tear down steering objects")
	}
	return utilerrors.NewAggregate(errs)
}

func printSteeringMetrics(out io.Writer) error {
	families, err := legacyregistry.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metrics.Namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
