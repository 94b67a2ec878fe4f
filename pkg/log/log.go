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

// Package log wires the klog flags into cobra commands and enforces the
// maximum log file size and number limits.
package log

import (
	"flag"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

const logFlushFreqFlag = "log-flush-frequency"

var (
	// klogFlags holds the flags registered by klog. It is built in a variable
	// initializer so that other package-level variables can rely on it.
	klogFlags = newKlogFlagSet()

	logFlushFreq = 5 * time.Second
)

func newKlogFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs
}

// AddFlags adds the klog flags and the log file limit flags to fs.
func AddFlags(fs *pflag.FlagSet) {
	klogFlags.VisitAll(func(f *flag.Flag) {
		fs.AddFlag(pflag.PFlagFromGoFlag(f))
	})
	fs.Uint16Var(&maxNumArg, maxNumFlag, maxNumArg, "Maximum number of log files per severity level to be kept. Value 0 means unlimited.")
	fs.DurationVar(&logFlushFreq, logFlushFreqFlag, logFlushFreq, "Maximum number of seconds between log flushes")
}

// InitLogs starts the klog flush daemon and applies the log file limits. It
// must be called after the flags added by AddFlags are parsed.
func InitLogs(fs *pflag.FlagSet) {
	klog.EnableContextualLogging(false)
	klog.StartFlushDaemon(logFlushFreq)
	InitLogFileLimits(fs)
}

func FlushLogs() {
	klog.Flush()
}
