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

	"github.com/fatih/color"
)

type Logger struct {
	out    io.Writer
	prefix string
}

func NewLogger(out io.Writer, prefix string) Logger {
	return Logger{
		out:    out,
		prefix: prefix,
	}
}

type stringFormatterFunc func(format string, a ...interface{}) string

func noopStringFormatter(format string, a ...interface{}) string {
	return fmt.Sprintf(format, a...)
}

func (l Logger) log(stringFormatter stringFormatterFunc, format string, a ...interface{}) {
	fmt.Fprint(l.out, l.prefix)
	fmt.Fprintln(l.out, stringFormatter(format, a...))
}

// WithPrefix returns a Logger writing to the same output with prefix added
// to its own.
func (l Logger) WithPrefix(prefix string) Logger {
	return Logger{out: l.out, prefix: l.prefix + prefix}
}

func (l Logger) Log(format string, a ...interface{}) {
	l.log(noopStringFormatter, format, a...)
}

func (l Logger) Success(format string, a ...interface{}) {
	l.log(color.GreenString, format, a...)
}

func (l Logger) Fail(format string, a ...interface{}) {
	l.log(color.RedString, format, a...)
}

func (l Logger) Warning(format string, a ...interface{}) {
	l.log(color.YellowString, format, a...)
}
