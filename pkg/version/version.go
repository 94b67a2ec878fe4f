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

// Package version reports the build information of steerctl.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/blang/semver"
)

// Set at build time with -ldflags "-X antrea.io/steering/pkg/version.Version=...".
var (
	// Semantic version, with an optional "v" prefix.
	Version = ""
	// Empty if git is not available.
	GitSHA = ""
	// "dirty", "clean" or empty.
	GitTreeState = ""
	// "released" or "unreleased". Unreleased builds carry the git SHA.
	ReleaseStatus = "unreleased"
)

const unknownVersion = "UNKNOWN"

// Info is the build information of the running binary.
type Info struct {
	// Parsed release version. Zero when Version is unset or invalid.
	Release  semver.Version
	GitSHA   string
	Dirty    bool
	Released bool
	Platform string

	raw string
}

// Get collects the build information set at link time.
func Get() Info {
	info := Info{
		GitSHA:   GitSHA,
		Dirty:    GitTreeState == "dirty",
		Released: ReleaseStatus == "released",
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		raw:      Version,
	}
	if v, err := semver.Parse(strings.TrimPrefix(Version, "v")); err == nil {
		info.Release = v
	}
	return info
}

// Short returns "v<major>.<minor>.<patch>" or UNKNOWN when no valid version
// was set.
func (i Info) Short() string {
	if i.Release.Equals(semver.Version{}) {
		return unknownVersion
	}
	return "v" + i.Release.String()
}

// Full returns the release string for released builds, and appends the git
// SHA and tree state to it otherwise.
func (i Info) Full() string {
	if i.raw == "" {
		return unknownVersion
	}
	switch {
	case i.Released:
		return i.raw
	case i.GitSHA == "":
		return i.raw + "-unknown"
	case i.Dirty:
		return fmt.Sprintf("%s-%s.dirty", i.raw, i.GitSHA)
	default:
		return fmt.Sprintf("%s-%s", i.raw, i.GitSHA)
	}
}

func (i Info) String() string {
	return i.Full() + " " + i.Platform
}
