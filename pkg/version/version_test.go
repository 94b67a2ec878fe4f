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

package version

import (
	"runtime"
	"testing"

	"github.com/blang/semver"
	"github.com/stretchr/testify/assert"
)

func setVersion(t *testing.T, version, sha, treeState, status string) {
	oldVersion, oldSHA, oldTreeState, oldStatus := Version, GitSHA, GitTreeState, ReleaseStatus
	t.Cleanup(func() {
		Version, GitSHA, GitTreeState, ReleaseStatus = oldVersion, oldSHA, oldTreeState, oldStatus
	})
	Version, GitSHA, GitTreeState, ReleaseStatus = version, sha, treeState, status
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		sha       string
		treeState string
		status    string
		full      string
		short     string
	}{
		{name: "unset", full: "UNKNOWN", short: "UNKNOWN"},
		{name: "released", version: "v0.3.0", sha: "abcdef0", treeState: "dirty", status: "released", full: "v0.3.0", short: "v0.3.0"},
		{name: "no git", version: "v0.3.0", status: "unreleased", full: "v0.3.0-unknown", short: "v0.3.0"},
		{name: "clean", version: "0.3.0", sha: "abcdef0", treeState: "clean", status: "unreleased", full: "0.3.0-abcdef0", short: "v0.3.0"},
		{name: "dirty", version: "v0.3.0", sha: "abcdef0", treeState: "dirty", status: "unreleased", full: "v0.3.0-abcdef0.dirty", short: "v0.3.0"},
		{name: "invalid", version: "main", status: "released", full: "main", short: "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setVersion(t, tt.version, tt.sha, tt.treeState, tt.status)
			info := Get()
			assert.Equal(t, tt.full, info.Full())
			assert.Equal(t, tt.short, info.Short())
			assert.Equal(t, tt.full+" "+runtime.GOOS+"/"+runtime.GOARCH, info.String())
		})
	}
}

func TestGetRelease(t *testing.T) {
	setVersion(t, "v1.2.3", "", "", "released")
	assert.Equal(t, semver.MustParse("1.2.3"), Get().Release)
	setVersion(t, "", "", "", "released")
	assert.Equal(t, semver.Version{}, Get().Release)
}
