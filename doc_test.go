// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	for _, tc := range []struct {
		name    string
		info    *debug.BuildInfo
		version string
		sum     string
	}{
		{
			name: "nil-info",
		},
		{
			name: "no-deps",
			info: &debug.BuildInfo{},
		},
		{
			name: "regular",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: "github.com/rtic-scope/itm", Version: "v0.1.0", Sum: "h1:deadbeef"},
				},
			},
			version: "v0.1.0",
			sum:     "h1:deadbeef",
		},
		{
			name: "replaced",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path:    "github.com/rtic-scope/itm",
						Version: "v0.1.0",
						Replace: &debug.Module{Path: "example.com/itm", Version: "v0.2.0", Sum: "h1:cafe"},
					},
				},
			},
			version: "example.com/itm v0.2.0",
			sum:     "h1:cafe",
		},
		{
			name: "replaced-no-path",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path:    "github.com/rtic-scope/itm",
						Version: "v0.1.0",
						Replace: &debug.Module{Version: "v0.2.0", Sum: "h1:cafe"},
					},
				},
			},
			version: "v0.2.0",
			sum:     "h1:cafe",
		},
		{
			name: "replaced-local",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path:    "github.com/rtic-scope/itm",
						Version: "v0.1.0",
						Replace: &debug.Module{},
					},
				},
			},
			version: "v0.1.0*",
		},
		{
			name: "other-module",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{
					{Path: "example.com/other", Version: "v1.0.0"},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			version, sum := versionOf(tc.info)
			if version != tc.version || sum != tc.sum {
				t.Fatalf("invalid version: got=(%q, %q), want=(%q, %q)",
					version, sum, tc.version, tc.sum,
				)
			}
		})
	}
}
