// Package cue provides the embedded CUE policy modules.
package cue

import "embed"

// PolicyFS contains the embedded policy CUE files.
//
//go:embed policy/*.cue
var PolicyFS embed.FS

// PolicyDir is the root directory within the embedded filesystem.
const PolicyDir = "policy"
