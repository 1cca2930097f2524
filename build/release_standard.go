//go:build !dev && !testing

package build

// Release identifies which build configuration this binary was compiled
// with. It gates every build.Select call and whether build.Critical and
// build.Severe print to stderr; their panic is gated by DEBUG.
const Release = "standard"

// DEBUG is true for dev and testing builds, false for standard builds.
const DEBUG = false
