// Package embedded holds the compiled tardis-loader image, embedded at
// build time so the packer never needs a loader binary on disk at
// runtime. The Makefile builds cmd/tardis-loader first and copies its
// output to loader.bin before this package is compiled, so the two
// stages must run in that order.
package embedded

import _ "embed"

//go:embed loader.bin
var Loader []byte
