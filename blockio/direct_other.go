//go:build !linux

package blockio

// Only Linux exposes O_DIRECT through open(2). Elsewhere devices are opened
// normally and the page cache is used.
const directIOFlag = 0
