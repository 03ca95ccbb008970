// Package runlength compresses sequences of small integers, such as the key and
// data lengths of the records in a track, into (count, value) pairs.
//
// ECKD tracks are usually formatted with every record the same size. A 3390
// track formatted with twelve 4 KiB records has twelve identical key lengths
// (0) and twelve identical data lengths (4096), which collapse to a single run
// each.
//
// The count of a run is stored in a single byte on the wire, so no run is ever
// longer than [MaxRunLength]. Longer stretches of identical values are split
// into several consecutive runs with the same value, e.g. 300 zeroes encode as
// (255, 0) (45, 0).

package runlength
