// Package geometry maps absolute track numbers on an ECKD disk to cylinder and
// head (track-within-cylinder) addresses and back.
//
// All ECKD devices handled here have 15 tracks per cylinder. The number of
// cylinders varies by model; see [GetDeviceModel].
package geometry

// TracksPerCylinder is the number of tracks (heads) in every cylinder.
const TracksPerCylinder = 15

// MaxCylinders is the largest disk that can be addressed, since track and
// record headers store the cylinder number in 16 bits.
const MaxCylinders = 1 << 16

// TrackNumber is the absolute, zero-based index of a track on the disk.
type TrackNumber uint

// CylinderOf returns the cylinder containing the given absolute track.
func CylinderOf(track TrackNumber) uint {
	return uint(track) / TracksPerCylinder
}

// TrackInCylinderOf returns the head number of the given absolute track within
// its cylinder.
func TrackInCylinderOf(track TrackNumber) uint {
	return uint(track) % TracksPerCylinder
}

// TotalTracks gives the number of tracks on a disk with `cylinders` cylinders.
func TotalTracks(cylinders uint) TrackNumber {
	return TrackNumber(cylinders * TracksPerCylinder)
}

// AbsoluteTrack is the inverse of [CylinderOf] and [TrackInCylinderOf].
func AbsoluteTrack(cylinder, head uint) TrackNumber {
	return TrackNumber(cylinder*TracksPerCylinder + head)
}
