package gst

import "fmt"

// Version of the engine.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionMicro = 0
	// VersionNano is 0 for releases.
	VersionNano = 0
)

// Version returns major, minor, micro and nano version numbers.
func Version() (major, minor, micro, nano int) {
	return VersionMajor, VersionMinor, VersionMicro, VersionNano
}

// VersionString returns human-readable version like "gst 1.0.0".
func VersionString() string {
	s := fmt.Sprintf("gst %d.%d.%d", VersionMajor, VersionMinor, VersionMicro)
	if VersionNano > 0 {
		s += fmt.Sprintf(".%d", VersionNano)
	}
	return s
}
