package blescan

import "github.com/pkg/errors"

// ErrInvalidArgument is returned synchronously, before any radio action, when
// a scan is requested with a nil observer or a malformed service filter.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrorKind is the canonical reason a running scan failed.
type ErrorKind int

// Scan failure kinds.
const (
	Unknown ErrorKind = iota
	AlreadyStarted
	RegistrationFailed
	InternalError
	FeatureUnsupported
	OutOfResources
)

var errorKindNames = map[ErrorKind]string{
	Unknown:            "Unknown error",
	AlreadyStarted:     "Already started",
	RegistrationFailed: "Application registration failed",
	InternalError:      "Internal error",
	FeatureUnsupported: "Feature unsupported",
	OutOfResources:     "Out of hardware resources",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return errorKindNames[Unknown]
}

// ScanFailure is an error carrying the kind of an asynchronous scan failure,
// for hosts that prefer to handle failures as errors.
type ScanFailure struct {
	Kind ErrorKind
}

func (e *ScanFailure) Error() string {
	return "scan failed: " + e.Kind.String()
}

// IsScanFailure reports whether err is (or wraps) a ScanFailure of kind k.
func IsScanFailure(err error, k ErrorKind) bool {
	var sf *ScanFailure
	if !errors.As(err, &sf) {
		return false
	}
	return sf.Kind == k
}
