package radio

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rigado/blescan"
)

// Scan failure codes, as the platform scanner reports them.
const (
	ScanFailedAlreadyStarted                = 1
	ScanFailedApplicationRegistrationFailed = 2
	ScanFailedInternalError                 = 3
	ScanFailedFeatureUnsupported            = 4
	ScanFailedOutOfHardwareResources        = 5
)

// Kind maps a platform failure code to its canonical kind. Unrecognized codes
// map to blescan.Unknown.
func Kind(code int) blescan.ErrorKind {
	switch code {
	case ScanFailedAlreadyStarted:
		return blescan.AlreadyStarted
	case ScanFailedApplicationRegistrationFailed:
		return blescan.RegistrationFailed
	case ScanFailedInternalError:
		return blescan.InternalError
	case ScanFailedFeatureUnsupported:
		return blescan.FeatureUnsupported
	case ScanFailedOutOfHardwareResources:
		return blescan.OutOfResources
	}
	return blescan.Unknown
}

// ScanError carries a platform failure code through Go errors.
type ScanError struct {
	Code int
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scan error %d (%s)", e.Code, Kind(e.Code))
	}
	return fmt.Sprintf("scan error %d (%s): %v", e.Code, Kind(e.Code), e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Errorf returns a ScanError with code and a formatted cause.
func Errorf(code int, format string, args ...interface{}) error {
	return &ScanError{Code: code, Err: errors.Errorf(format, args...)}
}

// CodeOf extracts the failure code from err. Errors that carry no code are
// internal errors; a nil error has code 0.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	var se *ScanError
	if errors.As(err, &se) {
		return se.Code
	}
	return ScanFailedInternalError
}
