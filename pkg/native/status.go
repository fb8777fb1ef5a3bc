package native

import "fmt"

// Status is a raw result code from the native device-management library.
// The vocabulary mirrors the AMD SMI status enumeration; backends for other
// vendors translate their own codes into this set before returning.
type Status int32

const (
	StatusSuccess           Status = 0
	StatusInvalidArgs       Status = 1
	StatusNotSupported      Status = 2
	StatusNotYetImplemented Status = 3
	StatusFailLoadModule    Status = 4
	StatusFailLoadSymbol    Status = 5
	StatusDRMError          Status = 6
	StatusAPIFailed         Status = 7
	StatusTimeout           Status = 8
	StatusRetry             Status = 9
	StatusNoPermission      Status = 10
	StatusInterrupt         Status = 11
	StatusIOError           Status = 12
	StatusAddressFault      Status = 13
	StatusFileError         Status = 14
	StatusOutOfResources    Status = 15
	StatusInternalException Status = 16
	StatusInputOutOfBounds  Status = 17
	StatusInitError         Status = 18
	StatusRefcountOverflow  Status = 19
	StatusBusy              Status = 30
	StatusNotFound          Status = 31
	StatusNotInit           Status = 32
	StatusNoSlot            Status = 33
	StatusDriverNotLoaded   Status = 34
	StatusMoreData          Status = 39
	StatusNoData            Status = 40
	StatusInsufficientSize  Status = 41
	StatusUnexpectedSize    Status = 42
	StatusUnknownError      Status = -1
)

var statusText = map[Status]string{
	StatusSuccess:           "operation was successful",
	StatusInvalidArgs:       "invalid parameters",
	StatusNotSupported:      "command not supported",
	StatusNotYetImplemented: "not implemented yet",
	StatusFailLoadModule:    "failed to load library module",
	StatusFailLoadSymbol:    "failed to load symbol",
	StatusDRMError:          "error when calling libdrm",
	StatusAPIFailed:         "API call failed",
	StatusTimeout:           "timeout in API call",
	StatusRetry:             "retry operation",
	StatusNoPermission:      "permission denied",
	StatusInterrupt:         "interrupt occurred during execution",
	StatusIOError:           "I/O error",
	StatusAddressFault:      "bad address",
	StatusFileError:         "problem accessing a file",
	StatusOutOfResources:    "not enough memory",
	StatusInternalException: "internal exception was caught",
	StatusInputOutOfBounds:  "input is out of allowable or safe range",
	StatusInitError:         "error occurred during initialization",
	StatusRefcountOverflow:  "internal reference counter overflow",
	StatusBusy:              "processor busy",
	StatusNotFound:          "processor not found",
	StatusNotInit:           "processor not initialized",
	StatusNoSlot:            "no more free slot",
	StatusDriverNotLoaded:   "processor driver not loaded",
	StatusMoreData:          "more data than buffer size",
	StatusNoData:            "no data found for input",
	StatusInsufficientSize:  "insufficient resources available",
	StatusUnexpectedSize:    "unexpected amount of data read",
	StatusUnknownError:      "unknown error",
}

// String returns the human-readable description of the status code.
func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return fmt.Sprintf("unrecognized status code %d", int32(s))
}

// OK reports whether the status indicates success.
func (s Status) OK() bool { return s == StatusSuccess }
