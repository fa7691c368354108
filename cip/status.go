package cip

import "fmt"

// General status codes.
const (
	StatusSuccess               byte = 0x00
	StatusConnectionFailure     byte = 0x01
	StatusResourceUnavailable   byte = 0x02
	StatusInvalidParameterValue byte = 0x03
	StatusPathSegmentError      byte = 0x04
	StatusPathDestUnknown       byte = 0x05
	StatusPartialTransfer       byte = 0x06
	StatusServiceNotSupported   byte = 0x08
	StatusInvalidAttribute      byte = 0x09
	StatusObjectStateConflict   byte = 0x0C
	StatusAttributeNotSettable  byte = 0x0E
	StatusPrivilegeViolation    byte = 0x0F
	StatusDeviceStateConflict   byte = 0x10
	StatusReplyTooLarge         byte = 0x11
	StatusNotEnoughData         byte = 0x13
	StatusAttributeNotSupported byte = 0x14
	StatusTooMuchData           byte = 0x15
	StatusObjectDoesNotExist    byte = 0x16
	StatusEmbeddedServiceError  byte = 0x1E
	StatusInvalidParameter      byte = 0x20
	StatusInvalidPathSize       byte = 0x26
)

var statusText = map[byte]string{
	StatusSuccess:               "success",
	StatusConnectionFailure:     "connection failure",
	StatusResourceUnavailable:   "resource unavailable",
	StatusInvalidParameterValue: "invalid parameter value",
	StatusPathSegmentError:      "path segment error",
	StatusPathDestUnknown:       "path destination unknown",
	StatusPartialTransfer:       "partial transfer",
	StatusServiceNotSupported:   "service not supported",
	StatusInvalidAttribute:      "invalid attribute value",
	StatusObjectStateConflict:   "object state conflict",
	StatusAttributeNotSettable:  "attribute not settable",
	StatusPrivilegeViolation:    "privilege violation",
	StatusDeviceStateConflict:   "device state conflict",
	StatusReplyTooLarge:         "reply data too large",
	StatusNotEnoughData:         "not enough data",
	StatusAttributeNotSupported: "attribute not supported",
	StatusTooMuchData:           "too much data",
	StatusObjectDoesNotExist:    "object does not exist",
	StatusEmbeddedServiceError:  "embedded service error",
	StatusInvalidParameter:      "invalid parameter",
	StatusInvalidPathSize:       "invalid path size",
}

// StatusText returns a description of a general status code.
func StatusText(code byte) string {
	if s, ok := statusText[code]; ok {
		return s
	}

	return fmt.Sprintf("unknown status 0x%02X", code)
}
