// Package cip provides the Common Industrial Protocol pieces used for explicit
// messaging: elementary data type codecs, logical request paths, message
// router requests and responses, and the Request/Response packets exchanged by
// the ethernetip transmission.
//
// A Request addresses one attribute of an object:
//
//	req, err := cip.NewValueRequest(0x04, 100, 3, 12.5, cip.Real)
//
// Its wire form, GenericMessage, is completed with a service code by the
// transmission and sent by an EtherNet/IP driver. The driver's reply is a Tag,
// which the transmission wraps in a Response.
package cip
