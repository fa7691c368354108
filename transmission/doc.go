// Package transmission provides the connection abstraction shared by every
// go-epcomms transport backend.
//
// # Overview
//
// A backend implements Link, the two raw primitives of a connection:
//
//   - Send writes one transmit packet to the wire.
//   - Receive reads and frames one receive packet from the wire.
//
// Conn wraps a Link and adds the uniform contract used by instrument drivers:
//
//   - Command(ctx, p) sends p.
//   - Read(ctx) receives one packet.
//   - Poll(ctx, p) sends p and receives the response as one atomic exchange.
//   - Close() releases the backend.
//
// Every Command, Read and Poll holds the connection's mutex for its full
// duration, so at most one exchange is in flight per Conn. A Poll's write and the
// read of its response can never be interleaved with another goroutine's
// operation on the same Conn. Backends with a transport-native request/response
// primitive (a VISA query, a CIP generic message, a websocket round trip)
// implement Querier; Conn.Poll then calls Query under the same mutex instead of
// composing Send and Receive.
//
// # Lifecycle
//
// A Conn is Open once its constructor returns; backend constructors open the
// underlying resource eagerly. Close moves it to Closed permanently. Operations on
// a closed Conn fail with ErrConnClosed without reaching the backend. Close
// takes the same mutex before closing the backend; links that can block in
// Receive implement Interrupter so Close can end the in-flight operation first.
//
// # Framing
//
// Framer implements the three framing disciplines used by byte-stream backends:
// terminator-delimited, prefix + fixed length + terminator check, and start
// marker + fixed total length.
//
// # Errors
//
// Backends report failures with errors wrapping ErrTransmission. Construction
// problems wrap ErrConfig. Packet decoding failures (packet.ErrEncoding) are
// passed through unchanged.
package transmission
