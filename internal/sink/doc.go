// Package sink drives whole-message delivery over a non-blocking byte
// stream.
//
// Ownership boundary:
// - outbound framing and flushing
// - inbound accumulation, size limit and frame decoding
// - the Open/Closing/Closed lifecycle and its close handshake
//
// A Sink is polled by one caller at a time. Poll never blocks: it returns a
// message, a terminal fault, or task.ErrPending after registering the waker
// with both the stream and the outbound buffer. Next and Shared adapt this
// contract to goroutine code.
package sink
