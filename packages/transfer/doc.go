// Package transfer implements the low-level engine that carries a single
// HTTP exchange.
//
// A Handle represents one configurable network transfer:
//   - Option setters validate values before any I/O happens
//   - Streaming callbacks observe header lines and body chunks as they arrive
//   - The final status code is exposed once the transfer completes
//   - The handle owns a reusable transport so callers can amortize
//     connection setup across sequential requests
package transfer
