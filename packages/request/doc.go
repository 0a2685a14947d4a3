// Package request builds and submits HTTP request descriptors.
//
// A Request accumulates configuration through fluent setters with no
// network or OS interaction, then is consumed by Send, which configures a
// transfer handle, wires up the streaming capture callbacks, and submits
// the handle to a session. Send returns a Future resolving to an
// assembled response once the transfer completes.
package request
