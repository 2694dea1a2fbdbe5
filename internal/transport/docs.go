// package transport contains implementations to requirements on *message syntaxes*
// defined by http related RFCs.
//
// as of 2022.06, RFCs that were to define HTTP/1.1 (RFC753x) are obsoleted by:
//
//  HTTP Semantics (RFC9110)
//  HTTP Caching (RFC9111) and
//  HTTP/1.1 (RFC9112)
//
// only the HTTP/1.x message syntax is implemented here. messages are kept
// close to their raw form so callers can record exactly what went over the
// wire; header semantics live in package header.

package transport
