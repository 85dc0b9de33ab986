// Package api implements the HTTP and WebSocket transport for the Quanta
// service. Client is the concrete job.Transport behind every handle, and
// also carries the account-level operations the quanta root package
// builds on: submitting workloads, listing jobs, and inspecting backends.
//
// Every unary call runs through a middleware chain (structured logging,
// panic recovery, optional per-call deadlines, tracing, metrics) and a
// client-side rate limiter. Transient failures are retried with
// exponential backoff inside the retry budget; submissions carry
// idempotency keys so a retried POST never double-submits.
//
// Status watches prefer the live WebSocket stream and degrade to plain
// HTTP polling when the stream cannot be established.
package api
