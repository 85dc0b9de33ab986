// Package quanta is the Go client for the Quanta runtime service. It
// submits primitive workloads (sampler, estimator) to remote backends and
// tracks them through lightweight job handles.
//
// # Quick Start
//
//	svc, err := quanta.Open(
//	    quanta.WithToken(token),
//	    quanta.WithAccount("prod"),
//	)
//
//	h, err := svc.Run(ctx, quanta.RunRequest{
//	    Kind:    "sampler",
//	    Backend: "aurora_27q",
//	    Payload: circuits,
//	})
//
//	res, err := h.Result(ctx)
//
// # Architecture
//
// The handle machinery lives in the job package: the status lifecycle,
// bounded waits, status callbacks, and the fetch-once result cache. The
// api package carries the REST and WebSocket transport, wrapped by the
// middleware package (logging, panic recovery, deadlines, optional
// OpenTelemetry instrumentation). This root package resolves account
// configuration and hands out handles.
//
// Account configuration resolves with precedence: explicit options, then
// QUANTA_* environment variables, then the account file at
// ~/.quanta/config.json, then built-in defaults.
//
// Service-minted identifiers use TypeID: type-prefixed, K-sortable,
// UUIDv7-based strings such as "job_01h2xcejqtf2nbrexx3vqjhp41".
package quanta
