// Package job implements the client-side handle for one remote Quanta job.
//
// # Lifecycle
//
// A [Handle] tracks a submitted job through the service's status machine:
//
//	initializing → queued ⇄ running → completed
//	initializing → queued ⇄ running → failed
//	initializing → queued ⇄ running → cancelled
//
// (queued ⇄ running covers requeueing after backend preemption; the three
// right-hand statuses are final and never transition again). Raw server
// status strings map onto this closed set through [ParseStatus]; anything
// unrecognized is a hard error, never a guess.
//
// The handle serves a final status from its own cache with zero network
// traffic, and the observation that first moves a job into a final status
// triggers a single full attribute refresh, so one poll pays the download
// price exactly once.
//
// # Waiting
//
// [Handle.WaitForCompletion] blocks until the job is final, delegating the
// actual long-poll to the [Transport]. [Handle.WaitForFinalState] adds an
// optional status callback fed through a single-slot [Exchange]: progress
// is coalesced (latest-wins, never reordered), deduped or delivered on a
// heartbeat cadence, and the callback never sees the final snapshot; the
// terminal outcome is the blocking call's return value.
//
// # Results
//
// [Handle.Result] waits for completion and downloads the payload at most
// once. Payloads decode through a [DecoderRegistry] keyed by job kind,
// preloaded for the built-in primitives:
//
//	res, err := h.Result(ctx)
//	if err != nil { ... }
//	dist := res.Payload.(*job.SamplerPayload).Distributions[0]
//
// A failed job's partial output can be salvaged with [WithPartial]; a
// cancelled job never attempts a download.
package job
