package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Built-in primitive kinds the service executes.
const (
	KindSampler   = "sampler"
	KindEstimator = "estimator"
)

// DecoderFunc is a type-erased result decoder: it turns a raw result
// payload into the decoded form for one job kind. Typed decoders are
// converted to DecoderFuncs at registration time by closing over JSON
// unmarshal + a shape check.
type DecoderFunc func(raw []byte) (any, error)

// DecoderRegistry maps job kinds to result decoders.
// It is safe for concurrent use.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[string]DecoderFunc
}

// NewDecoderRegistry creates a registry preloaded with the built-in
// primitive decoders (sampler, estimator).
func NewDecoderRegistry() *DecoderRegistry {
	r := &DecoderRegistry{decoders: make(map[string]DecoderFunc)}
	r.Register(KindSampler, decodeSamplerPayload)
	r.Register(KindEstimator, decodeEstimatorPayload)

	return r
}

// Register adds or replaces the decoder for a job kind.
func (r *DecoderRegistry) Register(kind string, fn DecoderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[kind] = fn
}

// Lookup returns the decoder for the given kind.
// Returns false if no decoder is registered.
func (r *DecoderRegistry) Lookup(kind string) (DecoderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.decoders[kind]

	return fn, ok
}

// Kinds returns all registered job kinds.
func (r *DecoderRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.decoders))
	for kind := range r.decoders {
		kinds = append(kinds, kind)
	}

	return kinds
}

// Decode runs the registered decoder for kind over raw. An unregistered
// kind is an *InvalidStateError (the handle cannot interpret this job); a
// decoder failure for a registered kind is a *TransportError (the payload
// violates the API contract).
func (r *DecoderRegistry) Decode(kind string, raw []byte) (any, error) {
	fn, ok := r.Lookup(kind)
	if !ok {
		return nil, &InvalidStateError{
			Op:     "decode result",
			Reason: fmt.Sprintf("no decoder registered for job kind %q", kind),
		}
	}

	payload, err := fn(raw)
	if err != nil {
		return nil, &TransportError{
			Op:  fmt.Sprintf("decode %s result", kind),
			Err: err,
		}
	}

	return payload, nil
}

// RegisterDecoderFor registers a typed decoder for a job kind: the payload
// is JSON-unmarshaled into T and then validated with check (may be nil).
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDecoderFor[T any](r *DecoderRegistry, kind string, check func(*T) error) {
	r.Register(kind, decodeJSON(check))
}

func decodeJSON[T any](check func(*T) error) DecoderFunc {
	return func(raw []byte) (any, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(&v); err != nil {
				return nil, err
			}
		}

		return &v, nil
	}
}

// defaultDecoders is used by handles created without WithDecoders.
var defaultDecoders = NewDecoderRegistry()

// ──────────────────────────────────────────────────
// Built-in primitive payloads
// ──────────────────────────────────────────────────

// SamplerPayload is the decoded result of a "sampler" job: one
// quasi-probability distribution per submitted circuit, keyed by measured
// bitstring.
type SamplerPayload struct {
	Distributions []map[string]float64 `json:"quasi_dists"`
	Shots         int                  `json:"shots"`
	Metadata      map[string]any       `json:"metadata,omitempty"`
}

// EstimatorPayload is the decoded result of an "estimator" job: one
// expectation value and variance per submitted observable.
type EstimatorPayload struct {
	Values    []float64      `json:"values"`
	Variances []float64      `json:"variances,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

var decodeSamplerPayload = decodeJSON(func(p *SamplerPayload) error {
	if p.Distributions == nil {
		return errors.New("sampler payload missing quasi_dists")
	}

	return nil
})

var decodeEstimatorPayload = decodeJSON(func(p *EstimatorPayload) error {
	if p.Values == nil {
		return errors.New("estimator payload missing values")
	}

	return nil
})
