package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantacore/quanta/job"
)

func TestHandle_Result_DecodesSamplerPayload(t *testing.T) {
	ft := &fakeTransport{}
	h := newTestHandle(ft)

	res, err := h.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}

	if res.Kind != job.KindSampler {
		t.Errorf("Kind = %q, want %q", res.Kind, job.KindSampler)
	}
	if !res.Success {
		t.Error("Success = false for a completed job")
	}
	payload, ok := res.Payload.(*job.SamplerPayload)
	if !ok {
		t.Fatalf("Payload type = %T, want *SamplerPayload", res.Payload)
	}
	if len(payload.Distributions) != 1 || payload.Distributions[0]["00"] != 1.0 {
		t.Errorf("Distributions = %v", payload.Distributions)
	}
	if payload.Shots != 1024 {
		t.Errorf("Shots = %d, want 1024", payload.Shots)
	}
	if len(res.Raw) == 0 {
		t.Error("Raw payload not retained")
	}
}

func TestHandle_Result_DownloadedOnceThenCached(t *testing.T) {
	var downloads int
	ft := &fakeTransport{}
	ft.resultFn = func(context.Context) ([]byte, error) {
		downloads++
		if downloads > 1 {
			return nil, errors.New("payload already consumed")
		}

		return []byte(`{"quasi_dists":[{"11":1.0}]}`), nil
	}
	h := newTestHandle(ft)

	first, err := h.Result(context.Background())
	if err != nil {
		t.Fatalf("first Result() error: %v", err)
	}

	// The second download would fail; the cache makes it never happen.
	second, err := h.Result(context.Background())
	if err != nil {
		t.Fatalf("second Result() error: %v", err)
	}
	if second != first {
		t.Error("second Result() returned a different value than the cached one")
	}
	if downloads != 1 {
		t.Errorf("downloads = %d, want 1", downloads)
	}

	// An explicit refresh does hit the service again, and its failure
	// leaves the cache intact.
	if _, err := h.Result(context.Background(), job.WithRefresh()); err == nil {
		t.Error("Result(WithRefresh) succeeded against a consumed payload")
	}
	third, err := h.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() after failed refresh error: %v", err)
	}
	if third != first {
		t.Error("failed refresh corrupted the cached result")
	}
}

func TestHandle_Result_CancelledNeverDownloads(t *testing.T) {
	ft := &fakeTransport{
		pollFn: func(context.Context, *job.Exchange) (job.StatusUpdate, error) {
			return job.StatusUpdate{Status: "cancelled"}, nil
		},
		attrsFn: func(context.Context) (job.Attributes, error) {
			return finalAttrs("cancelled"), nil
		},
	}
	h := newTestHandle(ft)

	_, err := h.Result(context.Background())

	var serr *job.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v (%T), want *InvalidStateError", err, err)
	}
	if serr.Status != job.StatusCancelled {
		t.Errorf("InvalidStateError.Status = %v, want %v", serr.Status, job.StatusCancelled)
	}

	_, _, _, result := ft.counts()
	if result != 0 {
		t.Errorf("result downloads = %d, want 0 for a cancelled job", result)
	}
}

func failedTransport(rec *job.ErrorRecord, payload []byte) *fakeTransport {
	return &fakeTransport{
		pollFn: func(context.Context, *job.Exchange) (job.StatusUpdate, error) {
			return job.StatusUpdate{Status: "failed"}, nil
		},
		attrsFn: func(context.Context) (job.Attributes, error) {
			attrs := finalAttrs("failed")
			attrs.Error = rec

			return attrs, nil
		},
		resultFn: func(context.Context) ([]byte, error) {
			if payload == nil {
				return nil, errors.New("no result stored")
			}

			return payload, nil
		},
	}
}

func TestHandle_Result_FailedSurfacesRemoteError(t *testing.T) {
	rec := &job.ErrorRecord{Message: "qubit decohered mid-circuit", Code: "QRT-2041"}
	h := newTestHandle(failedTransport(rec, nil))

	_, err := h.Result(context.Background())

	var ferr *job.FailureError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v (%T), want *FailureError", err, err)
	}
	want := "qubit decohered mid-circuit. Error code: QRT-2041."
	if got := ferr.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHandle_Result_FailedWithoutRecord(t *testing.T) {
	h := newTestHandle(failedTransport(nil, nil))

	_, err := h.Result(context.Background())

	var ferr *job.FailureError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v (%T), want *FailureError", err, err)
	}
	if ferr.Message == "" {
		t.Error("FailureError.Message empty; a recordless failure still needs a message")
	}
}

func TestHandle_Result_PartialSalvagesFailedJob(t *testing.T) {
	rec := &job.ErrorRecord{Message: "shot budget exhausted", Code: "QRT-1204"}
	payload := []byte(`{"quasi_dists":[{"01":0.5,"10":0.5}]}`)
	ft := failedTransport(rec, payload)
	h := newTestHandle(ft)

	res, err := h.Result(context.Background(), job.WithPartial())
	if err != nil {
		t.Fatalf("Result(WithPartial) error: %v", err)
	}
	if res.Success {
		t.Error("Success = true for a payload salvaged from a failed job")
	}
	if _, ok := res.Payload.(*job.SamplerPayload); !ok {
		t.Errorf("Payload type = %T, want *SamplerPayload", res.Payload)
	}

	// The salvaged payload is cached like any other.
	again, err := h.Result(context.Background(), job.WithPartial())
	if err != nil {
		t.Fatalf("second Result(WithPartial) error: %v", err)
	}
	if again != res {
		t.Error("salvaged result not served from cache")
	}
	_, _, _, result := ft.counts()
	if result != 1 {
		t.Errorf("result downloads = %d, want 1", result)
	}

	// Without WithPartial the failure still wins.
	var ferr *job.FailureError
	if _, err := h.Result(context.Background()); !errors.As(err, &ferr) {
		t.Errorf("strict Result() error = %v (%T), want *FailureError", err, err)
	}
}

func TestHandle_Result_PartialUnavailableFallsBackToFailure(t *testing.T) {
	rec := &job.ErrorRecord{Message: "backend rebooted", Code: "QRT-9901"}
	h := newTestHandle(failedTransport(rec, nil))

	_, err := h.Result(context.Background(), job.WithPartial())

	var ferr *job.FailureError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v (%T), want *FailureError", err, err)
	}
	if ferr.Code != "QRT-9901" {
		t.Errorf("Code = %q, want %q", ferr.Code, "QRT-9901")
	}
}

func TestHandle_Result_UnknownKind(t *testing.T) {
	ft := &fakeTransport{
		attrsFn: func(context.Context) (job.Attributes, error) {
			return job.Attributes{Kind: "teleport", Status: "completed"}, nil
		},
	}
	h := newTestHandle(ft)

	_, err := h.Result(context.Background())

	var serr *job.InvalidStateError
	if !errors.As(err, &serr) {
		t.Errorf("error = %v (%T), want *InvalidStateError", err, err)
	}
}

func TestHandle_Result_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `quasi_dists: nope`},
		{"missing required field", `{"shots": 512}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{
				resultFn: func(context.Context) ([]byte, error) {
					return []byte(tt.payload), nil
				},
			}
			h := newTestHandle(ft)

			_, err := h.Result(context.Background())

			var terr *job.TransportError
			if !errors.As(err, &terr) {
				t.Errorf("error = %v (%T), want *TransportError", err, err)
			}
		})
	}
}

func TestHandle_Result_WaitTimeout(t *testing.T) {
	ft := &fakeTransport{
		pollFn: func(ctx context.Context, _ *job.Exchange) (job.StatusUpdate, error) {
			<-ctx.Done()

			return job.StatusUpdate{}, ctx.Err()
		},
	}
	h := newTestHandle(ft)

	_, err := h.Result(context.Background(), job.WithResultTimeout(30*time.Millisecond))

	var terr *job.TimeoutError
	if !errors.As(err, &terr) {
		t.Errorf("error = %v (%T), want *TimeoutError", err, err)
	}
}

func TestHandle_Result_CustomDecoder(t *testing.T) {
	type teleportPayload struct {
		Fidelity float64 `json:"fidelity"`
	}

	registry := job.NewDecoderRegistry()
	job.RegisterDecoderFor(registry, "teleport", func(p *teleportPayload) error {
		if p.Fidelity <= 0 {
			return errors.New("teleport payload missing fidelity")
		}

		return nil
	})

	ft := &fakeTransport{
		attrsFn: func(context.Context) (job.Attributes, error) {
			return job.Attributes{Kind: "teleport", Status: "completed"}, nil
		},
		resultFn: func(context.Context) ([]byte, error) {
			return []byte(`{"fidelity": 0.993}`), nil
		},
	}
	h := newTestHandle(ft, job.WithDecoders(registry))

	res, err := h.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	payload, ok := res.Payload.(*teleportPayload)
	if !ok {
		t.Fatalf("Payload type = %T, want *teleportPayload", res.Payload)
	}
	if payload.Fidelity != 0.993 {
		t.Errorf("Fidelity = %v, want 0.993", payload.Fidelity)
	}
}
