package api_test

import (
	"testing"
	"time"

	"github.com/quantacore/quanta/api"
)

func TestGetCodec(t *testing.T) {
	c, err := api.GetCodec(api.FormatJSON)
	if err != nil {
		t.Fatalf("GetCodec(json): %v", err)
	}
	if c.Name() != api.FormatJSON || c.Binary() {
		t.Errorf("json codec = %s binary=%v", c.Name(), c.Binary())
	}

	c, err = api.GetCodec(api.FormatMsgpack)
	if err != nil {
		t.Fatalf("GetCodec(msgpack): %v", err)
	}
	if c.Name() != api.FormatMsgpack || !c.Binary() {
		t.Errorf("msgpack codec = %s binary=%v", c.Name(), c.Binary())
	}

	// Empty means the default.
	c, err = api.GetCodec("")
	if err != nil {
		t.Fatalf("GetCodec(\"\"): %v", err)
	}
	if c.Name() != api.FormatJSON {
		t.Errorf("default codec = %s, want json", c.Name())
	}

	if _, err := api.GetCodec("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	in := &api.Frame{
		Type:      api.FrameStatus,
		SessionID: "ses_01h2x",
		Status:    "queued",
		Queue:     &api.QueuePlacement{Position: 7, EstimatedStart: &start},
		Error:     &api.ErrorDetail{Message: "m", Code: "QRT-1"},
	}

	for _, name := range []string{api.FormatJSON, api.FormatMsgpack} {
		codec, err := api.GetCodec(name)
		if err != nil {
			t.Fatalf("GetCodec(%s): %v", name, err)
		}

		data, err := codec.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		out, err := codec.Decode(data)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}

		if out.Type != in.Type || out.SessionID != in.SessionID || out.Status != in.Status {
			t.Errorf("%s: frame = %+v, want %+v", name, out, in)
		}
		if out.Queue == nil || out.Queue.Position != 7 {
			t.Errorf("%s: queue = %+v, want position 7", name, out.Queue)
		}
		if out.Queue.EstimatedStart == nil || !out.Queue.EstimatedStart.Equal(start) {
			t.Errorf("%s: estimated start = %v, want %v", name, out.Queue.EstimatedStart, start)
		}
		if out.Error == nil || out.Error.Code != "QRT-1" {
			t.Errorf("%s: error = %+v", name, out.Error)
		}
	}
}
