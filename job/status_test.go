package job_test

import (
	"errors"
	"testing"
	"time"

	"github.com/quantacore/quanta/job"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want job.Status
	}{
		{"initializing", "initializing", job.StatusInitializing},
		{"queued", "queued", job.StatusQueued},
		{"pending alias", "pending", job.StatusQueued},
		{"running", "running", job.StatusRunning},
		{"completed", "completed", job.StatusCompleted},
		{"done alias", "done", job.StatusCompleted},
		{"failed", "failed", job.StatusFailed},
		{"error alias", "error", job.StatusFailed},
		{"cancelled", "cancelled", job.StatusCancelled},
		{"single l alias", "canceled", job.StatusCancelled},
		{"uppercase", "RUNNING", job.StatusRunning},
		{"surrounding space", "  queued  ", job.StatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := job.ParseStatus(tt.raw)
			if err != nil {
				t.Fatalf("ParseStatus(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := job.ParseStatus("exploded")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}

	var terr *job.TransportError
	if !errors.As(err, &terr) {
		t.Errorf("error type = %T, want *TransportError", err)
	}
}

func TestStatus_IsFinal(t *testing.T) {
	tests := []struct {
		status job.Status
		want   bool
	}{
		{job.StatusInitializing, false},
		{job.StatusQueued, false},
		{job.StatusRunning, false},
		{job.StatusCompleted, true},
		{job.StatusFailed, true},
		{job.StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsFinal(); got != tt.want {
				t.Errorf("IsFinal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFinalStatuses(t *testing.T) {
	finals := job.FinalStatuses()
	if len(finals) != 3 {
		t.Fatalf("len(FinalStatuses()) = %d, want 3", len(finals))
	}
	for _, s := range finals {
		if !s.IsFinal() {
			t.Errorf("FinalStatuses() contains non-final %v", s)
		}
	}
}

func TestSnapshot_Equal(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	later := start.Add(time.Hour)

	tests := []struct {
		name string
		a, b job.Snapshot
		want bool
	}{
		{
			name: "same status no queue",
			a:    job.Snapshot{Status: job.StatusRunning},
			b:    job.Snapshot{Status: job.StatusRunning},
			want: true,
		},
		{
			name: "different status",
			a:    job.Snapshot{Status: job.StatusRunning},
			b:    job.Snapshot{Status: job.StatusQueued},
			want: false,
		},
		{
			name: "same queue position",
			a:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}},
			b:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}},
			want: true,
		},
		{
			name: "different queue position",
			a:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}},
			b:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 2}},
			want: false,
		},
		{
			name: "queue present vs absent",
			a:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}},
			b:    job.Snapshot{Status: job.StatusQueued},
			want: false,
		},
		{
			name: "same estimates",
			a:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 1, EstimatedStart: &start}},
			b:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 1, EstimatedStart: &start}},
			want: true,
		},
		{
			name: "different estimates",
			a:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 1, EstimatedStart: &start}},
			b:    job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 1, EstimatedStart: &later}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}
