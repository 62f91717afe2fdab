package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"DBQueryTotal", DBQueryTotal},
		{"DBTransactionDuration", DBTransactionDuration},
		{"RunsTotal", RunsTotal},
		{"RunFilesTotal", RunFilesTotal},
		{"FilesInFlight", FilesInFlight},
		{"HashComputationsTotal", HashComputationsTotal},
		{"HashDuration", HashDuration},
		{"ClassificationsTotal", ClassificationsTotal},
		{"BufferCapacity", BufferCapacity},
		{"BufferFlushDuration", BufferFlushDuration},
		{"FilesystemRetryAttempts", FilesystemRetryAttempts},
		{"MemoryUsageRatio", MemoryUsageRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()

	InitializeMetrics([]string{"md5", "dhash"})
	// Second call must be harmless.
	InitializeMetrics(nil)
}

func TestWriteTextfile(t *testing.T) {
	HashComputationsTotal.WithLabelValues("sha256", "success").Inc()
	BufferCapacity.Set(10)

	path := filepath.Join(t.TempDir(), "fingerprinter.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		`fingerprinter_hash_computations_total{algorithm="sha256",status="success"}`,
		"fingerprinter_buffer_capacity 10",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestWriteTextfileBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.prom")
	if err := writeTextfile(path, prometheus.NewRegistry()); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("observer panicked: %v", r)
		}
	}()

	obs.ObserveOperation("source", "stat", 0.001, nil)
	obs.ObserveOperation("source", "read", 0.002, os.ErrPermission)
	obs.ObserveRetryAttempt("stat", "source")
	obs.ObserveRetrySuccess("stat", "source")
	obs.ObserveRetryFailure("open", "source")
	obs.ObserveRetryDuration("open", "source", 0.2)
	obs.ObserveStaleError("readdir", "database")
}

func TestSetAppInfo(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("SetAppInfo panicked: %v", r)
		}
	}()

	SetAppInfo("1.0.0", "abc123", "go1.25")
}

func BenchmarkHashMetricsIncrement(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HashComputationsTotal.WithLabelValues("md5", "success").Inc()
		HashDuration.WithLabelValues("binary").Observe(0.001)
	}
}
