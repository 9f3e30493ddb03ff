package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"aircheck/internal/services"
)

func stubCommand(t *testing.T, script string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/bin/sh", "-c", script)
	}
	t.Cleanup(func() { commandContext = original })
}

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line string
		want time.Duration
		ok   bool
	}{
		{"out_time_ms=1500000", 1500 * time.Millisecond, true},
		{"out_time_ms=0", 0, true},
		{"progress=continue", 0, false},
		{"out_time_ms=bogus", 0, false},
		{"out_time_ms=-5", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseProgressLine(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseProgressLine(%q) = (%v, %v), want (%v, %v)", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClassifyCaptureFailure(t *testing.T) {
	waitErr := errors.New("exit status 1")
	cases := []struct {
		name   string
		stderr string
		marker error
	}{
		{"network", "tcp: Connection reset by peer", services.ErrTransient},
		{"dns", "Temporary failure in name resolution", services.ErrTransient},
		{"http 4xx", "Server returned 404 Not Found", services.ErrTransient},
		{"disk full", "No space left on device", services.ErrExternalTool},
		{"unknown", "something odd happened", services.ErrExternalTool},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyCaptureFailure(tc.stderr, waitErr)
			if !errors.Is(err, tc.marker) {
				t.Fatalf("classify(%q) = %v, want marker %v", tc.stderr, err, tc.marker)
			}
		})
	}
}

func TestCaptureValidatesRequest(t *testing.T) {
	cli := NewCLI()
	err := cli.Capture(context.Background(), CaptureRequest{OutputPath: "/tmp/x.mp3", Duration: time.Minute})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing url, got %v", err)
	}
	err = cli.Capture(context.Background(), CaptureRequest{StreamURL: "http://x", OutputPath: "/tmp/x.mp3"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero duration, got %v", err)
	}
}

func TestCaptureReportsProgress(t *testing.T) {
	stubCommand(t, `printf 'out_time_ms=30000000\nprogress=continue\nout_time_ms=60000000\nprogress=end\n'`)

	var updates []ProgressUpdate
	cli := NewCLI()
	err := cli.Capture(context.Background(), CaptureRequest{
		StreamURL:  "http://stream.example/live",
		OutputPath: t.TempDir() + "/out.mp3",
		Duration:   time.Minute,
		Progress:   func(u ProgressUpdate) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	if updates[1].Elapsed != time.Minute {
		t.Fatalf("final elapsed = %s, want 1m", updates[1].Elapsed)
	}
}

func TestCaptureClassifiesFailure(t *testing.T) {
	stubCommand(t, `echo 'Connection reset by peer' >&2; exit 1`)

	cli := NewCLI()
	err := cli.Capture(context.Background(), CaptureRequest{
		StreamURL:  "http://stream.example/live",
		OutputPath: t.TempDir() + "/out.mp3",
		Duration:   time.Minute,
	})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestCaptureTimesOut(t *testing.T) {
	stubCommand(t, `sleep 5`)

	cli := NewCLI()
	err := cli.Capture(context.Background(), CaptureRequest{
		StreamURL:  "http://stream.example/live",
		OutputPath: t.TempDir() + "/out.mp3",
		Duration:   10 * time.Millisecond,
		Grace:      10 * time.Millisecond,
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestProbeReturnsCodec(t *testing.T) {
	stubCommand(t, `echo mp3`)

	cli := NewCLI()
	codec, err := cli.Probe(context.Background(), "/tmp/file.mp3")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if codec != "mp3" {
		t.Fatalf("codec = %q, want mp3", codec)
	}
}
