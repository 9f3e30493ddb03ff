// Package ffmpeg wraps the ffmpeg and ffprobe command line tools for stream
// capture, codec inspection, and MP3 conversion.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"aircheck/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate reports elapsed capture time against the requested duration.
type ProgressUpdate struct {
	Elapsed time.Duration
	Total   time.Duration
}

// CaptureRequest describes a single stream capture attempt.
type CaptureRequest struct {
	StreamURL  string
	OutputPath string
	Duration   time.Duration
	// Grace bounds how long past Duration the process may run before it is
	// forcibly terminated.
	Grace    time.Duration
	Progress func(ProgressUpdate)
}

// Client defines the external tool behaviour the pipeline depends on.
type Client interface {
	Capture(ctx context.Context, req CaptureRequest) error
	Probe(ctx context.Context, path string) (string, error)
	Convert(ctx context.Context, inputPath, outputPath string) error
	Version(ctx context.Context) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the default ffprobe binary name.
func WithProbeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.probeBinary = binary
		}
	}
}

// CLI wraps the ffmpeg command-line tools.
type CLI struct {
	binary      string
	probeBinary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", probeBinary: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Capture records a live stream for the requested duration. The process is
// bounded by duration plus grace; on overrun the context kills it.
func (c *CLI) Capture(ctx context.Context, req CaptureRequest) error {
	if req.StreamURL == "" {
		return services.Wrap(services.ErrValidation, "recording", "capture", "stream url required", nil)
	}
	if req.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "recording", "capture", "output path required", nil)
	}
	if req.Duration <= 0 {
		return services.Wrap(services.ErrValidation, "recording", "capture", "duration must be positive", nil)
	}

	grace := req.Grace
	if grace <= 0 {
		grace = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, req.Duration+grace)
	defer cancel()

	seconds := int(req.Duration.Round(time.Second) / time.Second)
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "10",
		"-i", req.StreamURL,
		"-t", strconv.Itoa(seconds),
		"-c", "copy",
		"-f", "mp3",
		"-progress", "pipe:1",
		req.OutputPath,
	}

	cmd := commandContext(runCtx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "recording", "capture", "stdout pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "recording", "capture", "start ffmpeg", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if req.Progress == nil {
			continue
		}
		if elapsed, ok := parseProgressLine(line); ok {
			req.Progress(ProgressUpdate{Elapsed: elapsed, Total: req.Duration})
		}
	}

	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}

	if runCtx.Err() != nil && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, "recording", "capture",
			fmt.Sprintf("capture exceeded %s and was terminated", req.Duration+grace), waitErr)
	}
	if ctx.Err() != nil {
		return services.Wrap(services.ErrTransient, "recording", "capture", "capture cancelled", ctx.Err())
	}
	return classifyCaptureFailure(stderr.String(), waitErr)
}

// classifyCaptureFailure maps ffmpeg stderr output to an error marker so the
// retry policy can distinguish transient network trouble from hard failures.
func classifyCaptureFailure(stderr string, waitErr error) error {
	detail := lastNonEmptyLine(stderr)
	if detail == "" {
		detail = "ffmpeg exited with an error"
	}
	lowered := strings.ToLower(stderr)
	switch {
	case containsAny(lowered,
		"connection refused", "connection reset", "connection timed out",
		"network is unreachable", "no route to host",
		"name or service not known", "temporary failure in name resolution",
		"end of file", "server returned 5"):
		return services.Wrap(services.ErrTransient, "recording", "capture", detail, waitErr)
	case containsAny(lowered, "server returned 4", "invalid data found", "http error 4"):
		return services.Wrap(services.ErrTransient, "recording", "capture", "stream error: "+detail, waitErr)
	case containsAny(lowered, "no space left", "permission denied", "read-only file system"):
		return services.Wrap(services.ErrExternalTool, "recording", "capture", "filesystem error: "+detail, waitErr)
	default:
		return services.Wrap(services.ErrExternalTool, "recording", "capture", detail, waitErr)
	}
}

// Probe returns the audio codec name of the first audio stream.
func (c *CLI) Probe(ctx context.Context, path string) (string, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := commandContext(ctx, c.probeBinary, args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "converting", "probe", "ffprobe failed for "+path, err)
	}
	codec := strings.TrimSpace(string(out))
	if codec == "" {
		return "", services.Wrap(services.ErrExternalTool, "converting", "probe", "no audio stream in "+path, nil)
	}
	return codec, nil
}

// Convert transcodes the input to MP3 at archival bitrate.
func (c *CLI) Convert(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-i", inputPath,
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		outputPath,
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := lastNonEmptyLine(stderr.String())
		if detail == "" {
			detail = "conversion failed"
		}
		return services.Wrap(services.ErrExternalTool, "converting", "convert", detail, err)
	}
	return nil
}

// Version reports the installed ffmpeg version for health checks.
func (c *CLI) Version(ctx context.Context) (string, error) {
	cmd := commandContext(ctx, c.binary, "-version")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg not available: %w", err)
	}
	line := string(out)
	if idx := bytes.IndexByte(out, '\n'); idx > 0 {
		line = string(out[:idx])
	}
	return strings.TrimSpace(line), nil
}

func parseProgressLine(line string) (time.Duration, bool) {
	value, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
	if !ok {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	// out_time_ms is microseconds despite the name.
	return time.Duration(micros) * time.Microsecond, true
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

var _ Client = (*CLI)(nil)
