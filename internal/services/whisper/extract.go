package whisper

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts external tool execution so tests can stub ffmpeg.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// RunCommand executes an external tool, folding its combined output into the
// returned error.
func RunCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudio extracts the given audio stream from a source file into a
// mono 16kHz PCM WAV, the input format the inference server expects.
// An audioIndex below zero selects ffmpeg's default audio stream.
func ExtractAudio(ctx context.Context, runner CommandRunner, ffmpegBinary, source string, audioIndex int, dest string) error {
	if runner == nil {
		runner = RunCommand
	}
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
	}
	if audioIndex >= 0 {
		args = append(args, "-map", fmt.Sprintf("0:%d", audioIndex))
	}
	args = append(args,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
	if err := runner(ctx, ffmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}
