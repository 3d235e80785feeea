package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ConvertToWAV converts any audio file ffmpeg understands to 16kHz mono PCM WAV
func ConvertToWAV(ctx context.Context, inputPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-ar", "16000", // Sample rate 16kHz
		"-ac", "1", // Mono
		"-c:a", "pcm_s16le", // PCM 16-bit
		"-y", // Overwrite output file
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}
