package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"newton/pkg/audio"
	"os"
	"path/filepath"
	"time"
)

// LocalTranscriber uses a whisper.cpp server
type LocalTranscriber struct {
	serverURL string
	client    *http.Client
	timeout   time.Duration
	convert   func(ctx context.Context, inputPath, outputPath string) error
}

// LocalConfig configuration for the local transcriber
type LocalConfig struct {
	ServerURL string
	Timeout   time.Duration
}

// NewLocal creates a new local transcriber
func NewLocal(config LocalConfig) (*LocalTranscriber, error) {
	if config.ServerURL == "" {
		config.ServerURL = "http://127.0.0.1:8080"
	}

	if config.Timeout == 0 {
		config.Timeout = 10 * time.Minute // CPU inference on long recordings
	}

	return &LocalTranscriber{
		serverURL: config.ServerURL,
		timeout:   config.Timeout,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		convert: audio.ConvertToWAV,
	}, nil
}

// TranscribeFile transcribes an audio file. whisper.cpp only accepts 16kHz
// PCM WAV, so anything else is converted with ffmpeg first.
func (t *LocalTranscriber) TranscribeFile(ctx context.Context, filePath string, language string) (*TranscriptionResult, error) {
	wavPath := filePath
	if !audio.IsWAV(filePath) {
		tmp, err := os.CreateTemp("", "newton-audio-*.wav")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := t.convert(ctx, filePath, tmp.Name()); err != nil {
			return nil, err
		}
		wavPath = tmp.Name()
	}

	file, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	slog.Info("Transcribing file",
		"file", filepath.Base(filePath),
		"size_mb", float64(fileInfo.Size())/(1024*1024),
		"backend", "local",
	)

	result, err := t.transcribeWithLocal(ctx, file, filepath.Base(wavPath), language)
	if err != nil {
		return nil, err
	}
	if d, err := audio.Duration(wavPath); err == nil {
		result.Duration = d
	}
	return result, nil
}

func (t *LocalTranscriber) transcribeWithLocal(ctx context.Context, reader io.Reader, filename string, language string) (*TranscriptionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, reader); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response format field: %w", err)
	}

	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}

	if err := writer.WriteField("temperature", "0.0"); err != nil {
		return nil, fmt.Errorf("failed to write temperature field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serverURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	startTime := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	slog.Info("Transcription request completed", "elapsed_s", time.Since(startTime).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var whisperResp struct {
		Text     string    `json:"text"`
		Language string    `json:"language"`
		Segments []Segment `json:"segments"`
	}

	if err := json.Unmarshal(respBody, &whisperResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &TranscriptionResult{
		Text:     whisperResp.Text,
		Language: whisperResp.Language,
		Segments: whisperResp.Segments,
	}

	slog.Info("Transcription successful", "chars", len(result.Text))

	return result, nil
}

// Health checks if the whisper server is healthy
func (t *LocalTranscriber) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.serverURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
