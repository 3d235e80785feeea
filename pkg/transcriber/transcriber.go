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
	"os"
	"path/filepath"
	"time"
)

// Backend turns an audio file into text.
type Backend interface {
	TranscribeFile(ctx context.Context, filePath string, language string) (*TranscriptionResult, error)
}

var (
	_ Backend = (*Transcriber)(nil)
	_ Backend = (*LocalTranscriber)(nil)
)

// Transcriber uses the OpenAI audio transcription API
type Transcriber struct {
	apiKey  string
	apiURL  string
	model   string
	client  *http.Client
	timeout time.Duration
}

// Config holds configuration for the OpenAI transcriber
type Config struct {
	APIKey  string
	APIUrl  string
	Model   string
	Timeout time.Duration
}

// TranscriptionResult is the outcome of a transcription
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// Segment is a timed span of transcribed text
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response
type openAIResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// New creates a new OpenAI transcriber
func New(config Config) (*Transcriber, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if config.APIUrl == "" {
		config.APIUrl = "https://api.openai.com/v1/audio/transcriptions"
	}

	if config.Model == "" {
		config.Model = "whisper-1"
	}

	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute // lectures are long
	}

	return &Transcriber{
		apiKey:  config.APIKey,
		apiURL:  config.APIUrl,
		model:   config.Model,
		timeout: config.Timeout,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// TranscribeFile transcribes an audio file
func (t *Transcriber) TranscribeFile(ctx context.Context, filePath string, language string) (*TranscriptionResult, error) {
	file, err := os.Open(filePath)
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
		"backend", "openai",
	)

	return t.transcribeWithOpenAI(ctx, file, filepath.Base(filePath), language)
}

// TranscribeBytes transcribes audio data held in memory
func (t *Transcriber) TranscribeBytes(ctx context.Context, data []byte, filename string, language string) (*TranscriptionResult, error) {
	return t.transcribeWithOpenAI(ctx, bytes.NewReader(data), filename, language)
}

func (t *Transcriber) transcribeWithOpenAI(ctx context.Context, reader io.Reader, filename string, language string) (*TranscriptionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, reader); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	if err := writer.WriteField("model", t.model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}

	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}

	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	startTime := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(startTime)
	slog.Info("Transcription request completed", "elapsed_s", elapsed.Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &TranscriptionResult{
		Text:     openAIResp.Text,
		Language: openAIResp.Language,
		Duration: openAIResp.Duration,
		Segments: openAIResp.Segments,
	}
	if result.Language == "" {
		result.Language = language
	}

	slog.Info("Transcription successful", "chars", len(result.Text))

	return result, nil
}
