package models

import "time"

type UploadKind string

const (
	UploadKindPDF     UploadKind = "pdf"
	UploadKindAudio   UploadKind = "audio"
	UploadKindYouTube UploadKind = "youtube"
)

// NoteSource maps the upload kind to the source of the note generated from it.
func (k UploadKind) NoteSource() NoteSource {
	switch k {
	case UploadKindPDF:
		return NoteSourcePDF
	case UploadKindAudio:
		return NoteSourceAudio
	case UploadKindYouTube:
		return NoteSourceYouTube
	}
	return NoteSourceText
}

// ProcessingStatus represents where an upload is in the generation pipeline
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
	ProcessingAbandoned  ProcessingStatus = "abandoned"
)

// MaxProcessingRetries is how many failed attempts an upload gets before it is abandoned
const MaxProcessingRetries = 3

type Upload struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Kind          UploadKind       `json:"kind"`
	Filename      string           `json:"filename"`
	MimeType      string           `json:"mime_type"`
	SizeBytes     int64            `json:"size_bytes"`
	StoragePath   string           `json:"-"`
	SourceURL     string           `json:"source_url,omitempty"`
	Transcript    string           `json:"-"`
	Status        ProcessingStatus `json:"status"`
	RetryCount    int              `json:"retry_count"`
	LastAttemptAt *time.Time       `json:"last_attempt_at,omitempty"`
	Error         string           `json:"error,omitempty"`
	NoteID        string           `json:"note_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type YouTubeImportRequest struct {
	URL        string `json:"url" validate:"required,youtubeurl"`
	Transcript string `json:"transcript" validate:"max=500000"`
}
