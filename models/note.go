package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen_at"`
}

type NoteSource string

const (
	NoteSourceManual  NoteSource = "manual"
	NoteSourceText    NoteSource = "text"
	NoteSourcePDF     NoteSource = "pdf"
	NoteSourceAudio   NoteSource = "audio"
	NoteSourceYouTube NoteSource = "youtube"
)

// Generated reports whether the source consumes generation quota.
func (s NoteSource) Generated() bool {
	return s != NoteSourceManual && s != ""
}

type Note struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Summary   string         `json:"summary"`
	Source    NoteSource     `json:"source"`
	UploadID  string         `json:"upload_id,omitempty"`
	Quiz      []QuizQuestion `json:"quiz,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

type CreateNoteRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"max=200000"`
}

type UpdateNoteRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"max=200000"`
}

type GenerateNoteRequest struct {
	Title string `json:"title" validate:"max=200"`
	Text  string `json:"text" validate:"required,min=20"`
}

type GenerateQuizRequest struct {
	Questions int `json:"questions" validate:"gte=0,lte=50"`
}

type Flashcard struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	NoteID       string     `json:"note_id,omitempty"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Stability    float64    `json:"stability"`
	Difficulty   float64    `json:"difficulty"`
	DueAt        time.Time  `json:"due_at"`
	LastReviewAt *time.Time `json:"last_review_at,omitempty"`
	ReviewCount  int        `json:"review_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type CreateFlashcardRequest struct {
	NoteID string `json:"note_id"`
	Front  string `json:"front" validate:"required,max=2000"`
	Back   string `json:"back" validate:"required,max=2000"`
}

type UpdateFlashcardRequest struct {
	Front string `json:"front" validate:"required,max=2000"`
	Back  string `json:"back" validate:"required,max=2000"`
}

type ReviewFlashcardRequest struct {
	Rating int `json:"rating" validate:"required,rating"`
}
