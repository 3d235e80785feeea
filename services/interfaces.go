package services

import (
	"context"
	"newton/mailer"
	"newton/models"
	"newton/pkg/ai"
	"newton/pkg/whop"
	"time"
)

// UserRepository defines the interface for user profile data access
type UserRepository interface {
	GetUser(userID string) (*models.User, error)
	GetUsers(userIDs []string) (map[string]models.User, error)
	UpsertUser(user *models.User) error
}

// SubscriptionRepository defines the interface for subscription data access
type SubscriptionRepository interface {
	UpsertSubscription(sub *models.Subscription) error
	GetSubscriptionByMembership(membershipID string) (*models.Subscription, error)
	GetActiveSubscriptions(userID string, now time.Time) ([]models.Subscription, error)
	GetLatestSubscription(userID string) (*models.Subscription, error)
	InsertSubscriptionEvent(event *models.SubscriptionEvent) error
	ListSubscriptionEvents(userID string, limit int) ([]models.SubscriptionEvent, error)
	GetUser(userID string) (*models.User, error)
}

// NoteRepository defines the interface for note data access
type NoteRepository interface {
	GetNote(userID, noteID string) (*models.Note, error)
	CreateNote(note *models.Note) error
	UpdateNote(userID, noteID, title, content string) error
	SetNoteQuiz(userID, noteID string, quiz []models.QuizQuestion) error
	ListNotes(userID string, limit, offset int) ([]models.Note, error)
	DeleteNote(userID, noteID string) error
	SaveGeneratedNote(note *models.Note, cards []models.Flashcard) error
	CountGenerationsSince(userID string, since time.Time) (int, error)
	CountInFlightUploads(userID string, ahead *models.Upload) (int, error)
}

// UploadRepository defines the interface for upload data access
type UploadRepository interface {
	CreateUpload(upload *models.Upload) error
	GetUpload(userID, uploadID string) (*models.Upload, error)
	ListUploads(userID string, limit, offset int) ([]models.Upload, error)
	RetryUpload(userID, uploadID string) error
	DeleteUpload(userID, uploadID string) error
}

// FlashcardRepository defines the interface for flashcard data access
type FlashcardRepository interface {
	GetNote(userID, noteID string) (*models.Note, error)
	CreateFlashcards(cards []models.Flashcard) error
	GetFlashcard(userID, cardID string) (*models.Flashcard, error)
	ListFlashcards(userID, noteID string, limit, offset int) ([]models.Flashcard, error)
	ListDueFlashcards(userID string, now time.Time, limit int) ([]models.Flashcard, error)
	UpdateFlashcardContent(userID, cardID, front, back string) error
	SaveFlashcardReview(card *models.Flashcard) error
	DeleteFlashcard(userID, cardID string) error
}

// StudyRepository defines the interface for study session data access
type StudyRepository interface {
	CreateSession(s *models.StudySession) error
	GetSession(userID, sessionID string) (*models.StudySession, error)
	GetOpenSessions(userID string) ([]models.StudySession, error)
	ListSessions(userID string, limit int) ([]models.StudySession, error)
	GetStaleSessions(cutoff time.Time, limit int) ([]models.StudySession, error)
	TouchSession(userID, sessionID string, at time.Time) error
	EndSession(sessionID string, endedAt time.Time, durationSeconds int) error
	GetStudyStats(userID string) (*models.StudyStats, error)
	SaveStudyStats(stats *models.StudyStats) error
	IsRoomParticipant(roomID, userID string) (bool, error)
}

// FriendRepository defines the interface for friendship data access
type FriendRepository interface {
	GetFriendshipBetween(a, b string) (*models.Friendship, error)
	GetFriendship(userID, friendshipID string) (*models.Friendship, error)
	CreateFriendship(f *models.Friendship) error
	ReopenFriendship(friendshipID, requesterID, addresseeID string) error
	SetFriendshipStatus(friendshipID, addresseeID string, status models.FriendshipStatus) error
	DeleteFriendship(userID, friendshipID string) error
	ListFriendships(userID string, status models.FriendshipStatus) ([]models.Friendship, error)
	GetUser(userID string) (*models.User, error)
	GetUsers(userIDs []string) (map[string]models.User, error)
}

// RoomRepository defines the interface for study room data access
type RoomRepository interface {
	CreateRoom(room *models.Room) error
	RoomCodeExists(code string) (bool, error)
	GetRoom(roomID string) (*models.Room, error)
	GetRoomByCode(code string) (*models.Room, error)
	ListUserRooms(userID string) ([]models.Room, error)
	ListRoomParticipants(roomID string) ([]models.RoomParticipant, error)
	IsRoomParticipant(roomID, userID string) (bool, error)
	CountRoomParticipants(roomID string) (int, error)
	JoinRoom(roomID, userID string, at time.Time) error
	LeaveRoom(roomID, userID string, at time.Time) error
	CloseRoom(roomID, hostID string, at time.Time) error
}

// ChallengeRepository defines the interface for challenge data access
type ChallengeRepository interface {
	CreateChallenge(c *models.Challenge) error
	GetChallenge(challengeID string) (*models.Challenge, error)
	ListUserChallenges(userID string) ([]models.Challenge, error)
	JoinChallenge(challengeID, userID string, at time.Time) error
	LeaveChallenge(challengeID, userID string) error
	IsChallengeParticipant(challengeID, userID string) (bool, error)
	ListChallengeParticipants(challengeID string) ([]string, error)
	SumStudySeconds(userIDs []string, from, to time.Time) (map[string]int64, error)
	GetUsers(userIDs []string) (map[string]models.User, error)
}

// Generator produces study material from source text (OpenAI in production)
type Generator interface {
	GenerateNote(ctx context.Context, source, titleHint string) (*ai.NoteDraft, error)
	GenerateQuiz(ctx context.Context, source string, n int) ([]ai.QuizQuestion, error)
	GenerateFlashcards(ctx context.Context, source string, n int) ([]ai.CardDraft, error)
}

// EntitlementChecker resolves what a user's plan allows
type EntitlementChecker interface {
	Entitlements(userID string) (*models.Entitlements, error)
}

// CheckoutClient creates hosted checkout sessions (Whop in production)
type CheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, req whop.CheckoutRequest) (*whop.CheckoutSession, error)
}

// Notifier sends best-effort transactional email
type Notifier interface {
	NotifySubscriptionChanged(to mailer.Recipient, sub *models.Subscription, limits models.Limits)
	NotifyFriendRequest(to mailer.Recipient, fromName string)
}

// Processor kicks background processing of an upload
type Processor interface {
	ProcessNow(uploadID string)
}
