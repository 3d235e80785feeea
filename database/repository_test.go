package database

import (
	"context"
	"newton/models"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "newton-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(DriverSQLite, dbPath)
	require.NoError(t, err)

	err = db.Migrate()
	require.NoError(t, err)

	repo := NewRepository(db)

	err = repo.UpsertUser(&models.User{
		ID:    "test-user",
		Email: "test@example.com",
		Name:  "Test User",
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	require.NoError(t, repo.DB().Migrate())
	require.NoError(t, repo.Ping(context.Background()))
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.Rebind("SELECT ?"))
}

func TestUsers(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	t.Run("Upsert keeps name when claim is empty", func(t *testing.T) {
		err := repo.UpsertUser(&models.User{ID: "test-user", Email: "new@example.com"})
		require.NoError(t, err)

		user, err := repo.GetUser("test-user")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, "Test User", user.Name)
	})

	t.Run("Missing user returns nil", func(t *testing.T) {
		user, err := repo.GetUser("nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("GetUsers returns only known ids", func(t *testing.T) {
		users, err := repo.GetUsers([]string{"test-user", "nobody"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Contains(t, users, "test-user")
	})
}

func TestSubscriptionUpsert(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Second)
	end := now.Add(30 * 24 * time.Hour)

	first := &models.Subscription{
		ID:                 "sub-1",
		UserID:             "test-user",
		WhopMembershipID:   "mem_123",
		PlanID:             "plan_monthly",
		Tier:               models.TierMonthly,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, repo.UpsertSubscription(first))

	t.Run("Redelivery converges on one row", func(t *testing.T) {
		again := *first
		again.ID = "sub-2"
		again.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, repo.UpsertSubscription(&again))

		sub, err := repo.GetSubscriptionByMembership("mem_123")
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, "sub-1", sub.ID, "original id is kept")

		var count int
		require.NoError(t, repo.DB().QueryRow(`SELECT COUNT(*) FROM subscriptions`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("Active subscriptions respect status and period end", func(t *testing.T) {
		subs, err := repo.GetActiveSubscriptions("test-user", now)
		require.NoError(t, err)
		assert.Len(t, subs, 1)

		subs, err = repo.GetActiveSubscriptions("test-user", end.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("Deactivation flips status in place", func(t *testing.T) {
		canceled := *first
		canceled.Status = models.SubscriptionCanceled
		canceled.CancelAtPeriodEnd = true
		canceled.UpdatedAt = now.Add(2 * time.Minute)
		require.NoError(t, repo.UpsertSubscription(&canceled))

		sub, err := repo.GetLatestSubscription("test-user")
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, models.SubscriptionCanceled, sub.Status)
		assert.True(t, sub.CancelAtPeriodEnd)

		subs, err := repo.GetActiveSubscriptions("test-user", now)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("Events are appended", func(t *testing.T) {
		for i, typ := range []string{"membership_activated", "membership_deactivated"} {
			require.NoError(t, repo.InsertSubscriptionEvent(&models.SubscriptionEvent{
				ID:               "evt-" + typ,
				WhopMembershipID: "mem_123",
				EventType:        typ,
				UserID:           "test-user",
				Payload:          `{}`,
				ReceivedAt:       now.Add(time.Duration(i) * time.Second),
			}))
		}

		n, err := repo.CountSubscriptionEvents("mem_123")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		events, err := repo.ListSubscriptionEvents("test-user", 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "membership_deactivated", events[0].EventType)
	})
}

func TestNotes(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	note := &models.Note{
		ID:        "note-1",
		UserID:    "test-user",
		Title:     "Cells",
		Content:   "# Cells",
		Source:    models.NoteSourcePDF,
		Quiz:      []models.QuizQuestion{{Question: "Q?", Options: []string{"a", "b"}, AnswerIndex: 1}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateNote(note))
	require.NoError(t, repo.CreateNote(&models.Note{
		ID: "note-2", UserID: "test-user", Title: "Manual", Source: models.NoteSourceManual,
		CreatedAt: now, UpdatedAt: now,
	}))

	t.Run("Get decodes quiz", func(t *testing.T) {
		got, err := repo.GetNote("test-user", "note-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Quiz, 1)
		assert.Equal(t, 1, got.Quiz[0].AnswerIndex)
	})

	t.Run("Foreign note is invisible", func(t *testing.T) {
		got, err := repo.GetNote("other-user", "note-1")
		require.NoError(t, err)
		assert.Nil(t, got)

		err = repo.UpdateNote("other-user", "note-1", "x", "y")
		assert.True(t, IsNotFound(err))
	})

	t.Run("List omits content", func(t *testing.T) {
		notes, err := repo.ListNotes("test-user", 10, 0)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		for _, n := range notes {
			assert.Empty(t, n.Content)
		}
	})

	t.Run("Delete removes flashcards", func(t *testing.T) {
		require.NoError(t, repo.CreateFlashcards([]models.Flashcard{{
			ID: "card-1", UserID: "test-user", NoteID: "note-1", Front: "f", Back: "b",
			DueAt: now, CreatedAt: now, UpdatedAt: now,
		}}))

		require.NoError(t, repo.DeleteNote("test-user", "note-1"))
		card, err := repo.GetFlashcard("test-user", "card-1")
		require.NoError(t, err)
		assert.Nil(t, card)
	})
}

func TestUploadProcessingState(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	upload := &models.Upload{
		ID:        "up-1",
		UserID:    "test-user",
		Kind:      models.UploadKindPDF,
		Filename:  "bio.pdf",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateUpload(upload))

	t.Run("New upload is pending", func(t *testing.T) {
		pending, err := repo.GetPendingUploads(10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, models.ProcessingPending, pending[0].Status)
	})

	t.Run("Claim is exclusive", func(t *testing.T) {
		ok, err := repo.ClaimUpload("up-1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ClaimUpload("up-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Failed upload is queued again", func(t *testing.T) {
		require.NoError(t, repo.MarkUploadFailed("up-1", "boom"))

		pending, err := repo.GetPendingUploads(10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, models.ProcessingFailed, pending[0].Status)
		assert.Equal(t, 1, pending[0].RetryCount)
		require.NotNil(t, pending[0].LastAttemptAt)

		ok, err := repo.ClaimUpload("up-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Failures abandon after max retries", func(t *testing.T) {
		for i := 1; i < models.MaxProcessingRetries; i++ {
			require.NoError(t, repo.MarkUploadFailed("up-1", "boom"))
		}

		got, err := repo.GetUpload("test-user", "up-1")
		require.NoError(t, err)
		assert.Equal(t, models.ProcessingAbandoned, got.Status)
		assert.Equal(t, models.MaxProcessingRetries, got.RetryCount)
		assert.Equal(t, "boom", got.Error)
	})

	t.Run("Retry resets abandoned upload", func(t *testing.T) {
		require.NoError(t, repo.RetryUpload("test-user", "up-1"))

		got, err := repo.GetUpload("test-user", "up-1")
		require.NoError(t, err)
		assert.Equal(t, models.ProcessingPending, got.Status)
		assert.Equal(t, 0, got.RetryCount)
		assert.Empty(t, got.Error)

		err = repo.RetryUpload("test-user", "up-1")
		assert.True(t, IsNotFound(err), "pending uploads cannot be retried")
	})
}

func TestGenerationLog(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	first := &models.Upload{
		ID: "up-1", UserID: "test-user", Kind: models.UploadKindPDF, Filename: "bio.pdf",
		CreatedAt: now, UpdatedAt: now,
	}
	second := &models.Upload{
		ID: "up-2", UserID: "test-user", Kind: models.UploadKindYouTube, Filename: "dQw4w9WgXcQ",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreateUpload(first))
	require.NoError(t, repo.CreateUpload(second))
	ok, err := repo.ClaimUpload("up-1")
	require.NoError(t, err)
	require.True(t, ok)

	note := func(id, uploadID string) *models.Note {
		return &models.Note{
			ID: id, UserID: "test-user", Title: "Cells", Source: models.NoteSourcePDF,
			UploadID: uploadID, CreatedAt: now, UpdatedAt: now,
		}
	}
	card := func(id, noteID string) models.Flashcard {
		return models.Flashcard{
			ID: id, UserID: "test-user", NoteID: noteID, Front: "f", Back: "b",
			DueAt: now, CreatedAt: now, UpdatedAt: now,
		}
	}

	t.Run("In-flight uploads are counted in queue order", func(t *testing.T) {
		n, err := repo.CountInFlightUploads("test-user", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.CountInFlightUploads("test-user", second)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.CountInFlightUploads("test-user", first)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Save completes the upload", func(t *testing.T) {
		require.NoError(t, repo.SaveGeneratedNote(note("note-1", "up-1"), []models.Flashcard{card("card-1", "note-1")}))

		got, err := repo.GetUpload("test-user", "up-1")
		require.NoError(t, err)
		assert.Equal(t, models.ProcessingCompleted, got.Status)
		assert.Equal(t, "note-1", got.NoteID)

		saved, err := repo.GetFlashcard("test-user", "card-1")
		require.NoError(t, err)
		assert.NotNil(t, saved)

		n, err := repo.CountGenerationsSince("test-user", dayAgo)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.CountInFlightUploads("test-user", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Failed card insert leaves nothing behind", func(t *testing.T) {
		err := repo.SaveGeneratedNote(note("note-2", ""), []models.Flashcard{card("card-1", "note-2")})
		require.Error(t, err)

		got, err := repo.GetNote("test-user", "note-2")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := repo.CountGenerationsSince("test-user", dayAgo)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Deleting a note keeps its generation", func(t *testing.T) {
		require.NoError(t, repo.DeleteNote("test-user", "note-1"))

		n, err := repo.CountGenerationsSince("test-user", dayAgo)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestStudySessions(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	start := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.CreateSession(&models.StudySession{
		ID: "s-1", UserID: "test-user", StartedAt: start, LastHeartbeatAt: start,
	}))

	t.Run("Stale sessions are found by heartbeat", func(t *testing.T) {
		stale, err := repo.GetStaleSessions(time.Now().Add(-10*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.True(t, stale[0].Open())
	})

	t.Run("End is applied once", func(t *testing.T) {
		require.NoError(t, repo.EndSession("s-1", start.Add(30*time.Minute), 1800))
		err := repo.EndSession("s-1", start.Add(40*time.Minute), 2400)
		assert.True(t, IsNotFound(err))

		s, err := repo.GetSession("test-user", "s-1")
		require.NoError(t, err)
		assert.Equal(t, 1800, s.DurationSeconds)
	})

	t.Run("Sum totals ended sessions in window", func(t *testing.T) {
		totals, err := repo.SumStudySeconds([]string{"test-user", "other"}, start.Add(-time.Minute), time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1800), totals["test-user"])
		assert.Zero(t, totals["other"])
	})

	t.Run("Stats upsert", func(t *testing.T) {
		stats, err := repo.GetStudyStats("test-user")
		require.NoError(t, err)
		assert.Nil(t, stats)

		require.NoError(t, repo.SaveStudyStats(&models.StudyStats{
			UserID: "test-user", TotalSeconds: 1800, SessionsCount: 1, CurrentStreak: 1,
			LongestStreak: 1, LastStudyDate: "2026-01-01", UpdatedAt: time.Now(),
		}))
		require.NoError(t, repo.SaveStudyStats(&models.StudyStats{
			UserID: "test-user", TotalSeconds: 3600, SessionsCount: 2, CurrentStreak: 2,
			LongestStreak: 2, LastStudyDate: "2026-01-02", UpdatedAt: time.Now(),
		}))

		stats, err = repo.GetStudyStats("test-user")
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, int64(3600), stats.TotalSeconds)
		assert.Equal(t, "2026-01-02", stats.LastStudyDate)
	})
}

func TestRoomsAndFriendships(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	now := time.Now().UTC()

	t.Run("Room lifecycle", func(t *testing.T) {
		room := &models.Room{
			ID: "room-1", HostID: "test-user", Name: "Bio", Code: "ABC123",
			Status: models.RoomOpen, MaxParticipants: 2, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, repo.CreateRoom(room))

		exists, err := repo.RoomCodeExists("ABC123")
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, repo.JoinRoom("room-1", "friend", now))
		require.NoError(t, repo.JoinRoom("room-1", "friend", now))

		n, err := repo.CountRoomParticipants("room-1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, repo.LeaveRoom("room-1", "friend", now))
		n, err = repo.CountRoomParticipants("room-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		err = repo.CloseRoom("room-1", "friend", now)
		assert.True(t, IsNotFound(err), "only the host can close")

		require.NoError(t, repo.CloseRoom("room-1", "test-user", now))
		got, err := repo.GetRoomByCode("ABC123")
		require.NoError(t, err)
		assert.Equal(t, models.RoomClosed, got.Status)
	})

	t.Run("Friendship lookup works in both directions", func(t *testing.T) {
		require.NoError(t, repo.CreateFriendship(&models.Friendship{
			ID: "f-1", RequesterID: "test-user", AddresseeID: "friend",
			Status: models.FriendshipPending, CreatedAt: now, UpdatedAt: now,
		}))

		f, err := repo.GetFriendshipBetween("friend", "test-user")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "f-1", f.ID)

		pending, err := repo.ListFriendships("friend", models.FriendshipPending)
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		pending, err = repo.ListFriendships("test-user", models.FriendshipPending)
		require.NoError(t, err)
		assert.Empty(t, pending, "outgoing requests are not listed as pending")

		err = repo.SetFriendshipStatus("f-1", "test-user", models.FriendshipAccepted)
		assert.True(t, IsNotFound(err), "requester cannot accept")

		require.NoError(t, repo.SetFriendshipStatus("f-1", "friend", models.FriendshipAccepted))
		friends, err := repo.ListFriendships("test-user", models.FriendshipAccepted)
		require.NoError(t, err)
		assert.Len(t, friends, 1)
	})
}
