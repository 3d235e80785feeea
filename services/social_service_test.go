package services

import (
	"database/sql"
	"errors"
	"newton/mailer"
	"newton/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockFriendRepository is a mock implementation of FriendRepository interface
type MockFriendRepository struct {
	mock.Mock
}

var _ FriendRepository = (*MockFriendRepository)(nil)

func (m *MockFriendRepository) GetFriendshipBetween(a, b string) (*models.Friendship, error) {
	args := m.Called(a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendRepository) GetFriendship(userID, friendshipID string) (*models.Friendship, error) {
	args := m.Called(userID, friendshipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Friendship), args.Error(1)
}

func (m *MockFriendRepository) CreateFriendship(f *models.Friendship) error {
	args := m.Called(f)
	return args.Error(0)
}

func (m *MockFriendRepository) ReopenFriendship(friendshipID, requesterID, addresseeID string) error {
	args := m.Called(friendshipID, requesterID, addresseeID)
	return args.Error(0)
}

func (m *MockFriendRepository) SetFriendshipStatus(friendshipID, addresseeID string, status models.FriendshipStatus) error {
	args := m.Called(friendshipID, addresseeID, status)
	return args.Error(0)
}

func (m *MockFriendRepository) DeleteFriendship(userID, friendshipID string) error {
	args := m.Called(userID, friendshipID)
	return args.Error(0)
}

func (m *MockFriendRepository) ListFriendships(userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	args := m.Called(userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Friendship), args.Error(1)
}

func (m *MockFriendRepository) GetUser(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockFriendRepository) GetUsers(userIDs []string) (map[string]models.User, error) {
	args := m.Called(userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.User), args.Error(1)
}

// MockRoomRepository is a mock implementation of RoomRepository interface
type MockRoomRepository struct {
	mock.Mock
}

var _ RoomRepository = (*MockRoomRepository)(nil)

func (m *MockRoomRepository) CreateRoom(room *models.Room) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockRoomRepository) RoomCodeExists(code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) GetRoom(roomID string) (*models.Room, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockRoomRepository) GetRoomByCode(code string) (*models.Room, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockRoomRepository) ListUserRooms(userID string) ([]models.Room, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockRoomRepository) ListRoomParticipants(roomID string) ([]models.RoomParticipant, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoomParticipant), args.Error(1)
}

func (m *MockRoomRepository) IsRoomParticipant(roomID, userID string) (bool, error) {
	args := m.Called(roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) CountRoomParticipants(roomID string) (int, error) {
	args := m.Called(roomID)
	return args.Int(0), args.Error(1)
}

func (m *MockRoomRepository) JoinRoom(roomID, userID string, at time.Time) error {
	args := m.Called(roomID, userID, at)
	return args.Error(0)
}

func (m *MockRoomRepository) LeaveRoom(roomID, userID string, at time.Time) error {
	args := m.Called(roomID, userID, at)
	return args.Error(0)
}

func (m *MockRoomRepository) CloseRoom(roomID, hostID string, at time.Time) error {
	args := m.Called(roomID, hostID, at)
	return args.Error(0)
}

// MockChallengeRepository is a mock implementation of ChallengeRepository interface
type MockChallengeRepository struct {
	mock.Mock
}

var _ ChallengeRepository = (*MockChallengeRepository)(nil)

func (m *MockChallengeRepository) CreateChallenge(c *models.Challenge) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockChallengeRepository) GetChallenge(challengeID string) (*models.Challenge, error) {
	args := m.Called(challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) ListUserChallenges(userID string) ([]models.Challenge, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) JoinChallenge(challengeID, userID string, at time.Time) error {
	args := m.Called(challengeID, userID, at)
	return args.Error(0)
}

func (m *MockChallengeRepository) LeaveChallenge(challengeID, userID string) error {
	args := m.Called(challengeID, userID)
	return args.Error(0)
}

func (m *MockChallengeRepository) IsChallengeParticipant(challengeID, userID string) (bool, error) {
	args := m.Called(challengeID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChallengeRepository) ListChallengeParticipants(challengeID string) ([]string, error) {
	args := m.Called(challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockChallengeRepository) SumStudySeconds(userIDs []string, from, to time.Time) (map[string]int64, error) {
	args := m.Called(userIDs, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockChallengeRepository) GetUsers(userIDs []string) (map[string]models.User, error) {
	args := m.Called(userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.User), args.Error(1)
}

// ==================== FRIEND TESTS ====================

func TestFriendService_SendRequest(t *testing.T) {
	tests := []struct {
		name           string
		addresseeID    string
		mockSetup      func(*MockFriendRepository, *MockNotifier)
		expectedStatus models.FriendshipStatus
		expectedError  error
	}{
		{
			name:          "Error - Cannot befriend yourself",
			addresseeID:   "alice",
			mockSetup:     func(*MockFriendRepository, *MockNotifier) {},
			expectedError: ErrCannotFriendSelf,
		},
		{
			name:        "Error - Unknown addressee",
			addresseeID: "ghost",
			mockSetup: func(repo *MockFriendRepository, _ *MockNotifier) {
				repo.On("GetUser", "ghost").Return(nil, nil)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:        "Success - New request notifies the addressee",
			addresseeID: "bob",
			mockSetup: func(repo *MockFriendRepository, notifier *MockNotifier) {
				repo.On("GetUser", "bob").Return(&models.User{ID: "bob", Email: "bob@example.com", Name: "Bob"}, nil)
				repo.On("GetFriendshipBetween", "alice", "bob").Return(nil, nil)
				repo.On("CreateFriendship", mock.MatchedBy(func(f *models.Friendship) bool {
					return f.RequesterID == "alice" && f.AddresseeID == "bob" && f.Status == models.FriendshipPending
				})).Return(nil)
				repo.On("GetUser", "alice").Return(&models.User{ID: "alice", Name: "Alice"}, nil)
				notifier.On("NotifyFriendRequest", mailer.Recipient{Email: "bob@example.com", Name: "Bob"}, "Alice").Return()
			},
			expectedStatus: models.FriendshipPending,
		},
		{
			name:        "Success - Rejected request is reopened",
			addresseeID: "bob",
			mockSetup: func(repo *MockFriendRepository, _ *MockNotifier) {
				repo.On("GetUser", "bob").Return(&models.User{ID: "bob"}, nil)
				repo.On("GetFriendshipBetween", "alice", "bob").Return(&models.Friendship{
					ID: "f1", RequesterID: "bob", AddresseeID: "alice", Status: models.FriendshipRejected,
				}, nil)
				repo.On("ReopenFriendship", "f1", "alice", "bob").Return(nil)
			},
			expectedStatus: models.FriendshipPending,
		},
		{
			name:        "Error - Reverse request already pending",
			addresseeID: "bob",
			mockSetup: func(repo *MockFriendRepository, _ *MockNotifier) {
				repo.On("GetUser", "bob").Return(&models.User{ID: "bob"}, nil)
				repo.On("GetFriendshipBetween", "alice", "bob").Return(&models.Friendship{
					ID: "f1", RequesterID: "bob", AddresseeID: "alice", Status: models.FriendshipPending,
				}, nil)
			},
			expectedError: ErrFriendshipExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockFriendRepository)
			mockNotifier := new(MockNotifier)
			tt.mockSetup(mockRepo, mockNotifier)

			service := NewFriendService(mockRepo, mockNotifier)
			friendship, err := service.SendRequest("alice", tt.addresseeID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, friendship)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, friendship.Status)
				assert.Equal(t, "alice", friendship.RequesterID)
			}
			mockRepo.AssertExpectations(t)
			mockNotifier.AssertExpectations(t)
		})
	}
}

func TestFriendService_Respond(t *testing.T) {
	pending := func() *models.Friendship {
		return &models.Friendship{ID: "f1", RequesterID: "alice", AddresseeID: "bob", Status: models.FriendshipPending}
	}

	tests := []struct {
		name           string
		userID         string
		accept         bool
		mockSetup      func(*MockFriendRepository)
		expectedStatus models.FriendshipStatus
		expectedError  error
	}{
		{
			name:   "Addressee accepts",
			userID: "bob",
			accept: true,
			mockSetup: func(repo *MockFriendRepository) {
				repo.On("GetFriendship", "bob", "f1").Return(pending(), nil)
				repo.On("SetFriendshipStatus", "f1", "bob", models.FriendshipAccepted).Return(nil)
			},
			expectedStatus: models.FriendshipAccepted,
		},
		{
			name:   "Addressee rejects",
			userID: "bob",
			accept: false,
			mockSetup: func(repo *MockFriendRepository) {
				repo.On("GetFriendship", "bob", "f1").Return(pending(), nil)
				repo.On("SetFriendshipStatus", "f1", "bob", models.FriendshipRejected).Return(nil)
			},
			expectedStatus: models.FriendshipRejected,
		},
		{
			name:   "Requester cannot accept their own request",
			userID: "alice",
			accept: true,
			mockSetup: func(repo *MockFriendRepository) {
				repo.On("GetFriendship", "alice", "f1").Return(pending(), nil)
			},
			expectedError: ErrForbidden,
		},
		{
			name:   "Already answered",
			userID: "bob",
			accept: true,
			mockSetup: func(repo *MockFriendRepository) {
				f := pending()
				f.Status = models.FriendshipAccepted
				repo.On("GetFriendship", "bob", "f1").Return(f, nil)
			},
			expectedError: ErrFriendshipNotPending,
		},
		{
			name:   "Not a party to the friendship",
			userID: "carol",
			accept: true,
			mockSetup: func(repo *MockFriendRepository) {
				repo.On("GetFriendship", "carol", "f1").Return(nil, nil)
			},
			expectedError: ErrFriendshipNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockFriendRepository)
			tt.mockSetup(mockRepo)

			service := NewFriendService(mockRepo, nil)
			friendship, err := service.Respond(tt.userID, "f1", tt.accept)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, friendship.Status)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestFriendService_ListFriends(t *testing.T) {
	mockRepo := new(MockFriendRepository)
	mockRepo.On("ListFriendships", "alice", models.FriendshipAccepted).Return([]models.Friendship{
		{ID: "f1", RequesterID: "alice", AddresseeID: "bob", Status: models.FriendshipAccepted},
		{ID: "f2", RequesterID: "carol", AddresseeID: "alice", Status: models.FriendshipAccepted},
	}, nil)
	mockRepo.On("GetUsers", []string{"bob", "carol"}).Return(map[string]models.User{
		"bob": {ID: "bob", Name: "Bob"},
	}, nil)

	service := NewFriendService(mockRepo, nil)
	entries, err := service.ListFriends("alice")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Friend)
	assert.Equal(t, "Bob", entries[0].Friend.Name)
	assert.Nil(t, entries[1].Friend)
}

func TestFriendService_Remove(t *testing.T) {
	mockRepo := new(MockFriendRepository)
	mockRepo.On("DeleteFriendship", "alice", "f1").Return(nil)
	mockRepo.On("DeleteFriendship", "alice", "f2").Return(sql.ErrNoRows)

	service := NewFriendService(mockRepo, nil)

	assert.NoError(t, service.Remove("alice", "f1"))
	assert.ErrorIs(t, service.Remove("alice", "f2"), ErrFriendshipNotFound)
}

// ==================== ROOM TESTS ====================

func TestRoomService_Create(t *testing.T) {
	t.Run("Retries taken codes and uses the host's capacity", func(t *testing.T) {
		mockRepo := new(MockRoomRepository)
		mockEnt := new(MockEntitlements)
		mockEnt.On("Entitlements", "host").Return(freeEntitlements(), nil)
		mockRepo.On("RoomCodeExists", "AAAAAA").Return(true, nil)
		mockRepo.On("RoomCodeExists", "BBBBBB").Return(false, nil)
		mockRepo.On("CreateRoom", mock.MatchedBy(func(r *models.Room) bool {
			return r.Code == "BBBBBB" && r.HostID == "host" && r.MaxParticipants == 4 && r.Status == models.RoomOpen
		})).Return(nil)

		codes := []string{"AAAAAA", "BBBBBB"}
		service := NewRoomService(mockRepo, mockEnt)
		service.newCode = func() (string, error) {
			code := codes[0]
			codes = codes[1:]
			return code, nil
		}

		room, err := service.Create("host", models.CreateRoomRequest{Name: "Finals prep"})

		require.NoError(t, err)
		assert.Equal(t, "BBBBBB", room.Code)
		assert.Len(t, room.Participants, 1)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Gives up when every code is taken", func(t *testing.T) {
		mockRepo := new(MockRoomRepository)
		mockEnt := new(MockEntitlements)
		mockEnt.On("Entitlements", "host").Return(freeEntitlements(), nil)
		mockRepo.On("RoomCodeExists", "AAAAAA").Return(true, nil)

		service := NewRoomService(mockRepo, mockEnt)
		service.newCode = func() (string, error) { return "AAAAAA", nil }

		_, err := service.Create("host", models.CreateRoomRequest{Name: "Finals prep"})

		assert.Error(t, err)
		mockRepo.AssertNumberOfCalls(t, "RoomCodeExists", roomCodeAttempts)
		mockRepo.AssertNotCalled(t, "CreateRoom", mock.Anything)
	})
}

func TestGenerateRoomCode(t *testing.T) {
	code, err := generateRoomCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}

func TestRoomService_Join(t *testing.T) {
	open := func(capacity int) *models.Room {
		return &models.Room{ID: "r1", HostID: "host", Code: "ABC123", Status: models.RoomOpen, MaxParticipants: capacity}
	}

	tests := []struct {
		name          string
		mockSetup     func(*MockRoomRepository)
		expectedError error
	}{
		{
			name: "Joins a room with space",
			mockSetup: func(repo *MockRoomRepository) {
				repo.On("GetRoomByCode", "ABC123").Return(open(4), nil)
				repo.On("IsRoomParticipant", "r1", "guest").Return(false, nil)
				repo.On("CountRoomParticipants", "r1").Return(3, nil)
				repo.On("JoinRoom", "r1", "guest", mock.AnythingOfType("time.Time")).Return(nil)
				repo.On("ListRoomParticipants", "r1").Return([]models.RoomParticipant{{UserID: "host"}, {UserID: "guest"}}, nil)
			},
		},
		{
			name: "Rejoining is a no-op even when full",
			mockSetup: func(repo *MockRoomRepository) {
				repo.On("GetRoomByCode", "ABC123").Return(open(2), nil)
				repo.On("IsRoomParticipant", "r1", "guest").Return(true, nil)
				repo.On("ListRoomParticipants", "r1").Return([]models.RoomParticipant{{UserID: "host"}, {UserID: "guest"}}, nil)
			},
		},
		{
			name: "Unlimited rooms skip the count",
			mockSetup: func(repo *MockRoomRepository) {
				repo.On("GetRoomByCode", "ABC123").Return(open(models.Unlimited), nil)
				repo.On("IsRoomParticipant", "r1", "guest").Return(false, nil)
				repo.On("JoinRoom", "r1", "guest", mock.AnythingOfType("time.Time")).Return(nil)
				repo.On("ListRoomParticipants", "r1").Return([]models.RoomParticipant{}, nil)
			},
		},
		{
			name: "Full room",
			mockSetup: func(repo *MockRoomRepository) {
				repo.On("GetRoomByCode", "ABC123").Return(open(4), nil)
				repo.On("IsRoomParticipant", "r1", "guest").Return(false, nil)
				repo.On("CountRoomParticipants", "r1").Return(4, nil)
			},
			expectedError: ErrRoomFull,
		},
		{
			name: "Closed room",
			mockSetup: func(repo *MockRoomRepository) {
				room := open(4)
				room.Status = models.RoomClosed
				repo.On("GetRoomByCode", "ABC123").Return(room, nil)
			},
			expectedError: ErrRoomClosed,
		},
		{
			name: "Unknown code",
			mockSetup: func(repo *MockRoomRepository) {
				repo.On("GetRoomByCode", "ABC123").Return(nil, nil)
			},
			expectedError: ErrRoomNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRoomRepository)
			tt.mockSetup(mockRepo)

			service := NewRoomService(mockRepo, nil)
			room, err := service.Join("guest", "ABC123")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, room)
				mockRepo.AssertNotCalled(t, "JoinRoom", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "r1", room.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestRoomService_Close(t *testing.T) {
	room := &models.Room{ID: "r1", HostID: "host", Status: models.RoomOpen}

	t.Run("Only the host can close", func(t *testing.T) {
		mockRepo := new(MockRoomRepository)
		mockRepo.On("GetRoom", "r1").Return(room, nil)

		service := NewRoomService(mockRepo, nil)
		assert.ErrorIs(t, service.Close("guest", "r1"), ErrForbidden)
	})

	t.Run("Host closes the room", func(t *testing.T) {
		mockRepo := new(MockRoomRepository)
		mockRepo.On("GetRoom", "r1").Return(room, nil)
		mockRepo.On("CloseRoom", "r1", "host", mock.AnythingOfType("time.Time")).Return(nil)

		service := NewRoomService(mockRepo, nil)
		assert.NoError(t, service.Close("host", "r1"))
		mockRepo.AssertExpectations(t)
	})
}

func TestRoomService_Get_HiddenFromOutsiders(t *testing.T) {
	mockRepo := new(MockRoomRepository)
	mockRepo.On("GetRoom", "r1").Return(&models.Room{ID: "r1", HostID: "host"}, nil)
	mockRepo.On("IsRoomParticipant", "r1", "stranger").Return(false, nil)

	service := NewRoomService(mockRepo, nil)
	_, err := service.Get("stranger", "r1")

	assert.ErrorIs(t, err, ErrRoomNotFound)
}

// ==================== CHALLENGE TESTS ====================

func TestChallengeService_Create(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		req           models.CreateChallengeRequest
		expectedError error
	}{
		{
			name: "Valid challenge",
			req:  models.CreateChallengeRequest{Title: "May marathon", GoalMinutes: 600, StartsAt: start, EndsAt: start.AddDate(0, 1, 0)},
		},
		{
			name:          "Ends before it starts",
			req:           models.CreateChallengeRequest{Title: "Backwards", GoalMinutes: 600, StartsAt: start, EndsAt: start.Add(-time.Hour)},
			expectedError: ErrInvalidChallenge,
		},
		{
			name:          "Zero goal",
			req:           models.CreateChallengeRequest{Title: "Nothing", GoalMinutes: 0, StartsAt: start, EndsAt: start.Add(time.Hour)},
			expectedError: ErrInvalidChallenge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockChallengeRepository)
			if tt.expectedError == nil {
				mockRepo.On("CreateChallenge", mock.MatchedBy(func(c *models.Challenge) bool {
					return c.CreatorID == "alice" && c.GoalMinutes == 600
				})).Return(nil)
			}

			service := NewChallengeService(mockRepo)
			challenge, err := service.Create("alice", tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, challenge)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, challenge.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestChallengeService_Join(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	challenge := &models.Challenge{ID: "c1", StartsAt: start, EndsAt: start.AddDate(0, 0, 7)}

	t.Run("Joins before the end", func(t *testing.T) {
		mockRepo := new(MockChallengeRepository)
		mockRepo.On("GetChallenge", "c1").Return(challenge, nil)
		mockRepo.On("JoinChallenge", "c1", "bob", mock.AnythingOfType("time.Time")).Return(nil)

		service := NewChallengeService(mockRepo)
		service.now = func() time.Time { return start.AddDate(0, 0, 3) }

		_, err := service.Join("bob", "c1")
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Ended challenge", func(t *testing.T) {
		mockRepo := new(MockChallengeRepository)
		mockRepo.On("GetChallenge", "c1").Return(challenge, nil)

		service := NewChallengeService(mockRepo)
		service.now = func() time.Time { return challenge.EndsAt }

		_, err := service.Join("bob", "c1")
		assert.ErrorIs(t, err, ErrChallengeEnded)
	})

	t.Run("Unknown challenge", func(t *testing.T) {
		mockRepo := new(MockChallengeRepository)
		mockRepo.On("GetChallenge", "nope").Return(nil, nil)

		service := NewChallengeService(mockRepo)
		_, err := service.Join("bob", "nope")
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})
}

func TestChallengeService_Leaderboard(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	challenge := &models.Challenge{ID: "c1", GoalMinutes: 60, StartsAt: start, EndsAt: end}
	participants := []string{"alice", "bob", "carol", "dave"}

	mockRepo := new(MockChallengeRepository)
	mockRepo.On("GetChallenge", "c1").Return(challenge, nil)
	mockRepo.On("ListChallengeParticipants", "c1").Return(participants, nil)
	mockRepo.On("SumStudySeconds", participants, start, end).Return(map[string]int64{
		"alice": 1200,
		"bob":   5400,
		"carol": 3600,
		"dave":  1200,
	}, nil)
	mockRepo.On("GetUsers", participants).Return(map[string]models.User{
		"alice": {ID: "alice", Name: "Alice"},
		"bob":   {ID: "bob", Name: "Bob"},
	}, nil)

	service := NewChallengeService(mockRepo)
	_, board, err := service.Leaderboard("c1")

	require.NoError(t, err)
	require.Len(t, board, 4)

	assert.Equal(t, "bob", board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.True(t, board[0].Completed)
	assert.Equal(t, "Bob", board[0].Name)

	assert.Equal(t, "carol", board[1].UserID)
	assert.Equal(t, 2, board[1].Rank)
	assert.True(t, board[1].Completed)

	// Ties share a rank and are ordered by user id
	assert.Equal(t, "alice", board[2].UserID)
	assert.Equal(t, "dave", board[3].UserID)
	assert.Equal(t, 3, board[2].Rank)
	assert.Equal(t, 3, board[3].Rank)
	assert.False(t, board[3].Completed)
}

func TestChallengeService_Leave(t *testing.T) {
	mockRepo := new(MockChallengeRepository)
	mockRepo.On("LeaveChallenge", "c1", "bob").Return(sql.ErrNoRows)
	mockRepo.On("LeaveChallenge", "c2", "bob").Return(errors.New("database error"))

	service := NewChallengeService(mockRepo)

	assert.ErrorIs(t, service.Leave("bob", "c1"), ErrChallengeNotFound)
	assert.EqualError(t, service.Leave("bob", "c2"), "database error")
}
