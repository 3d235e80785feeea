package services

import (
	"errors"
	"newton/models"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies Supabase access tokens and keeps user profiles current
type AuthService struct {
	repo     UserRepository
	secret   []byte
	audience string
}

// NewAuthService creates a new auth service
func NewAuthService(repo UserRepository, jwtSecret, audience string) *AuthService {
	return &AuthService{
		repo:     repo,
		secret:   []byte(jwtSecret),
		audience: audience,
	}
}

// Claims are the Supabase access token claims Newton reads
type Claims struct {
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserMetadata is the profile data Supabase copies from the identity provider
type UserMetadata struct {
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Picture   string `json:"picture"`
}

// UserInfo is the identity carried by a verified token
type UserInfo struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// VerifyToken validates an HS256 access token and returns its identity
func (as *AuthService) VerifyToken(tokenString string) (*UserInfo, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if as.audience != "" {
		opts = append(opts, jwt.WithAudience(as.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidUserInfo
	}

	name := claims.UserMetadata.Name
	if name == "" {
		name = claims.UserMetadata.FullName
	}
	avatar := claims.UserMetadata.AvatarURL
	if avatar == "" {
		avatar = claims.UserMetadata.Picture
	}

	return &UserInfo{
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      name,
		AvatarURL: avatar,
	}, nil
}

// Me upserts the caller's profile from their token and returns it
func (as *AuthService) Me(info *UserInfo) (*models.User, error) {
	if info == nil || info.ID == "" {
		return nil, ErrUnauthorized
	}

	user := &models.User{
		ID:        info.ID,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.AvatarURL,
	}
	if err := as.repo.UpsertUser(user); err != nil {
		return nil, err
	}

	stored, err := as.repo.GetUser(info.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.New("user missing after upsert")
	}
	return stored, nil
}
