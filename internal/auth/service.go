// Package auth is the mock identity layer.
//
// There are no passwords and no verification: any well-formed email and
// name log in. The service only exists so the conversation can greet the
// citizen by name and keep a profile between requests.
package auth

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "nagarbot/internal/errors"
	"nagarbot/internal/media"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minNameLen = 2

// User is the logged-in citizen.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	LoginTime      time.Time `json:"loginTime"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left as is.
type ProfileUpdate struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	ProfilePicture *string `json:"profilePicture"`
}

// Service issues tokens and keeps users in a UserStore.
type Service struct {
	store UserStore
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates the identity service.
func NewService(store UserStore, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Login validates the form and issues a session token.
//
// Validation rules:
//   - email must look like name@host.tld, stored lower-cased
//   - name is trimmed and must be at least 2 characters
func (s *Service) Login(ctx context.Context, email, name string) (string, User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return "", User{}, apperrors.NewValidationError("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return "", User{}, apperrors.NewValidationError("email", "please enter a valid email address")
	}
	if err := validateName(name); err != nil {
		return "", User{}, err
	}

	user := User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		LoginTime: s.now(),
	}
	token := uuid.NewString()

	if err := s.store.Save(ctx, token, user, s.ttl); err != nil {
		return "", User{}, err
	}

	log.Printf("👤 %s logged in", email)
	return token, user, nil
}

// Current returns the user for a token.
func (s *Service) Current(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, apperrors.NewNotFoundError("session", "")
	}
	return s.store.Load(ctx, token)
}

// UpdateProfile applies the non-nil fields of upd.
//
// The profile picture must be an image data URL within the 2 MB profile limit.
func (s *Service) UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (User, error) {
	user, err := s.store.Load(ctx, token)
	if err != nil {
		return User{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validateName(name); err != nil {
			return User{}, err
		}
		user.Name = name
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		user.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.ProfilePicture != nil {
		pic := *upd.ProfilePicture
		if pic != "" {
			raw, _, err := media.Decode(pic)
			if err != nil {
				return User{}, err
			}
			if pic, err = media.Ingest(raw, media.ProfileImageLimit); err != nil {
				return User{}, err
			}
		}
		user.ProfilePicture = pic
	}

	if err := s.store.Save(ctx, token, user, s.ttl); err != nil {
		return User{}, err
	}
	return user, nil
}

// Logout forgets the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

func validateName(name string) error {
	if name == "" {
		return apperrors.NewValidationError("name", "name is required")
	}
	if len([]rune(name)) < minNameLen {
		return apperrors.NewValidationError("name", "name must be at least 2 characters")
	}
	return nil
}
