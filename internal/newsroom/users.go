package newsroom

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/forms"
	"github.com/go-while/go-newsroom/internal/models"
)

const msgDuplicateEmail = "Un compte existe déjà avec cette adresse email."

// BcryptHasher hashes passwords with bcrypt
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is 0
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash returns the bcrypt digest of clear; the digest carries its own salt
func (h *BcryptHasher) Hash(u *models.User, clear string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(clear), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password for %s: %w", u.Email, err)
	}
	return string(digest), nil
}

// CheckPassword reports whether clear matches digest
func CheckPassword(clear, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(clear)) == nil
}

// NewUserDraft returns an empty member holding only the default role
func NewUserDraft() *models.User {
	return &models.User{Roles: slices.Clone(models.DefaultRoles)}
}

// RegistrationForm returns the field specification for in
func (s *Service) RegistrationForm(in forms.RegistrationInput, fe forms.FieldErrors) *forms.Form {
	return forms.RegistrationForm(in, fe)
}

// RegisterUser validates in, replaces the clear password by its digest and saves the member.
// The stored role set is always the default one. An email already in use is a field error.
func (s *Service) RegisterUser(ctx context.Context, draft *models.User, in forms.RegistrationInput) (*models.User, forms.FieldErrors, error) {
	valid, fe := forms.ValidateRegistration(in)
	if fe != nil {
		return nil, fe, nil
	}

	exists, err := s.Users.EmailExists(ctx, valid.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, forms.FieldErrors{"email": msgDuplicateEmail}, nil
	}

	if draft == nil {
		draft = NewUserDraft()
	}
	now := s.now().UTC()
	draft.FirstName = valid.FirstName
	draft.LastName = valid.LastName
	draft.Email = valid.Email
	draft.Roles = slices.Clone(models.DefaultRoles)
	draft.CreatedAt = now
	draft.UpdatedAt = now

	digest, err := s.Hasher.Hash(draft, valid.Password)
	if err != nil {
		return nil, nil, err
	}
	draft.Password = digest

	id, err := s.Users.SaveUser(ctx, draft)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, forms.FieldErrors{"email": msgDuplicateEmail}, nil
		}
		return nil, nil, fmt.Errorf("save user: %w", err)
	}
	draft.ID = id
	log.Printf("[NEWSROOM]: registered user %d <%s>", id, draft.Email)
	return draft, nil, nil
}
