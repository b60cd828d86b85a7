/*
Package user contains the account entity and its persistence.

A User is created through New, which applies every default explicitly (placeholder picture,
empty bio, unset gender, timestamps) and normalises the email to lowercase so uniqueness can be
enforced by a plain unique index.
*/
package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"quicktalk/internal/pkg/randx"
)

// DefaultPic is the profile picture assigned when none is supplied.
const DefaultPic = "https://images.unsplash.com/photo-1633332755192-727a05c4013d?q=80&w=1000&auto=format&fit=crop"

const (
	minFullNameLen = 2
	maxFullNameLen = 50
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidGender      = errors.New("invalid gender")
	ErrInvalidFullName    = errors.New("invalid full name")
	ErrStorageUnavailable = errors.New("user storage unavailable")
)

// Gender is the optional self-described gender of a user.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known values, including unset.
func (g Gender) Valid() bool {
	switch g {
	case GenderUnset, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User is a registered account. PasswordHash is never serialised.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	Pic          string    `json:"pic"`
	Bio          string    `json:"bio"`
	Gender       Gender    `json:"gender"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the public projection used by search results and chat lists.
type Summary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Pic      string `json:"pic"`
}

// Summary returns the public projection of u.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, FullName: u.FullName, Email: u.Email, Pic: u.Pic}
}

// NewParams carries the caller-supplied fields of a new account.
type NewParams struct {
	Email        string
	FullName     string
	PasswordHash string
	Pic          string
}

// New validates p and returns a User with all defaults filled in.
func New(p NewParams, now time.Time) (User, error) {
	email, err := NormalizeEmail(p.Email)
	if err != nil {
		return User{}, err
	}

	fullName, err := NormalizeFullName(p.FullName)
	if err != nil {
		return User{}, err
	}

	pic := strings.TrimSpace(p.Pic)
	if pic == "" {
		pic = DefaultPic
	}

	now = now.UTC().Truncate(time.Microsecond)

	return User{
		ID:           randx.NewID(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: p.PasswordHash,
		Pic:          pic,
		Bio:          "",
		Gender:       GenderUnset,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lowercases email and checks that it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizeFullName trims name and enforces the 2..50 character bound.
func NormalizeFullName(name string) (string, error) {
	name = strings.TrimSpace(name)

	n := utf8.RuneCountInString(name)
	if n < minFullNameLen || n > maxFullNameLen {
		return "", ErrInvalidFullName
	}
	return name, nil
}

// ProfileUpdate lists the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FullName *string
	Email    *string
	Bio      *string
	Gender   *Gender
	Pic      *string
}

// Apply returns a copy of u with the non-nil fields of upd applied and validated.
func (upd ProfileUpdate) Apply(u User, now time.Time) (User, error) {
	if upd.FullName != nil && *upd.FullName != "" {
		name, err := NormalizeFullName(*upd.FullName)
		if err != nil {
			return User{}, err
		}
		u.FullName = name
	}

	if upd.Email != nil && *upd.Email != "" {
		email, err := NormalizeEmail(*upd.Email)
		if err != nil {
			return User{}, err
		}
		u.Email = email
	}

	if upd.Bio != nil {
		u.Bio = strings.TrimSpace(*upd.Bio)
	}

	if upd.Gender != nil {
		if !upd.Gender.Valid() {
			return User{}, ErrInvalidGender
		}
		u.Gender = *upd.Gender
	}

	if upd.Pic != nil && strings.TrimSpace(*upd.Pic) != "" {
		u.Pic = strings.TrimSpace(*upd.Pic)
	}

	u.UpdatedAt = now.UTC().Truncate(time.Microsecond)
	return u, nil
}
