/*
Package handler wires the HTTP API and the websocket endpoint onto the application services.
*/
package handler

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"quicktalk/internal/app/user"
	"quicktalk/internal/pkg/auth/jwt"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/req"
	"quicktalk/internal/pkg/resp"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

// HandleChallenge issues a proof-of-work nonce for registration.
func HandleChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Pow.NewChallenge())
	}
}

type VerifyChallengeInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandleVerifyChallenge trades a solved nonce for a single-use proof token.
func HandleVerifyChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input VerifyChallengeInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			logx.Warn("Proof-of-work rejected", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"powToken": token})
	}
}

type RegisterInput struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Pic      string `json:"pic,omitempty"`
}

// validPassword requires at least one letter and one digit within the length bounds.
func validPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || len(password) > maxPasswordLen {
		return false
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// HandleRegister creates an account. The request must carry a proof token.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.RedeemToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		// Validate before paying for bcrypt.
		u, err := user.New(user.NewParams{
			Email:    input.Email,
			FullName: input.FullName,
			Pic:      input.Pic,
		}, deps.now())
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}
		u.PasswordHash = string(hash)

		if err := deps.Users.Create(r.Context(), u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				logx.Warn("Registration conflict: email already exists")
			}
			resp.RespondDomainError(w, r, err)
			return
		}

		logx.Info("User registered", "user_id", u.ID)
		resp.RespondCreated(w, r, map[string]any{"user": u})
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a one-hour access token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.GetByEmail(r.Context(), input.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
				return
			}
			resp.RespondDomainError(w, r, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("Login: password mismatch", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, err := jwt.GenerateToken(u.ID, deps.Config.JWTSecret, jwt.AccessTokenExpiration)
		if err != nil {
			logx.Error(err, "Login: jwt generation failed", "user_id", u.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  u,
		})
	}
}
