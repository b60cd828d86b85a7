package handler

import (
	"net/http"
	"strings"

	"quicktalk/internal/app/storage"
	"quicktalk/internal/app/user"
	"quicktalk/internal/pkg/auth/jwt"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/req"
	"quicktalk/internal/pkg/resp"
)

// HandleGetUserProfile returns the caller's profile.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := deps.Users.GetByID(r.Context(), jwt.IdentityFromContext(r))
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}
		resp.RespondSuccess(w, r, map[string]any{"user": u})
	}
}

type UpdateProfileInput struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	Pic      *string `json:"pic,omitempty"`
}

// HandleUpdateUserProfile applies a partial profile update; omitted fields stay unchanged.
func HandleUpdateUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input UpdateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		current, err := deps.Users.GetByID(r.Context(), jwt.IdentityFromContext(r))
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		upd := user.ProfileUpdate{
			FullName: input.FullName,
			Email:    input.Email,
			Bio:      input.Bio,
			Pic:      input.Pic,
		}
		if input.Gender != nil {
			g := user.Gender(strings.ToLower(strings.TrimSpace(*input.Gender)))
			upd.Gender = &g
		}

		updated, err := upd.Apply(current, deps.now())
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		if err := deps.Users.Update(r.Context(), updated); err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": updated})
	}
}

// HandleSearchUsers finds users whose full name contains q, case-insensitively.
func HandleSearchUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		users, err := deps.Users.Search(r.Context(), query, user.DefaultSearchLimit)
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		results := make([]user.Summary, 0, len(users))
		for _, u := range users {
			results = append(results, u.Summary())
		}
		resp.RespondSuccess(w, r, map[string]any{"users": results})
	}
}

// HandlePresignAvatarURL returns an upload URL for a new profile picture. The client sets
// the returned fileUrl as pic through the profile update once the upload finished.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return handlePresign(deps, func(PresignUploadInput) (storage.Kind, bool) {
		return storage.KindAvatar, true
	})
}
