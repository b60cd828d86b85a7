package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quicktalk/internal/app/message"
	"quicktalk/internal/pkg/auth/jwt"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/req"
	"quicktalk/internal/pkg/resp"
)

type CreateMessageInput struct {
	ReceiverID  string `json:"receiverId"`
	MessageType string `json:"messageType"`
	Content     string `json:"content"`
}

// HandleCreateMessage persists a message from the caller and delivers it to live connections.
func HandleCreateMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ReceiverID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		m, err := deps.Sender.Send(r.Context(), jwt.IdentityFromContext(r), input.ReceiverID, message.Type(input.MessageType), input.Content)
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		resp.RespondCreated(w, r, map[string]any{"messageData": m})
	}
}

// HandleListConversation returns one page of the conversation with {userId}, oldest first.
func HandleListConversation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, customErr := req.QueryInt(r, "page", 1)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		limit, customErr := req.QueryInt(r, "limit", message.DefaultPageSize)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, err := deps.Messages.ListBetween(r.Context(), jwt.IdentityFromContext(r), chi.URLParam(r, "userId"), page, limit)
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}

// HandleListChats returns the caller's conversations, most recent first.
func HandleListChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatList, err := deps.Aggregator.BuildChatList(r.Context(), jwt.IdentityFromContext(r))
		if err != nil {
			resp.RespondDomainError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chatList": chatList})
	}
}
