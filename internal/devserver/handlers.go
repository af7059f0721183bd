package devserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/devserver/render"
	"github.com/nkiryanov/doccollab/internal/devserver/userctx"
	"github.com/nkiryanov/doccollab/internal/models"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,username"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type notificationRequest struct {
	ID int64 `json:"nId" validate:"required"`
}

type documentRequest struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[loginRequest](w, r)
	if err != nil {
		return
	}

	user, hash, err := s.store.UserByEmail(data.Email)
	if err == nil {
		err = s.hasher.Compare(hash, data.Password)
	}
	if err != nil {
		s.logger.Info("Login failed", "email", data.Email)
		render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	s.renderPair(w, user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[registerRequest](w, r)
	if err != nil {
		return
	}

	user, err := s.AddUser(models.Registration{
		User: models.User{
			Username:  data.Username,
			Email:     data.Email,
			FirstName: data.FirstName,
			LastName:  data.LastName,
		},
		Password: data.Password,
	})
	switch {
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		render.ServiceError(w, "Username or email already taken", http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("Registration failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.renderPair(w, user)
}

// Render [access, refresh] token array
func (s *Server) renderPair(w http.ResponseWriter, user models.User) {
	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		s.logger.Error("Failed to issue tokens", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	render.JSON(w, pair.Slice())
}

func (s *Server) handleRenewToken(w http.ResponseWriter, r *http.Request) {
	s.renewCalls.Add(1)

	data, err := render.BindAndValidate[tokenRequest](w, r)
	if err != nil {
		return
	}

	if err := s.waitRenewGate(r); err != nil {
		return
	}

	userID, err := s.tokens.UseRefresh(data.Token)
	if err != nil {
		s.logger.Info("Renewal rejected", "error", err)
		render.ServiceError(w, "Refresh token not found or expired", http.StatusUnauthorized)
		return
	}

	access, err := s.tokens.GenerateAccess(userID)
	if err != nil {
		s.logger.Error("Failed to issue access token", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	render.JSON(w, access)
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[tokenRequest](w, r)
	if err != nil {
		return
	}

	_, err = s.Authenticate(data.Token)
	render.JSON(w, err == nil)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())
	render.JSON(w, user)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())
	render.JSON(w, s.store.Notifications(user.ID))
}

func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	data, err := render.BindAndValidate[notificationRequest](w, r)
	if err != nil {
		return
	}

	if err := s.store.MarkRead(user.ID, data.ID); err != nil {
		render.ServiceError(w, "Notification not found", http.StatusNotFound)
		return
	}
	render.NoContent(w)
}

func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	s.store.MarkAllRead(user.ID)
	render.NoContent(w)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Invalid notification id", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteNotification(user.ID, id); err != nil {
		render.ServiceError(w, "Notification not found", http.StatusNotFound)
		return
	}
	render.NoContent(w)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())
	render.JSON(w, s.store.Documents(user.ID))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	doc, err := s.store.Document(user.ID, id)
	if err != nil {
		render.ServiceError(w, "Document not found", http.StatusNotFound)
		return
	}
	render.JSON(w, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.ServiceError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	data, err := render.BindAndValidate[documentRequest](w, r)
	if err != nil {
		return
	}

	doc, err := s.store.UpdateDocument(user.ID, models.Document{ID: id, Name: data.Name, Content: data.Content})
	if err != nil {
		render.ServiceError(w, "Document not found", http.StatusNotFound)
		return
	}
	render.JSON(w, doc)
}
