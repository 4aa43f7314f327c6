// Package handler содержит HTTP-обработчики API маркетплейса курсов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/coursehub-system/internal/middleware"
	"github.com/mmeshcher/coursehub-system/internal/model"
	"github.com/mmeshcher/coursehub-system/internal/repository"
	"github.com/mmeshcher/coursehub-system/internal/service"
	"github.com/mmeshcher/coursehub-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, userName, userEmail, password string, role model.Role) (*model.User, error)
	AuthenticateUser(ctx context.Context, userEmail, password string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error)
	GetCourses(ctx context.Context) ([]model.Course, error)
	GetCourseByID(ctx context.Context, id string) (*model.Course, error)
	UpdateCourse(ctx context.Context, c *model.Course) error
	DeleteCourse(ctx context.Context, id string) error
	CreateOrder(ctx context.Context, o *model.Order) (string, error)
	CapturePayment(ctx context.Context, paymentID, payerID, orderID string) (*model.Order, error)
	GetPurchasesByUser(ctx context.Context, userID int64) ([]model.Purchase, error)
}

// Handler реализует HTTP-обработчики API маркетплейса курсов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	uploadDir      string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, uploadDir string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		uploadDir:      uploadDir,
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

type userResponse struct {
	ID        int64  `json:"id"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	Role      string `json:"role"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		UserEmail: u.UserEmail,
		Role:      string(u.Role),
	}
}

type authResponse struct {
	AccessToken string       `json:"accessToken"`
	User        userResponse `json:"user"`
}

type registerRequest struct {
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserName == "" || req.UserEmail == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "userName, userEmail and password are required")
		return
	}
	if !validation.IsValidEmail(req.UserEmail) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleStudent
	}
	if role != model.RoleStudent && role != model.RoleInstructor {
		writeError(w, http.StatusBadRequest, "role must be student or instructor")
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.UserName, req.UserEmail, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := h.authMiddleware.IssueToken(user)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		AccessToken: token,
		User:        newUserResponse(user),
	})
}

type loginRequest struct {
	UserEmail string `json:"userEmail"`
	Password  string `json:"password"`
}

// Login выполняет аутентификацию пользователя и выпуск токена доступа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserEmail == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "userEmail and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.UserEmail, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := h.authMiddleware.IssueToken(user)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken: token,
		User:        newUserResponse(user),
	})
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Error("get user error", zap.Error(err), zap.Int64("userID", claims.UserID))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}
