package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc      *UserService
	logger   *zap.SugaredLogger
	validate *validator.Validate
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{svc: svc, logger: logger, validate: v}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName" validate:"required,notblank"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidationResponse is the 400 body for payloads that fail validation.
type ValidationResponse struct {
	Message     string              `json:"message"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.svc.Register(r.Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     entity.Role(req.Role),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utilities.WriteMessage(w, http.StatusConflict, "Email already registered")
			return
		}
		// max=72 counts runes; bcrypt limits bytes
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			utilities.WriteJSON(w, http.StatusBadRequest, ValidationResponse{
				Message:     "Validation failed",
				FieldErrors: map[string][]string{"password": {"must be at most 72 bytes"}},
			})
			return
		}
		h.internalError(w, "register failed", err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"message": "Registered", "id": id})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	tok, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login failed", "err", err)
			utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.internalError(w, "login failed", err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"token": tok})
}

// Profile requires the access guard.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := token.IdentityFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	u, err := h.svc.Profile(r.Context(), id.SubjectID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utilities.WriteMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, "profile lookup failed", err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"profile": u.Profile()})
}

// Users requires the access guard and the ADMIN role gate.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, "list users failed", err)
		return
	}
	out := make([]entity.Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// Protected echoes the identity attached by the access guard.
func (h *Handler) Protected(w http.ResponseWriter, r *http.Request) {
	id, ok := token.IdentityFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"message": "ok", "user": id})
}

// decode reads and validates a JSON body, writing the 400 response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		utilities.WriteJSON(w, http.StatusBadRequest, ValidationResponse{
			Message:     "Validation failed",
			FieldErrors: fieldErrors(err),
		})
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Errorw(msg, "err", err)
	utilities.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
}

func fieldErrors(err error) map[string][]string {
	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
