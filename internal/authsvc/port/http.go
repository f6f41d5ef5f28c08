// Package port exposes the auth service over HTTP. Handlers translate JSON
// requests into app-layer calls and map domain errors onto HTTP responses.
package port

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agribridge/auth-service/internal/authsvc/app"
	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/errmap"
)

var tracer = otel.Tracer("authsvc/port")

// maxBodyBytes bounds request bodies. Auth payloads are tiny; anything
// larger is abuse.
const maxBodyBytes = 4 << 10

// authService is a narrow, consumer-defined interface for the auth service
// operations the handler requires. The *app.AuthService satisfies this.
type authService interface {
	RequestCode(ctx context.Context, phone string) (*app.RequestCodeResult, error)
	VerifyCode(ctx context.Context, phone, candidate string, userType domain.UserType) (*app.VerifyCodeResult, error)
	ValidateToken(ctx context.Context, token string) (*app.Session, error)
	GetProfile(ctx context.Context, userID string) (*app.ProfileRecord, error)
	UpdateProfile(ctx context.Context, session *app.Session, update app.ProfileUpdate) (*app.ProfileRecord, error)
}

// Handler serves the versioned auth API on a http.ServeMux.
type Handler struct {
	svc    authService
	logger *slog.Logger
}

// NewHandler creates a Handler backed by the given AuthService.
func NewHandler(svc *app.AuthService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register attaches all routes to mux. Method-qualified patterns reject
// mismatched verbs with 405 before the handler runs.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/otp/request", h.handleRequestCode)
	mux.HandleFunc("POST /v1/auth/otp/verify", h.handleVerifyCode)
	mux.HandleFunc("GET /v1/auth/session", h.withSession(h.handleGetSession))
	mux.HandleFunc("GET /v1/profile", h.withSession(h.handleGetProfile))
	mux.HandleFunc("PUT /v1/profile", h.withSession(h.handleUpdateProfile))
}

// ---------------------------------------------------------------------------
// Request / response shapes
// ---------------------------------------------------------------------------

type requestCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type requestCodeResponse struct {
	ExpiresAt    string `json:"expires_at"`
	SMSDelivered bool   `json:"sms_delivered"`
	DevCode      string `json:"dev_code,omitempty"`
}

type verifyCodeRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	UserType    string `json:"user_type,omitempty"`
}

type verifyCodeResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	UserType  string `json:"user_type"`
	ExpiresAt string `json:"expires_at"`
}

type sessionResponse struct {
	UserID    string `json:"user_id"`
	UserType  string `json:"user_type"`
	ExpiresAt string `json:"expires_at"`
}

type profileResponse struct {
	UserID      string `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
	UserType    string `json:"user_type"`
	Name        string `json:"name,omitempty"`
	Location    string `json:"location,omitempty"`
	Crops       string `json:"crops,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Crops    string `json:"crops"`
	UserType string `json:"user_type,omitempty"`
}

type errorBody struct {
	Error errmap.HTTPError `json:"error"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (h *Handler) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "port.request_code")
	defer span.End()

	var req requestCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.RequestCode(ctx, req.PhoneNumber)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, requestCodeResponse{
		ExpiresAt:    result.ExpiresAt.UTC().Format(time.RFC3339),
		SMSDelivered: result.SMSDelivered,
		DevCode:      result.DevCode,
	})
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "port.verify_code")
	defer span.End()

	var req verifyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.VerifyCode(ctx, req.PhoneNumber, req.Code, domain.UserType(req.UserType))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, verifyCodeResponse{
		Token:     result.Token,
		UserID:    result.UserID,
		UserType:  string(result.UserType),
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request, session *app.Session) {
	ctx, span := tracer.Start(r.Context(), "port.get_session")
	defer span.End()

	h.writeJSON(ctx, w, http.StatusOK, sessionResponse{
		UserID:    session.UserID,
		UserType:  string(session.UserType),
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request, session *app.Session) {
	ctx, span := tracer.Start(r.Context(), "port.get_profile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", session.UserID))

	profile, err := h.svc.GetProfile(ctx, session.UserID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request, session *app.Session) {
	ctx, span := tracer.Start(r.Context(), "port.update_profile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", session.UserID))

	var req updateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.svc.UpdateProfile(ctx, session, app.ProfileUpdate{
		Name:     req.Name,
		Location: req.Location,
		Crops:    req.Crops,
		UserType: domain.UserType(req.UserType),
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, toProfileResponse(profile))
}

func toProfileResponse(p *app.ProfileRecord) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		PhoneNumber: p.PhoneNumber,
		UserType:    string(p.UserType),
		Name:        p.Name,
		Location:    p.Location,
		Crops:       p.Crops,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Middleware and helpers
// ---------------------------------------------------------------------------

// withSession wraps a handler that requires an authenticated caller.
// A missing or invalid bearer token ends the request with 401.
func (h *Handler) withSession(next func(http.ResponseWriter, *http.Request, *app.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(r.Context(), w, domain.ErrTokenInvalid)
			return
		}

		session, err := h.svc.ValidateToken(r.Context(), token)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}

		next(w, r, session)
	}
}

// bearerToken extracts the token from the Authorization header. The scheme
// comparison is case-insensitive per RFC 9110.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// decode reads a JSON body into dst, responding with 400 on failure.
// Unknown fields are rejected so client typos fail fast.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		h.writeError(r.Context(), w, domain.ErrInvalidInput)
		return false
	}

	return true
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "write response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	httpErr := errmap.ToHTTPError(err)

	// Client errors are expected traffic; only server-side failures are
	// worth a log line.
	if httpErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			slog.Int("status", httpErr.StatusCode),
			slog.String("error", err.Error()),
		)
	}

	// Remaining-attempts detail rides on the message for verify responses.
	var mismatch *domain.CodeMismatchError
	if errors.As(err, &mismatch) {
		httpErr.Message = mismatch.Error()
	}

	h.writeJSON(ctx, w, httpErr.StatusCode, errorBody{Error: httpErr})
}
