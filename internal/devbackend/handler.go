package devbackend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/backend"
)

const maxBodyBytes = 64 << 10

// Handler serves the REST contract on top of a Store.
func Handler(store *Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Post(backend.PathVerifyIdentification, h.verifyIdentification)
	r.Post(backend.PathVerifyExistingEmail, h.verifyExistingEmail)
	r.Post(backend.PathAccessRequests, h.requestAccess)
	r.Post(backend.PathEmailExists, h.emailExists)
	r.Post(backend.PathSendCode, h.sendCode)
	r.Post(backend.PathVerifyCode, h.verifyCode)
	r.Post(backend.PathResetPassword, h.resetPassword)
	r.Post(backend.PathLogin, h.login)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusNotFound, backend.Envelope{Message: "Not found."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusMethodNotAllowed, backend.Envelope{Message: "Method not allowed."})
	})
	return r
}

type handler struct {
	store  *Store
	logger *slog.Logger
}

func (h *handler) verifyIdentification(w http.ResponseWriter, r *http.Request) {
	var req backend.IdentificationRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.store.VerifyIdentification(r.Context(), req.Identification)
	h.respond(w, r, err, backend.IdentificationData{
		UserExists:  res.UserExists,
		MaskedEmail: res.MaskedEmail,
		Companies:   res.Companies,
	})
}

func (h *handler) verifyExistingEmail(w http.ResponseWriter, r *http.Request) {
	var req backend.ExistingEmailRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.store.VerifyExistingEmail(r.Context(), req.Identification, req.Email), nil)
}

func (h *handler) requestAccess(w http.ResponseWriter, r *http.Request) {
	var req goPortal.AccessRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.store.RequestAccess(r.Context(), req), nil)
}

func (h *handler) emailExists(w http.ResponseWriter, r *http.Request) {
	var req backend.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	exists, err := h.store.VerifyEmailExists(r.Context(), req.Email)
	h.respond(w, r, err, backend.EmailExistsData{Exists: exists})
}

func (h *handler) sendCode(w http.ResponseWriter, r *http.Request) {
	var req backend.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.store.SendVerificationCode(r.Context(), req.Email), nil)
}

func (h *handler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req backend.VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	valid, err := h.store.VerifyCode(r.Context(), req.Email, req.Code)
	h.respond(w, r, err, backend.VerifyCodeData{Valid: valid})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req backend.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.store.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword), nil)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.store.Login(r.Context(), req.Email, req.Password)
	h.respond(w, r, err, backend.UserData{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role.String(),
	})
}

// respond writes a success envelope with data, or the failure envelope of
// err. Rejections answer 400 with their message; anything else is a 500.
func (h *handler) respond(w http.ResponseWriter, r *http.Request, err error, data any) {
	if err != nil {
		var rejected *goPortal.RejectedError
		if errors.As(err, &rejected) {
			writeEnvelope(w, http.StatusBadRequest, backend.Envelope{Message: rejected.Message})
			return
		}
		h.logger.Error("dev backend failure", "path", r.URL.Path, "error", err)
		writeEnvelope(w, http.StatusInternalServerError, backend.Envelope{Message: "Internal error."})
		return
	}

	env := backend.Envelope{Success: true}
	if data != nil {
		raw, mErr := json.Marshal(data)
		if mErr != nil {
			h.logger.Error("encode response", "path", r.URL.Path, "error", mErr)
			writeEnvelope(w, http.StatusInternalServerError, backend.Envelope{Message: "Internal error."})
			return
		}
		env.Data = raw
	}
	writeEnvelope(w, http.StatusOK, env)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeEnvelope(w, http.StatusBadRequest, backend.Envelope{Message: "Malformed request body."})
		return false
	}
	return true
}

func writeEnvelope(w http.ResponseWriter, status int, env backend.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
