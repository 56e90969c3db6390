package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	goPortal "github.com/MrEthical07/goPortal"
)

// flowInput is the union of the fields any wizard action reads.
type flowInput struct {
	Identification string `json:"identification,omitempty"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password,omitempty"`
	Confirm        string `json:"confirmPassword,omitempty"`
	CompanyID      string `json:"companyId,omitempty"`
	Code           string `json:"code,omitempty"`
	Index          int    `json:"index,omitempty"`
	Text           string `json:"text,omitempty"`
}

type flowResponse[S any] struct {
	ID       string `json:"id"`
	State    S      `json:"state"`
	Redirect string `json:"redirect,omitempty"`
	// RedirectAfterMs delays Redirect so the final status stays visible.
	RedirectAfterMs int64  `json:"redirectAfterMs,omitempty"`
	Error           string `json:"error,omitempty"`
}

func readInput(w http.ResponseWriter, r *http.Request) (flowInput, bool) {
	var in flowInput
	if r.ContentLength == 0 {
		return in, true
	}
	return in, decodeBody(w, r, &in)
}

/*
====================================
REGISTRATION
====================================
*/

func (s *Server) handleRegistrationStart(w http.ResponseWriter, _ *http.Request) {
	flow := s.portal.NewVerification()
	id := s.registrations.add(flow)
	writeJSON(w, http.StatusCreated, flowResponse[goPortal.VerificationState]{ID: id, State: flow.State()})
}

func (s *Server) handleRegistrationState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, ok := s.registrations.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "flow_not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, flowResponse[goPortal.VerificationState]{ID: id, State: flow.State()})
}

func (s *Server) handleRegistrationAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, ok := s.registrations.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "flow_not_found", "")
		return
	}
	in, ok := readInput(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	resp := flowResponse[goPortal.VerificationState]{ID: id}
	var err error

	switch chi.URLParam(r, "action") {
	case "identify":
		if err = flow.EditIdentification(in.Identification); err == nil {
			err = flow.Identify(ctx)
		}
	case "confirm-email":
		if err = flow.EditEmail(in.Email); err == nil {
			err = flow.ConfirmOwnership(ctx)
		}
	case "toggle-company":
		err = flow.ToggleCompany(in.CompanyID)
	case "request-access":
		err = flow.RequestAdditionalAccess(ctx)
	case "register":
		if err = flow.EditEmail(in.Email); err == nil {
			if err = flow.EditPasswords(in.Password, in.Confirm); err == nil {
				err = flow.SubmitNewUser(ctx)
			}
		}
	case "back":
		var exited bool
		if exited, err = flow.Back(); err == nil && exited {
			s.registrations.remove(id)
			resp.Redirect = goPortal.PathLogin
		}
	case "finish":
		if resp.Redirect, err = flow.Finish(); err == nil {
			s.registrations.remove(id)
		}
	default:
		writeError(w, http.StatusNotFound, "unknown_action", "")
		return
	}

	resp.State = flow.State()
	s.writeFlowResult(w, resp.State.Error, err, func(status int, code string) {
		resp.Error = code
		writeJSON(w, status, resp)
	})
}

/*
====================================
RECOVERY
====================================
*/

func (s *Server) handleRecoveryStart(w http.ResponseWriter, _ *http.Request) {
	flow := s.portal.NewRecovery()
	id := s.recoveries.add(flow)
	writeJSON(w, http.StatusCreated, flowResponse[goPortal.RecoveryState]{ID: id, State: flow.State()})
}

func (s *Server) handleRecoveryState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, ok := s.recoveries.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "flow_not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, flowResponse[goPortal.RecoveryState]{ID: id, State: flow.State()})
}

func (s *Server) handleRecoveryAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flow, ok := s.recoveries.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "flow_not_found", "")
		return
	}
	in, ok := readInput(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	resp := flowResponse[goPortal.RecoveryState]{ID: id}
	var err error

	switch chi.URLParam(r, "action") {
	case "email":
		if err = flow.EditEmail(in.Email); err == nil {
			err = flow.SubmitEmail(ctx)
		}
	case "resend":
		err = flow.Resend(ctx)
	case "digit":
		err = flow.TypeDigit(in.Index, in.Text)
	case "paste":
		err = flow.Paste(in.Index, in.Text)
	case "erase":
		err = flow.Erase(in.Index)
	case "code":
		if in.Code != "" {
			err = flow.Paste(0, in.Code)
		}
		if err == nil {
			err = flow.SubmitCode(ctx)
		}
	case "password":
		if err = flow.EditPasswords(in.Password, in.Confirm); err == nil {
			var done goPortal.Completion
			if done, err = flow.SubmitPassword(ctx); err == nil {
				s.recoveries.remove(id)
				resp.Redirect = done.Redirect
				resp.RedirectAfterMs = done.After.Milliseconds()
			}
		}
	case "back":
		var exited bool
		if exited, err = flow.Back(); err == nil && exited {
			s.recoveries.remove(id)
			resp.Redirect = goPortal.PathLogin
		}
	default:
		writeError(w, http.StatusNotFound, "unknown_action", "")
		return
	}

	resp.State = flow.State()
	s.writeFlowResult(w, resp.State.Error, err, func(status int, code string) {
		resp.Error = code
		writeJSON(w, status, resp)
	})
}

// writeFlowResult answers 200 on success. Failures keep the state in the body
// so the client can render the inline message next to the step.
func (s *Server) writeFlowResult(w http.ResponseWriter, inline string, err error, write func(status int, code string)) {
	if err == nil {
		write(http.StatusOK, "")
		return
	}
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.logger.Error("flow action failed", "error", err, "inline", inline)
	}
	write(status, code)
}
