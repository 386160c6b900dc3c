package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/httputil"
	"github.com/kartoza/match-odds/internal/particles"
	"github.com/kartoza/match-odds/internal/sessions"
)

// sessionView is a session plus what the wizard needs to draw it.
type sessionView struct {
	*sessions.Session
	Completed            bool              `json:"completed"`
	Question             *funnel.Question  `json:"question,omitempty"`
	Progress             float64           `json:"progress"`
	Changed              bool              `json:"changed"`
	ActiveParticles      int               `json:"activeParticles"`
	AttractivenessRating int               `json:"attractivenessRating"`
	Estimate             *estimateResponse `json:"estimate,omitempty"`
}

func (h *Handler) view(sess *sessions.Session, changed bool) sessionView {
	p := h.est().Progress(sess.Answers, sess.Current)
	v := sessionView{
		Session:              sess,
		Completed:            sess.Completed(),
		Progress:             p,
		Changed:              changed,
		ActiveParticles:      particles.ActiveCount(p, particles.Total),
		AttractivenessRating: sess.Answers.AttractivenessRating(),
	}
	if v.Completed {
		est := h.estimate(sess.Answers)
		v.Estimate = &est
	} else {
		q := funnel.Questions()[sess.Current]
		v.Question = &q
	}
	return v
}

func (h *Handler) sessionsAvailable(w http.ResponseWriter) bool {
	if h.sessions == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "session store not available")
		return false
	}
	return true
}

func (h *Handler) respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessions.ErrUnanswered):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("session store failed", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "session store failed")
	}
}

// mutate applies fn to the session in the URL, then records the new progress
// as rendered when it moved by more than the change threshold.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(*sessions.Session) error) {
	if !h.sessionsAvailable(w) {
		return
	}

	est := h.est()
	var changed bool
	sess, err := h.sessions.Update(mux.Vars(r)["id"], func(s *sessions.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		changed = s.Render(est.Progress(s.Answers, s.Current))
		return nil
	})
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.view(sess, changed))
}

// handleListSessions returns all sessions, newest first
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !h.sessionsAvailable(w) {
		return
	}
	list, err := h.sessions.List()
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}

// handleCreateSession starts a new wizard session
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionsAvailable(w) {
		return
	}
	sess, err := h.sessions.Create()
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, h.view(sess, true))
}

// handleGetSession returns one session
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionsAvailable(w) {
		return
	}
	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.view(sess, false))
}

// handleDeleteSession removes a session
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionsAvailable(w) {
		return
	}
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		h.respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateAnswers replaces a session's answers
func (h *Handler) handleUpdateAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !h.resolveCity(r.Context(), w, &req) {
		return
	}

	h.mutate(w, r, func(s *sessions.Session) error {
		s.SetAnswers(req.Answers)
		return nil
	})
}

// handleSessionNext moves to the next question
func (h *Handler) handleSessionNext(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*sessions.Session).Next)
}

// handleSessionBack returns to the previous question
func (h *Handler) handleSessionBack(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *sessions.Session) error {
		s.Back()
		return nil
	})
}

// handleSessionReset starts the session over
func (h *Handler) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *sessions.Session) error {
		s.Reset()
		return nil
	})
}

// handleSessionEstimate runs the final estimate on a session's answers,
// finished or not
func (h *Handler) handleSessionEstimate(w http.ResponseWriter, r *http.Request) {
	if !h.sessionsAvailable(w) {
		return
	}
	sess, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.estimate(sess.Answers))
}
