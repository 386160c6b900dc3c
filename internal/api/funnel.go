package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/httputil"
	"github.com/kartoza/match-odds/internal/particles"
)

type estimateResponse struct {
	funnel.Estimate
	Verdict        funnel.Verdict `json:"verdict"`
	MatchParticles int            `json:"matchParticles"`
}

type progressRequest struct {
	answersRequest
	Answered int      `json:"answered"`
	Previous *float64 `json:"previous,omitempty"`
}

type progressResponse struct {
	Percentage      float64 `json:"percentage"`
	Changed         bool    `json:"changed"`
	ActiveParticles int     `json:"activeParticles"`
}

type stageInfo struct {
	Key       funnel.StageKey `json:"key"`
	Question  int             `json:"question"`
	FinalOnly bool            `json:"finalOnly"`
}

// handleListQuestions returns the wizard questions in order
func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, funnel.Questions())
}

// handleQuestionAnswered checks whether the posted answers satisfy one question
func (h *Handler) handleQuestionAnswered(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index >= funnel.QuestionCount() {
		httputil.RespondError(w, http.StatusNotFound, "no such question")
		return
	}

	var req answersRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	answered := funnel.IsAnswered(req.Answers, index) || (index == funnel.QuestionLocation && req.City != "")
	resp := map[string]interface{}{"index": index, "answered": answered}
	if !answered {
		resp["message"] = funnel.Questions()[index].Required
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// handleStages returns the active stage table and evaluation order
func (h *Handler) handleStages(w http.ResponseWriter, r *http.Request) {
	var order []stageInfo
	for _, s := range funnel.Stages() {
		order = append(order, stageInfo{Key: s.Key, Question: s.Question, FinalOnly: s.FinalOnly})
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"table":  h.est().Table(),
		"stages": order,
	})
}

// handleEstimate runs the final estimate over the posted answers
func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !h.resolveCity(r.Context(), w, &req) {
		return
	}

	httputil.RespondJSON(w, http.StatusOK, h.estimate(req.Answers))
}

// handleProgress returns the live percentage for the answered questions
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !h.resolveCity(r.Context(), w, &req.answersRequest) {
		return
	}

	p := h.est().Progress(req.Answers, req.Answered)
	httputil.RespondJSON(w, http.StatusOK, progressResponse{
		Percentage:      p,
		Changed:         req.Previous == nil || funnel.Changed(*req.Previous, p),
		ActiveParticles: particles.ActiveCount(p, particles.Total),
	})
}

func (h *Handler) estimate(a funnel.Answers) estimateResponse {
	est := h.est().Estimate(a)

	if ce := h.logger.Check(zap.DebugLevel, "estimate"); ce != nil {
		fields := []zap.Field{
			zap.String("tableVersion", est.TableVersion),
			zap.Int64("totalMatches", est.TotalMatches),
			zap.String("percentage", est.Percentage),
		}
		for _, s := range est.Stages {
			fields = append(fields, zap.Float64(string(s.Key), s.Multiplier))
		}
		ce.Write(fields...)
	}

	return estimateResponse{
		Estimate:       est,
		Verdict:        funnel.VerdictFor(est.Raw),
		MatchParticles: particles.MatchCount(est.Raw, particles.Total),
	}
}
