package server

import (
	"net/http"
	"strings"

	"github.com/engli-ai/engli/internal/modules"
)

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

// handleTranslate is the one-shot translation utility. With no target
// language it translates into English, which is what the Translation
// module does for mother-tongue input.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "English"
	}

	translated, err := s.translator.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"text":            req.Text,
		"target_language": req.TargetLanguage,
		"translated":      translated,
	})
}

type pronounceRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// handlePronounce synthesizes the given text so the learner can hear
// the correct pronunciation. Responds with raw MP3 audio.
func (s *Server) handlePronounce(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		Error(w, http.StatusServiceUnavailable, "speech synthesis not configured")
		return
	}

	var req pronounceRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Voice == "" {
		req.Voice = modules.VoiceDefault
	}

	audio, err := s.synth.Speak(r.Context(), req.Text, req.Voice)
	if err != nil {
		s.logger.Error("synthesis failed", "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		s.logger.Warn("failed to write audio response", "error", err)
	}
}
