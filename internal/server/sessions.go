package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/profile"
	"github.com/engli-ai/engli/internal/session"
)

type moduleInfo struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Conversational bool   `json:"conversational"`
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	out := make([]moduleInfo, 0, len(modules.All()))
	for _, m := range modules.All() {
		out = append(out, moduleInfo{
			ID:             string(m),
			Title:          m.Title(),
			Conversational: m.Conversational(),
		})
	}
	JSON(w, http.StatusOK, map[string]any{"modules": out})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var p profile.UserProfile
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &p); err != nil {
			Error(w, http.StatusBadRequest, "invalid profile: "+err.Error())
			return
		}
	}

	sess := s.sessions.Create(p)
	JSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateProfile replaces the profile. The active conversation is
// re-seeded: the system prompt embeds profile details, so stale history
// would contradict the new profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var p profile.UserProfile
	if err := decodeJSON(r, &p); err != nil {
		Error(w, http.StatusBadRequest, "invalid profile: "+err.Error())
		return
	}

	sess.Do(func(state *session.State) {
		*state.Profile = p
		state.Conversation.Reset(s.registry, p)
	})
	JSON(w, http.StatusOK, sess.Snapshot())
}

type selectModuleRequest struct {
	Module string `json:"module"`
}

func (s *Server) handleSelectModule(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req selectModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	m, err := modules.Parse(req.Module)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var title string
	sess.Do(func(state *session.State) {
		state.Conversation.Select(m, s.registry, *state.Profile)
		title = m.DisplayTitle(*state.Profile)
	})

	JSON(w, http.StatusOK, map[string]any{
		"module": string(m),
		"title":  title,
		"voice":  m.Voice(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.Do(func(state *session.State) {
		state.Conversation.Reset(s.registry, *state.Profile)
	})
	JSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := sess.Snapshot()
	JSON(w, http.StatusOK, map[string]any{
		"module":   snap.Module,
		"messages": snap.Messages,
	})
}
