package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"matter-go-home/internal/automation"
)

// scripts returns the script manager, writing a 503 when automation is off.
func (s *Server) scripts(w http.ResponseWriter) (*automation.Manager, bool) {
	if s.autoEngine == nil || s.autoEngine.Manager() == nil {
		s.writeError(w, http.StatusServiceUnavailable, "automations not available")
		return nil, false
	}
	return s.autoEngine.Manager(), true
}

// writeScriptError maps script manager errors to HTTP statuses.
func (s *Server) writeScriptError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, automation.ErrScriptNotFound):
		s.writeError(w, http.StatusNotFound, "script not found")
	case errors.Is(err, automation.ErrInvalidScriptID), errors.Is(err, automation.ErrSyntax):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type scriptView struct {
	*automation.Script
	Running bool `json:"running"`
}

func (s *Server) view(sc *automation.Script) scriptView {
	return scriptView{Script: sc, Running: s.autoEngine.IsRunning(sc.ID)}
}

func (s *Server) handleAPIListAutomations(w http.ResponseWriter, r *http.Request) {
	if s.autoEngine == nil {
		s.writeJSON(w, http.StatusOK, []any{})
		return
	}
	mgr, ok := s.scripts(w)
	if !ok {
		return
	}
	scripts, err := mgr.List()
	if err != nil {
		s.writeScriptError(w, "list scripts", err)
		return
	}
	out := make([]scriptView, 0, len(scripts))
	for _, sc := range scripts {
		out = append(out, s.view(sc))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIGetAutomation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.scripts(w)
	if !ok {
		return
	}
	script, err := mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeScriptError(w, "get script", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(script))
}

type saveAutomationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LuaCode     string `json:"lua_code"`
	Enabled     bool   `json:"enabled"`
}

func decodeSaveRequest(w http.ResponseWriter, r *http.Request) (*saveAutomationRequest, error) {
	var req saveAutomationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Server) handleAPICreateAutomation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.scripts(w)
	if !ok {
		return
	}
	req, err := decodeSaveRequest(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	saved, err := mgr.Save(&automation.Script{
		Meta: automation.ScriptMeta{
			Name:        req.Name,
			Description: req.Description,
			Enabled:     req.Enabled,
		},
		LuaCode: req.LuaCode,
	})
	if err != nil {
		s.writeScriptError(w, "create script", err)
		return
	}

	if saved.Meta.Enabled {
		if err := s.autoEngine.ReloadScript(saved.ID); err != nil {
			s.logger.Error("reload script after create", "id", saved.ID, "err", err)
		}
	}
	s.writeJSON(w, http.StatusCreated, s.view(saved))
}

func (s *Server) handleAPIUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.scripts(w)
	if !ok {
		return
	}
	existing, err := mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeScriptError(w, "get script", err)
		return
	}
	req, err := decodeSaveRequest(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		existing.Meta.Name = req.Name
	}
	existing.Meta.Description = req.Description
	existing.Meta.Enabled = req.Enabled
	existing.LuaCode = req.LuaCode

	saved, err := mgr.Save(existing)
	if err != nil {
		s.writeScriptError(w, "update script", err)
		return
	}
	if err := s.autoEngine.ReloadScript(saved.ID); err != nil {
		s.logger.Error("reload script after update", "id", saved.ID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, s.view(saved))
}

func (s *Server) handleAPIDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.scripts(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	s.autoEngine.StopScript(id)
	if err := mgr.Delete(id); err != nil {
		s.writeScriptError(w, "delete script", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPIRunAutomation runs a saved script once, or the lua_code of the
// body when id is "_inline".
func (s *Server) handleAPIRunAutomation(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.scripts(w); !ok {
		return
	}

	id := r.PathValue("id")
	if id == "_inline" {
		var req struct {
			LuaCode string `json:"lua_code"`
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.writeJSON(w, http.StatusOK, s.autoEngine.RunLuaCode(req.LuaCode))
		return
	}
	s.writeJSON(w, http.StatusOK, s.autoEngine.RunScript(id))
}

func (s *Server) handleAPIToggleAutomation(w http.ResponseWriter, r *http.Request) {
	mgr, ok := s.scripts(w)
	if !ok {
		return
	}
	script, err := mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeScriptError(w, "get script", err)
		return
	}

	script.Meta.Enabled = !script.Meta.Enabled
	saved, err := mgr.Save(script)
	if err != nil {
		s.writeScriptError(w, "toggle script", err)
		return
	}

	if saved.Meta.Enabled {
		if err := s.autoEngine.ReloadScript(saved.ID); err != nil {
			s.logger.Error("reload script after toggle", "id", saved.ID, "err", err)
		}
	} else {
		s.autoEngine.StopScript(saved.ID)
	}
	s.writeJSON(w, http.StatusOK, s.view(saved))
}
