package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
)

func (s *Server) registerProjectRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v0/projects", s.listProjects)
	mux.HandleFunc("POST /api/v0/projects", s.addProject)
	mux.HandleFunc("GET /api/v0/projects/{p}", s.getProject)
	mux.HandleFunc("PUT /api/v0/projects/{p}", s.updateProject)
	mux.HandleFunc("DELETE /api/v0/projects/{p}", s.deleteProject)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.store.ListProjects())
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reload, _ := strconv.ParseBool(r.URL.Query().Get("reload"))
	proj, err := s.store.GetProject(r.PathValue("p"), reload)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, proj.GetProjectMetadata())
}

func (s *Server) addProject(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	var meta catalog.ProjectMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: "malformed request body"})
		return
	}
	if err := s.store.AddProject(r.Context(), meta); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "created"})
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	var meta catalog.ProjectMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: "malformed request body"})
		return
	}
	meta.Name = r.PathValue("p")
	if err := s.store.UpdateProject(r.Context(), meta); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	if err := s.store.DeleteProject(r.PathValue("p")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "deleted"})
}
