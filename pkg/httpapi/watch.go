package httpapi

import (
	"encoding/json"
	"net/http"
)

func (s *Server) registerWatchRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v0/watchMode/start", s.startWatch)
	mux.HandleFunc("POST /api/v0/watchMode/stop", s.stopWatch)
	mux.HandleFunc("GET /api/v0/watchMode/status", s.watchStatus)
}

type startWatchRequest struct {
	ProjectName string `json:"projectName"`
}

func (s *Server) startWatch(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	var body startWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: "malformed request body"})
		return
	}
	proj, err := s.store.GetProject(body.ProjectName, false)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.watch.StartWatching(proj.Name(), proj.RootPath()); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.watch.GetWatchStatus())
}

func (s *Server) stopWatch(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	s.watch.StopWatchMode()
	writeJSON(w, s.logger, http.StatusOK, s.watch.GetWatchStatus())
}

func (s *Server) watchStatus(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.watch.GetWatchStatus())
}
