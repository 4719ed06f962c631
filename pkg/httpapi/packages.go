package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
)

func (s *Server) registerPackageRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v0/projects/{p}/packages", s.listPackages)
	mux.HandleFunc("POST /api/v0/projects/{p}/packages", s.addPackage)
	mux.HandleFunc("GET /api/v0/projects/{p}/packages/{pkg}", s.getPackage)
	mux.HandleFunc("PUT /api/v0/projects/{p}/packages/{pkg}", s.updatePackage)
	mux.HandleFunc("DELETE /api/v0/projects/{p}/packages/{pkg}", s.deletePackage)
	mux.HandleFunc("GET /api/v0/projects/{p}/packages/{pkg}/models", s.listModels)
	mux.HandleFunc("GET /api/v0/projects/{p}/packages/{pkg}/models/{modelPath...}", s.getModel)
	mux.HandleFunc("GET /api/v0/projects/{p}/packages/{pkg}/queryResults/{modelPath...}", s.getQueryResults)
	mux.HandleFunc("GET /api/v0/projects/{p}/packages/{pkg}/databases", s.listDatabases)
	mux.HandleFunc("GET /api/v0/projects/{p}/packages/{pkg}/schedules", s.listSchedules)
}

func (s *Server) getProjectAndPackage(w http.ResponseWriter, r *http.Request, reload bool) (*catalog.Package, bool) {
	proj, err := s.store.GetProject(r.PathValue("p"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return nil, false
	}
	pkg, err := proj.GetPackage(r.PathValue("pkg"), reload)
	if err != nil {
		writeError(w, s.logger, err)
		return nil, false
	}
	return pkg, true
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	proj, err := s.store.GetProject(r.PathValue("p"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, proj.ListPackages())
}

func (s *Server) getPackage(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reload, _ := strconv.ParseBool(r.URL.Query().Get("reload"))
	pkg, ok := s.getProjectAndPackage(w, r, reload)
	if !ok {
		return
	}
	writeJSON(w, s.logger, http.StatusOK, pkg.GetPackageMetadata())
}

func (s *Server) addPackage(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	proj, err := s.store.GetProject(r.PathValue("p"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var meta catalog.PackageMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: "malformed request body"})
		return
	}
	if err := proj.AddPackage(r.Context(), meta); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "created"})
}

func (s *Server) updatePackage(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	proj, err := s.store.GetProject(r.PathValue("p"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var meta catalog.PackageMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: "malformed request body"})
		return
	}
	meta.Name = r.PathValue("pkg")
	if err := proj.UpdatePackage(r.Context(), meta); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) deletePackage(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	proj, err := s.store.GetProject(r.PathValue("p"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := proj.DeletePackage(r.PathValue("pkg")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	pkg, ok := s.getProjectAndPackage(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"models":    pkg.ListModels(),
		"notebooks": pkg.ListNotebooks(),
	})
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	pkg, ok := s.getProjectAndPackage(w, r, false)
	if !ok {
		return
	}
	model, err := pkg.GetModel(r.PathValue("modelPath"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if model == nil {
		writeError(w, s.logger, apperrors.NotFoundModel(r.PathValue("modelPath")))
		return
	}
	if model.Kind() == catalog.KindNotebook {
		nb, err := model.GetNotebook(r.Context(), r.PathValue("p"))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		writeJSON(w, s.logger, http.StatusOK, nb)
		return
	}
	compiled, err := model.GetModel(r.Context(), r.PathValue("p"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, compiled)
}

func (s *Server) getQueryResults(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	q := r.URL.Query()
	req := malloyrt.QueryRequest{
		Query:      q.Get("query"),
		QueryName:  q.Get("queryName"),
		SourceName: q.Get("sourceName"),
	}
	result, err := catalog.ExecuteQuery(r.Context(), s.store, r.PathValue("p"), r.PathValue("pkg"), r.PathValue("modelPath"), req)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

func (s *Server) listDatabases(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	pkg, ok := s.getProjectAndPackage(w, r, false)
	if !ok {
		return
	}
	dbs, err := pkg.ListDatabases()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, dbs)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	pkg, ok := s.getProjectAndPackage(w, r, false)
	if !ok {
		return
	}
	schedules, err := pkg.ListSchedules()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, schedules)
}
