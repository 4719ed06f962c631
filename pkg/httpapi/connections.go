package httpapi

import (
	"net/http"

	"github.com/ekaya-inc/ekaya-engine/pkg/connections"
)

func (s *Server) registerConnectionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v0/projects/{p}/connections", s.listConnections)
	mux.HandleFunc("GET /api/v0/projects/{p}/connections/{conn}", s.getConnection)
	mux.HandleFunc("GET /api/v0/projects/{p}/connections/{conn}/test", s.testConnection)
	mux.HandleFunc("GET /api/v0/projects/{p}/connections/{conn}/sqlSource", s.connSQLSource)
	mux.HandleFunc("GET /api/v0/projects/{p}/connections/{conn}/tableSource", s.connTableSource)
	mux.HandleFunc("GET /api/v0/projects/{p}/connections/{conn}/queryData", s.connQueryData)
	mux.HandleFunc("GET /api/v0/projects/{p}/connections/{conn}/temporaryTable", s.connTemporaryTable)
}

func (s *Server) registry(w http.ResponseWriter, r *http.Request) (*connections.Registry, bool) {
	proj, err := s.store.GetProject(r.PathValue("p"), false)
	if err != nil {
		writeError(w, s.logger, err)
		return nil, false
	}
	return proj.Connections(), true
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.logger, http.StatusOK, reg.Snapshots())
}

func (s *Server) getConnection(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	snap, err := reg.SnapshotOf(r.PathValue("conn"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, snap)
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	if err := reg.Test(r.Context(), r.PathValue("conn")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) connSQLSource(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	schema, err := reg.SQLSource(r.Context(), r.PathValue("conn"), r.URL.Query().Get("sqlStatement"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"schema": schema})
}

func (s *Server) connTableSource(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	schema, err := reg.TableSource(r.Context(), r.PathValue("conn"), q.Get("tableKey"), q.Get("tablePath"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"schema": schema})
}

func (s *Server) connQueryData(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	result, err := reg.QueryData(r.Context(), r.PathValue("conn"), r.URL.Query().Get("sqlStatement"), connections.QueryOptions{})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

func (s *Server) connTemporaryTable(w http.ResponseWriter, r *http.Request) {
	if rejectVersionID(w, s.logger, r) {
		return
	}
	reg, ok := s.registry(w, r)
	if !ok {
		return
	}
	name, err := reg.TemporaryTable(r.Context(), r.PathValue("conn"), r.URL.Query().Get("sqlStatement"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"tableName": name})
}
