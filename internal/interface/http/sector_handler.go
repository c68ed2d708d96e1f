package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"sector-flow/internal/domain/taxonomy"
)

type sectorRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

func (s *Server) handleListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.sectors.ListSectors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sectors": sectors,
	})
}

func (s *Server) handleCreateSector(w http.ResponseWriter, r *http.Request) {
	var req sectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid json body")
		return
	}

	id, err := s.sectors.CreateSector(r.Context(), taxonomy.CustomSector{
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      id,
	})
}

func (s *Server) handleGetSector(w http.ResponseWriter, r *http.Request) {
	sector, err := s.sectors.GetSector(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSectorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sector":  sector,
	})
}

func (s *Server) handleUpdateSector(w http.ResponseWriter, r *http.Request) {
	var req sectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid json body")
		return
	}

	err := s.sectors.UpdateSector(r.Context(), taxonomy.CustomSector{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
	})
	if err != nil {
		s.writeSectorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteSector(w http.ResponseWriter, r *http.Request) {
	if err := s.sectors.DeleteSector(r.Context(), r.PathValue("id")); err != nil {
		s.writeSectorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) writeSectorError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, errCodeNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
}
