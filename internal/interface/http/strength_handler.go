package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/taxonomy"
	"sector-flow/internal/infrastructure/external/tushare"
)

// handleStrength 整批查詢板塊強度，結果由快取或即時計算取得。
// 參數：date（預設當日）、taxonomy（industry/concept/custom，預設 industry）、
// force=true 時停用快取重新計算。
func (s *Server) handleStrength(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	mode, err := taxonomy.Parse(r.URL.Query().Get("taxonomy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "true"

	out, err := s.computeUC.Execute(r.Context(), appstrength.ComputeInput{
		Date:  date,
		Mode:  mode,
		Force: force,
	})
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStrengthResponse(out))
}

// handleHistory 查詢單一板塊的歷史強度，新到舊。
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sectorID := r.PathValue("id")
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.computeUC.History(r.Context(), sectorID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sector_id": sectorID,
		"history":   toHistoryPayload(entries),
	})
}

// handleInvalidate 停用板塊當日快取，下次查詢重新計算。
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	sectorID := r.PathValue("id")
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	if err := s.computeUC.Invalidate(r.Context(), sectorID, date); err != nil {
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sector_id": sectorID,
		"date":      date.Format("2006-01-02"),
	})
}

func (s *Server) writeComputeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, taxonomy.ErrNoTaxonomyAvailable):
		writeError(w, http.StatusNotFound, errCodeNoData, "no sector taxonomy available for the requested date")
	case errors.Is(err, tushare.ErrRateLimited):
		writeError(w, http.StatusServiceUnavailable, errCodeUpstreamLimited, "quote provider rate limited, try again later")
	default:
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
	}
}
