package httpapi

import (
	"net/http"
	"strconv"

	appflowgraph "sector-flow/internal/application/flowgraph"
	"sector-flow/internal/domain/flowgraph"
	"sector-flow/internal/domain/taxonomy"
)

// handleFlowGraph 產生資金流向圖。
// 參數：mode（simple/detailed，預設 simple）、date、taxonomy、top_n（每側板塊數）。
func (s *Server) handleFlowGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode, err := flowgraph.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	date, err := parseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	tax, err := taxonomy.Parse(q.Get("taxonomy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	topN := 0
	if raw := q.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid top_n")
			return
		}
		topN = n
	}

	out, err := s.graphUC.Execute(r.Context(), appflowgraph.BuildInput{
		Date: date,
		Mode: mode,
		Tax:  tax,
		TopN: topN,
	})
	if err != nil {
		s.writeComputeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"run_id":     out.RunID,
		"taxonomy":   string(out.Taxonomy),
		"partial":    out.Partial,
		"trade_date": date.Format("2006-01-02"),
		"mode":       string(mode),
		"nodes":      out.Graph.Nodes,
		"edges":      out.Graph.Edges,
	})
}
