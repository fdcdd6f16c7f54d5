package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

type syncRequest struct {
	SessionIDs []string `json:"sessionIds"`
}

// SyncHistoricalPayments accepts {"sessionIds": [...]} or a bare JSON array.
func (h *Handler) SyncHistoricalPayments(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	ids, err := parseSessionIDs(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "sessionIds is required.")
		return
	}

	writeJSON(w, http.StatusOK, h.checkout.ReconcileSessions(r.Context(), ids))
}

func parseSessionIDs(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)
	var ids []string
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &ids); err != nil {
			return nil, err
		}
	} else {
		var req syncRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		ids = req.SessionIDs
	}
	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}
	return ids, nil
}
