package handlers

import (
	"encoding/json"
	"net/http"
)

// Health reports process liveness. The knowledge agent is best-effort from
// the gateway's perspective, so health does not probe upstream.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
