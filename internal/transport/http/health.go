package http

import (
	"net/http"

	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

type healthResponse struct {
	Status     string             `json:"status"`
	Version    string             `json:"version"`
	Philosophy string             `json:"philosophy"`
	Rules      domain.SystemRules `json:"rules"`
}

// HealthHandler reports liveness along with the marketplace rules.
func HealthHandler(version string, rules domain.SystemRules) http.HandlerFunc {
	resp := healthResponse{
		Status:     "ok",
		Version:    version,
		Philosophy: domain.Philosophy,
		Rules:      rules,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
