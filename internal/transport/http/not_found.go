package http

import (
	"net/http"

	"go.uber.org/zap"
)

// NotFoundHandler answers any path the router does not know with a JSON 404.
func NotFoundHandler(logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("no route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		writeError(w, http.StatusNotFound, codeNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
}
