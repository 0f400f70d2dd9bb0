package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

func TestNotFoundHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/missing", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, codeNotFound, resp.Code)
	assert.Equal(t, "no route for GET /missing", resp.Error)
}

func TestUnknownSubresourceIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "admin-1", domain.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/batches/b1/unknown", admin, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
