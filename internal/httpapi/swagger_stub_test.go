//go:build !swagger

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dualserve/pkg/types"
)

func TestSwaggerDisabledByDefault(t *testing.T) {
	r := NewMux(&mockSupervisor{}, &mockChecker{}, "Both")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v (%q)", err, w.Body.String())
	}
	if er.Code != http.StatusNotFound || !strings.Contains(er.Error, "-tags=swagger") {
		t.Fatalf("unexpected payload: %+v", er)
	}

	// the rest of the surface is unaffected
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
}
