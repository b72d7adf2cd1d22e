package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestRegisterIsOptIn(t *testing.T) {
	router := mux.NewRouter()
	if Register(router, Config{}) {
		t.Fatalf("expected pprof to stay unmounted by default")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, PprofPrefix+"/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without pprof, got %d", resp.Code)
	}
}

func TestRegisterMountsIndex(t *testing.T) {
	router := mux.NewRouter()
	if !Register(router, Config{EnablePprof: true}) {
		t.Fatalf("expected pprof to be mounted")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, PprofPrefix+"/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index, got %d", resp.Code)
	}
}
