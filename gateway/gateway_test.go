package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/distcache/distcache/cacheserver"
	"github.com/distcache/distcache/coordinator"
	"github.com/distcache/distcache/engine"
	"github.com/distcache/distcache/group"
	"github.com/distcache/distcache/ring"
)

func newTestRing() *ring.Ring {
	return ring.New(ring.DefaultReplicas, ring.MinReplicas, ring.MaxReplicas)
}

// startNode brings up a real cacheserver.Server registered against f, with
// one group named groupName backed by an empty LRU cache.
func startNode(t *testing.T, f *coordinator.Fake, groupName string) *cacheserver.Server {
	t.Helper()
	s := cacheserver.New("svc", "127.0.0.1:0", f)
	if err := s.ListenAndServe(context.Background()); err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })
	group.NewGroup(groupName, engine.NewLRU[string, []byte](16, nil), nil, nil)
	return s
}

func TestGateway_SetGetDeleteRoundTripThroughRealNode(t *testing.T) {
	group.ResetRegistryForTest()
	f := coordinator.NewFake()
	startNode(t, f, "g")

	gw, err := New(context.Background(), "svc", f, newTestRing(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/g/k", "application/json", strings.NewReader(`{"value":"v"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/g/k")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", resp.StatusCode)
	}
	var body responseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Value != "v" {
		t.Fatalf("Value = %q, want v", body.Value)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/g/k", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/g/k")
	if err != nil {
		t.Fatalf("GET after delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestGateway_GetOnMissingGroupReturns404(t *testing.T) {
	group.ResetRegistryForTest()
	f := coordinator.NewFake()
	startNode(t, f, "g")

	gw, err := New(context.Background(), "svc", f, newTestRing(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/nonexistent-group/k")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGateway_RoutingFailureWithNoNodesReturns500(t *testing.T) {
	group.ResetRegistryForTest()
	f := coordinator.NewFake() // nothing registered

	gw, err := New(context.Background(), "svc", f, newTestRing(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/g/k")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestGateway_SetWithInvalidJSONReturns400(t *testing.T) {
	group.ResetRegistryForTest()
	f := coordinator.NewFake()
	startNode(t, f, "g")

	gw, err := New(context.Background(), "svc", f, newTestRing(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/g/k", "application/json", strings.NewReader(`not json`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGateway_RefreshPicksUpNewlyRegisteredNode(t *testing.T) {
	group.ResetRegistryForTest()
	f := coordinator.NewFake()

	gw, err := New(context.Background(), "svc", f, newTestRing(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	// No nodes yet: routing fails.
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	resp, _ := http.Get(srv.URL + "/g/k")
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status before node exists = %d, want 500", resp.StatusCode)
	}

	startNode(t, f, "g")
	if err := gw.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	resp, err = http.Post(srv.URL+"/g/k", "application/json", strings.NewReader(`{"value":"v"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status after refresh = %d, want 200", resp.StatusCode)
	}
}
