package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// setRequestBody is the POST body shape: {"value": "..."}.
type setRequestBody struct {
	Value string `json:"value"`
}

type responseBody struct {
	Group string `json:"group"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Handler builds the Go 1.22+ pattern-based ServeMux routing table:
// GET/POST/DELETE on /{group}/{key}.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{group}/{key}", g.handleGet)
	mux.HandleFunc("POST /{group}/{key}", g.handleSet)
	mux.HandleFunc("DELETE /{group}/{key}", g.handleDelete)
	return mux
}

func (g *Gateway) handleGet(w http.ResponseWriter, r *http.Request) {
	group, key := r.PathValue("group"), r.PathValue("key")

	client, ok := g.clientFor(key)
	if !ok {
		logrus.WithField("key", key).Error("gateway: no available cache nodes")
		http.Error(w, "no available cache nodes", http.StatusInternalServerError)
		return
	}
	value, found := client.Get(group, key)
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, responseBody{Group: group, Key: key, Value: string(value)})
}

func (g *Gateway) handleSet(w http.ResponseWriter, r *http.Request) {
	group, key := r.PathValue("group"), r.PathValue("key")

	var body setRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	client, ok := g.clientFor(key)
	if !ok {
		logrus.WithField("key", key).Error("gateway: no available cache nodes")
		http.Error(w, "no available cache nodes", http.StatusInternalServerError)
		return
	}
	// client.Set collapses an unknown-group response and a transport/RPC
	// failure into the same bool, so this 404 is also returned for a
	// dropped connection to an otherwise-healthy node. Distinguishing
	// them needs a richer error return from peer.Client, not attempted
	// here.
	if ok := client.Set(group, key, []byte(body.Value)); !ok {
		http.Error(w, "set failed", http.StatusNotFound)
		return
	}
	writeJSON(w, responseBody{Group: group, Key: key, Value: body.Value})
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	group, key := r.PathValue("group"), r.PathValue("key")

	client, ok := g.clientFor(key)
	if !ok {
		logrus.WithField("key", key).Error("gateway: no available cache nodes")
		http.Error(w, "no available cache nodes", http.StatusInternalServerError)
		return
	}
	// Same ambiguity as handleSet: a false here could be a genuine miss
	// or a transport failure against the owning node.
	if ok := client.Delete(group, key); !ok {
		http.Error(w, "delete failed", http.StatusNotFound)
		return
	}
	writeJSON(w, responseBody{Group: group, Key: key})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
