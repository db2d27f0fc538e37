package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradecore/model"
)

func (h *Handlers) apiListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := h.engine.ListNodes()
	if zone := r.URL.Query().Get("zone"); zone != "" {
		filtered := nodes[:0]
		for _, n := range nodes {
			if string(n.Zone) == zone {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}
	h.jsonOK(w, nodes)
}

func (h *Handlers) apiGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, n)
}

func (h *Handlers) apiSetNodeStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.NodeStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		h.jsonError(w, "invalid node status", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.engine.Registry().SetStatus(id, req.Status); err != nil {
		h.writeErr(w, err)
		return
	}
	n, err := h.engine.Registry().Get(id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, n)
}
