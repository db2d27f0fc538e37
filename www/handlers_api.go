package www

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tradecore/model"
	"tradecore/store"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"messaging": h.engine.MessagingConnected(),
		"redis":     h.engine.NodeState().Enabled(),
		"pending":   h.engine.Simulator().Pending(),
	})
}

func (h *Handlers) apiSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.engine.Summary()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, sum)
}

func (h *Handlers) apiOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.engine.Metrics().OrdersByStatus()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[string(s)] = n
	}
	h.jsonOK(w, out)
}

func (h *Handlers) apiNodeState(w http.ResponseWriter, r *http.Request) {
	states, err := h.engine.NodeState().GetAllNodeStates()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, states)
}

// statusFilter parses ?status= for list endpoints. ok is false when the
// value is present but not a known order status.
func statusFilter(r *http.Request) (model.OrderStatus, bool) {
	s := model.OrderStatus(r.URL.Query().Get("status"))
	if s == "" {
		return "", true
	}
	return s, s.Valid()
}

// apiAuditLog lists recent audit rows. Without a database there is no audit
// trail and the list is empty.
func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	db := h.engine.DB()
	if db == nil {
		h.jsonOK(w, []*store.AuditEntry{})
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := db.ListAuditLog(limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*store.AuditEntry{}
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiEntityAudit(w http.ResponseWriter, r *http.Request) {
	db := h.engine.DB()
	if db == nil {
		h.jsonOK(w, []*store.AuditEntry{})
		return
	}
	entries, err := db.ListEntityAudit(chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*store.AuditEntry{}
	}
	h.jsonOK(w, entries)
}
