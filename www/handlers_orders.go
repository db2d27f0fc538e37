package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradecore/model"
	"tradecore/orders"
)

func (h *Handlers) apiListOrders(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(r)
	if !ok {
		h.jsonError(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	list, err := h.engine.ListOrders()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make([]model.Order, 0, len(list))
	for _, o := range list {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	h.jsonOK(w, out)
}

func (h *Handlers) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	o, err := h.engine.CreateOrder(req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonCreated(w, o)
}

func (h *Handlers) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.engine.GetOrder(chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.OrderStatus `json:"status"`
		Detail string            `json:"detail"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	o, err := h.engine.Orders().UpdateStatus(chi.URLParam(r, "id"), req.Status, req.Detail)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, o)
}
