package www

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tradecore/model"
)

type agreementRequest struct {
	NodeA     string          `json:"node_a"`
	NodeB     string          `json:"node_b"`
	Resource  string          `json:"resource"`
	Rate      float64         `json:"rate"`
	Volume    float64         `json:"volume"`
	Frequency model.Frequency `json:"frequency"`
	// NextDue defaults to now, so the first exchange fires on the next tick.
	NextDue *time.Time `json:"next_due,omitempty"`
}

func (h *Handlers) apiListAgreements(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Exchange().List()
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if list == nil {
		list = []model.Agreement{}
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req agreementRequest
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	due := time.Now().UTC()
	if req.NextDue != nil {
		due = *req.NextDue
	}
	a, err := h.engine.Exchange().Register(model.Agreement{
		NodeA:     req.NodeA,
		NodeB:     req.NodeB,
		Resource:  req.Resource,
		Rate:      req.Rate,
		Volume:    req.Volume,
		Frequency: req.Frequency,
		NextDue:   due,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonCreated(w, a)
}

func (h *Handlers) apiGetAgreement(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.Exchange().Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, a)
}

func (h *Handlers) apiCancelAgreement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Exchange().Cancel(id); err != nil {
		h.writeErr(w, err)
		return
	}
	a, err := h.engine.Exchange().Get(id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonOK(w, a)
}
