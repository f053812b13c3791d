package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/storedeskapp/storedesk/internal/db"
	"github.com/storedeskapp/storedesk/internal/validation"
)

// UpdateOrderStatus handles PUT /api/orders/{id}/status.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status     string `json:"status"`
		TrackingID string `json:"tracking_id"`
		SendEmail  bool   `json:"send_email"`
	}
	if err := h.decodeJSON(r, &payload); err != nil {
		h.loggerFromContext(r.Context()).Warn("rejected malformed status update body", "error", err)
		h.writeJSON(r, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result := h.orderService.UpdateOrderStatus(r.Context(), validation.UpdateOrderStatusRequest{
		OrderID:    mux.Vars(r)["id"],
		Status:     payload.Status,
		TrackingID: payload.TrackingID,
		SendEmail:  payload.SendEmail,
	})
	h.writeResult(r, w, result)
}

// DeleteOrder handles DELETE /api/orders/{id}.
func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.writeResult(r, w, h.orderService.DeleteOrder(r.Context(), mux.Vars(r)["id"]))
}

// MarkOrderPaid handles POST /api/orders/{id}/paid.
func (h *Handlers) MarkOrderPaid(w http.ResponseWriter, r *http.Request) {
	h.writeResult(r, w, h.orderService.MarkOrderPaid(r.Context(), mux.Vars(r)["id"]))
}

// SendBulkConfirmations handles POST /api/orders/confirmations/sweep.
func (h *Handlers) SendBulkConfirmations(w http.ResponseWriter, r *http.Request) {
	h.writeResult(r, w, h.orderService.SendBulkConfirmations(r.Context()))
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, db.ErrNotFound) {
		h.writeJSON(r, w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to load order", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "failed to load order"})
		return
	}
	h.writeJSON(r, w, http.StatusOK, order)
}

// ListOrders handles GET /api/orders.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	orders, err := h.orderService.ListOrders(r.Context(), limit, offset)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to list orders", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "failed to list orders"})
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"orders": orders})
}

// ListCustomers handles GET /api/customers.
func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	contacts, err := h.customerResolver.ListContacts(r.Context(), limit, offset)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to list customers", "error", err)
		h.writeJSON(r, w, http.StatusInternalServerError, map[string]string{"error": "failed to list customers"})
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"customers": contacts})
}

func paginationParams(r *http.Request) (limit, offset int64) {
	query := r.URL.Query()
	limit, _ = strconv.ParseInt(query.Get("limit"), 10, 64)
	offset, _ = strconv.ParseInt(query.Get("offset"), 10, 64)
	return limit, offset
}
