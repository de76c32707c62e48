package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// TriggerPaths maps each trigger kind to the path it is posted on.
var TriggerPaths = map[domain.TriggerKind]string{
	domain.KindCompetitorPriceUpdate:   "/v1/triggers/competitor-price",
	domain.KindInventoryChange:         "/v1/triggers/inventory-change",
	domain.KindPurchaseSelectionInsert: "/v1/triggers/purchase-selection",
	domain.KindSeasonalDiscountRequest: "/v1/triggers/seasonal-discount",
	domain.KindSeasonalSchedule:        "/v1/triggers/seasonal-schedule",
}

// A TriggersHandler passes raw trigger payloads to the router and mirrors
// its response as the HTTP status and body.
type TriggersHandler struct {
	handler port.TriggerHandler
}

func RegisterTriggers(mux *http.ServeMux, handler port.TriggerHandler) {
	h := TriggersHandler{handler}
	for kind, path := range TriggerPaths {
		mux.HandleFunc("POST "+path, h.PostTrigger(kind))
	}
}

func (h TriggersHandler) PostTrigger(kind domain.TriggerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "TriggersHandler.PostTrigger"
		log := slog.With("op", op, "kind", kind)

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, log, http.StatusBadRequest, ErrorBody{"unreadable body"})
			log.Warn("failed to read body", "err", err)
			return
		}

		resp := h.handler.Handle(r.Context(), kind, payload)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := io.WriteString(w, resp.Body); err != nil {
			log.Error("failed to write response body", "err", err)
		}
	}
}

// An InventoryHandler records demand and stock of a product.
type InventoryHandler struct {
	recorder port.InventoryRecorder
}

func RegisterInventory(mux *http.ServeMux, recorder port.InventoryRecorder) {
	h := InventoryHandler{recorder}
	mux.HandleFunc("PUT /v1/products/{productID}/inventory", h.PutInventory)
}

func (h InventoryHandler) PutInventory(w http.ResponseWriter, r *http.Request) {
	const op = "InventoryHandler.PutInventory"
	productID := r.PathValue("productID")
	log := slog.With("op", op, "productID", productID)

	var req InventoryRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}
	if req.Demand == nil || req.Stock == nil {
		writeJSON(w, log, http.StatusBadRequest, ErrorBody{"Demand and Stock are required"})
		return
	}

	p, err := h.recorder.RecordInventory(r.Context(), productID, *req.Demand, *req.Stock)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, productFromDomain(p))
}

// A SelectionsHandler records purchase selections.
type SelectionsHandler struct {
	recorder port.SelectionRecorder
}

func RegisterSelections(mux *http.ServeMux, recorder port.SelectionRecorder) {
	h := SelectionsHandler{recorder}
	mux.HandleFunc("POST /v1/selections", h.PostSelection)
}

func (h SelectionsHandler) PostSelection(w http.ResponseWriter, r *http.Request) {
	const op = "SelectionsHandler.PostSelection"
	log := slog.With("op", op)

	var req SelectionRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	sel, err := h.recorder.RecordSelection(r.Context(), req.CustomerID, req.ProductID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusCreated, selectionFromDomain(sel))
}

// A PricesHandler reads and overrides stored current prices.
type PricesHandler struct {
	reader port.PriceReader
	writer port.PriceWriter
}

func RegisterPrices(
	mux *http.ServeMux, reader port.PriceReader, writer port.PriceWriter,
) {
	h := PricesHandler{reader: reader, writer: writer}
	mux.HandleFunc("GET /v1/prices/{productID}", h.GetPrice)
	mux.HandleFunc("PUT /v1/prices/{productID}", h.PutPrice)
}

func (h PricesHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	const op = "PricesHandler.GetPrice"
	productID := r.PathValue("productID")
	log := slog.With("op", op, "productID", productID)

	cp, err := h.reader.GetCurrentPrice(r.Context(), productID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, currentPriceFromDomain(cp))
}

func (h PricesHandler) PutPrice(w http.ResponseWriter, r *http.Request) {
	const op = "PricesHandler.PutPrice"
	productID := r.PathValue("productID")
	log := slog.With("op", op, "productID", productID)

	var req PriceRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}
	if req.CurrentPrice == nil {
		writeJSON(w, log, http.StatusBadRequest, ErrorBody{"CurrentPrice is required"})
		return
	}

	cp, err := h.writer.SetCurrentPrice(r.Context(), productID, *req.CurrentPrice)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, currentPriceFromDomain(cp))
}

// A PublishedPricesHandler reads the latest derived price events.
type PublishedPricesHandler struct {
	reader port.PublishedPriceReader
}

func RegisterPublishedPrices(mux *http.ServeMux, reader port.PublishedPriceReader) {
	h := PublishedPricesHandler{reader}
	mux.HandleFunc("GET /v1/published-prices/{productID}", h.GetPublishedPrice)
}

func (h PublishedPricesHandler) GetPublishedPrice(w http.ResponseWriter, r *http.Request) {
	const op = "PublishedPricesHandler.GetPublishedPrice"
	productID := r.PathValue("productID")
	log := slog.With("op", op, "productID", productID)

	e, err := h.reader.GetPublishedPrice(r.Context(), productID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, publishedPriceFromDomain(e))
}

func RegisterMetrics(mux *http.ServeMux, g prometheus.Gatherer) {
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

func decodeJSON(
	w http.ResponseWriter, r *http.Request, log *slog.Logger, v any,
) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, log, http.StatusBadRequest, ErrorBody{"invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	outcome := domain.OutcomeOf(err)
	status := outcome.StatusCode()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	} else {
		log.Warn("request rejected", "outcome", outcome.String(), "err", err)
	}

	msg := err.Error()
	if errors.Is(err, domain.ErrNotFound) {
		msg = "not found"
	}
	writeJSON(w, log, status, ErrorBody{msg})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}
