// Package router turns inbound trigger payloads into pricing operations
// and shapes their results into [domain.Response] values.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
)

const (
	msgPricesUpdated   = "Current prices updated successfully"
	msgEventProcessed  = "Successfully processed event"
	msgNoActiveEvent   = "No active event on the selected date."
	msgInternalError   = "Internal server error"
	msgPurchaseFailure = "Error processing CustomerProductSelection stream event"
)

type Router struct {
	svc     port.PricingService
	metrics port.OutcomeRecorder
}

type Opt func(*Router)

func OutcomeRecorderOpt(r port.OutcomeRecorder) Opt {
	return func(rt *Router) { rt.metrics = r }
}

func New(svc port.PricingService, opts ...Opt) Router {
	if svc == nil {
		panic("router.New: pricing service is nil") // develop mistake
	}
	r := Router{svc: svc, metrics: noopRecorder{}}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Handle parses payload as a trigger of kind and dispatches it.
func (r Router) Handle(
	ctx context.Context, kind domain.TriggerKind, payload []byte,
) domain.Response {
	const op = "Router.Handle"

	t, err := ParseTrigger(kind, payload)
	if err != nil {
		slog.With("op", op, "kind", kind).Warn("rejected payload", "err", err)
		outcome := domain.OutcomeOf(err)
		r.metrics.RecordOutcome(kind, outcome)
		return errorResponse(kind, outcome, err)
	}
	return r.Dispatch(ctx, t)
}

// Dispatch runs t and never panics: a panic becomes a 500 response.
func (r Router) Dispatch(
	ctx context.Context, t domain.Trigger,
) (resp domain.Response) {
	const op = "Router.Dispatch"
	kind := t.Kind()
	log := slog.With("op", op, "kind", kind)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			log.Error("trigger panicked", "err", err)
			r.metrics.RecordOutcome(kind, domain.OutcomeDependency)
			resp = errorResponse(kind, domain.OutcomeDependency, err)
		}
	}()

	body, err := r.run(ctx, t)
	outcome := domain.OutcomeOf(err)
	r.metrics.RecordOutcome(kind, outcome)

	if err != nil {
		log.Error(
			"trigger failed",
			"outcome", outcome.String(),
			"duration", time.Since(start),
			"err", err,
		)
		return errorResponse(kind, outcome, err)
	}

	log.Info("trigger handled", "duration", time.Since(start))
	return jsonResponse(outcome.StatusCode(), body)
}

func (r Router) run(ctx context.Context, t domain.Trigger) (any, error) {
	switch t := t.(type) {
	case domain.CompetitorPriceUpdate:
		return r.competitorPriceUpdate(ctx, t)
	case domain.InventoryChange:
		return r.inventoryChange(ctx, t)
	case domain.PurchaseSelectionInsert:
		return r.purchaseSelectionInsert(ctx, t)
	case domain.SeasonalDiscountRequest:
		return r.seasonalDiscountRequest(ctx, t)
	case domain.SeasonalSchedule:
		return r.seasonalSchedule(ctx, t)
	default:
		return nil, fmt.Errorf(
			"%w %q: %w", ErrUnknownTrigger, t.Kind(), domain.ErrValidation,
		)
	}
}

func (r Router) competitorPriceUpdate(
	ctx context.Context, t domain.CompetitorPriceUpdate,
) (any, error) {
	upd, err := r.svc.ReactToCompetitor(ctx, t)
	if err != nil {
		return nil, productError{productID: t.ProductID, err: err}
	}
	return struct {
		ProductID       string `json:"ProductID"`
		NewCurrentPrice string `json:"NewCurrentPrice"`
	}{upd.ProductID, upd.NewPrice.String()}, nil
}

// inventoryChange applies the records in order and stops at the first
// failure. Records applied before it stay committed.
func (r Router) inventoryChange(
	ctx context.Context, t domain.InventoryChange,
) (any, error) {
	for i, rec := range t.Records {
		if _, err := r.svc.ApplyInventoryChange(ctx, rec); err != nil {
			slog.With("op", "Router.inventoryChange").Warn(
				"record failed",
				"record", i+1, "records", len(t.Records), "productID", rec.ProductID,
			)
			return nil, productError{productID: rec.ProductID, err: err}
		}
	}
	return msgPricesUpdated, nil
}

// purchaseSelectionInsert skips selections of unknown products or
// customers, any other failure aborts the batch.
func (r Router) purchaseSelectionInsert(
	ctx context.Context, t domain.PurchaseSelectionInsert,
) (any, error) {
	log := slog.With("op", "Router.purchaseSelectionInsert")
	for _, sel := range t.Selections {
		_, err := r.svc.ProcessPurchase(ctx, sel)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn(
				"selection skipped",
				"selectionID", sel.SelectionID,
				"err", err,
			)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return msgEventProcessed, nil
}

func (r Router) seasonalDiscountRequest(
	ctx context.Context, t domain.SeasonalDiscountRequest,
) (any, error) {
	if t.ActiveEvent == nil || !t.ActiveEvent.IsActiveOn(t.SelectedDate) {
		return map[string]string{"message": msgNoActiveEvent}, nil
	}

	discounted, err := r.svc.ApplySeasonalDiscount(ctx, t)
	if err != nil {
		return nil, err
	}

	type productJSON struct {
		ProductID       string `json:"ProductID"`
		BasePrice       string `json:"BasePrice"`
		NewCurrentPrice string `json:"NewCurrentPrice"`
		DiscountRate    string `json:"DiscountRate"`
	}
	out := make([]productJSON, 0, len(discounted))
	for _, d := range discounted {
		out = append(out, productJSON{
			ProductID:       d.ProductID,
			BasePrice:       d.BasePrice.String(),
			NewCurrentPrice: d.NewCurrentPrice.String(),
			DiscountRate:    d.DiscountRate.String(),
		})
	}
	return out, nil
}

func (r Router) seasonalSchedule(
	ctx context.Context, t domain.SeasonalSchedule,
) (any, error) {
	res, err := r.svc.RunSeasonalSchedule(ctx, t.SelectedDate)
	if err != nil {
		return nil, err
	}

	out := struct {
		SelectedDate    wireDate         `json:"SelectedDate"`
		ActiveEvent     *promotionJSON   `json:"ActiveEvent"`
		UpdatedProducts *domain.Response `json:"UpdatedProducts,omitempty"`
	}{
		SelectedDate:    wireDate(res.SelectedDate),
		UpdatedProducts: res.UpdatedProducts,
	}
	if res.ActiveEvent != nil {
		p := promotionFromDomain(*res.ActiveEvent)
		out.ActiveEvent = &p
	}
	return out, nil
}

func jsonResponse(status int, body any) domain.Response {
	b, err := json.Marshal(body)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%s: %s", msgInternalError, err))
		status = domain.OutcomeDependency.StatusCode()
	}
	return domain.Response{StatusCode: status, Body: string(b)}
}

// A productError ties a failure to the product it happened on.
type productError struct {
	productID string
	err       error
}

func (e productError) Error() string { return e.err.Error() }

func (e productError) Unwrap() error { return e.err }

// errorResponse builds a response whose body is a JSON string naming the
// failure class. The op chain of err stays out of the body.
func errorResponse(
	kind domain.TriggerKind, outcome domain.Outcome, err error,
) domain.Response {
	var pe productError
	productID := ""
	if errors.As(err, &pe) {
		productID = pe.productID
	}
	reason := publicReason(err)

	var msg string
	switch outcome {
	case domain.OutcomeValidation:
		msg = "Invalid request: " + reason
	case domain.OutcomeNotFound:
		msg = "Not found"
		if productID != "" {
			msg = "Product not found for ProductID: " + productID
		}
	case domain.OutcomeConflict:
		msg = "Conflict detected"
		if productID != "" {
			msg = "Conditional check failed for ProductID: " + productID
		}
		msg += ". The current price might have been updated by another process."
	case domain.OutcomeComputation:
		msg = "Price computation failed"
		if productID != "" {
			msg += " for ProductID: " + productID
		}
		msg += ": " + reason
	default:
		if kind == domain.KindPurchaseSelectionInsert {
			msg = msgPurchaseFailure
		} else {
			msg = msgInternalError + ": " + reason
		}
	}
	return jsonResponse(outcome.StatusCode(), msg)
}

var sentinels = []error{
	domain.ErrValidation,
	domain.ErrNotFound,
	domain.ErrConflict,
	domain.ErrComputation,
	domain.ErrDependency,
}

// publicReason drops the leading "Type.Method: " segments and a trailing
// sentinel text from the message of err.
func publicReason(err error) string {
	msg := err.Error()
	for {
		head, rest, ok := strings.Cut(msg, ": ")
		if !ok || !isOp(head) {
			break
		}
		msg = rest
	}
	for _, sentinel := range sentinels {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}

func isOp(s string) bool {
	return strings.Contains(s, ".") && !strings.ContainsAny(s, " \"'")
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(domain.TriggerKind, domain.Outcome) {}
