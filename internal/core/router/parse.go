package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
)

var ErrUnknownTrigger = errors.New("unknown trigger kind")

// ParseTrigger decodes payload into the trigger variant of kind.
//
// Every error wraps [domain.ErrValidation].
func ParseTrigger(kind domain.TriggerKind, payload []byte) (domain.Trigger, error) {
	const op = "router.ParseTrigger"

	var (
		t   domain.Trigger
		err error
	)
	switch kind {
	case domain.KindCompetitorPriceUpdate:
		t, err = parseCompetitorPriceUpdate(payload)
	case domain.KindInventoryChange:
		t, err = parseInventoryChange(payload)
	case domain.KindPurchaseSelectionInsert:
		t, err = parsePurchaseSelectionInsert(payload)
	case domain.KindSeasonalDiscountRequest:
		t, err = parseSeasonalDiscountRequest(payload)
	case domain.KindSeasonalSchedule:
		t, err = parseSeasonalSchedule(payload, time.Now())
	default:
		err = fmt.Errorf("%w %q: %w", ErrUnknownTrigger, kind, domain.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("malformed payload: %w: %w", err, domain.ErrValidation)
	}
	return nil
}

func parseCompetitorPriceUpdate(payload []byte) (domain.Trigger, error) {
	var v struct {
		Detail *struct {
			CompetitorID       string           `json:"CompetitorID"`
			ProductID          string           `json:"ProductID"`
			NewCompetitorPrice *decimal.Decimal `json:"NewCompetitorPrice"`
		} `json:"detail"`
	}
	if err := decode(payload, &v); err != nil {
		return nil, err
	}
	if v.Detail == nil {
		return nil, missingFields("event", "detail")
	}

	var missing []string
	if v.Detail.CompetitorID == "" {
		missing = append(missing, "CompetitorID")
	}
	if v.Detail.ProductID == "" {
		missing = append(missing, "ProductID")
	}
	if v.Detail.NewCompetitorPrice == nil {
		missing = append(missing, "NewCompetitorPrice")
	}
	if len(missing) != 0 {
		return nil, missingFields("detail", missing...)
	}

	return domain.CompetitorPriceUpdate{
		CompetitorID:       v.Detail.CompetitorID,
		ProductID:          v.Detail.ProductID,
		NewCompetitorPrice: *v.Detail.NewCompetitorPrice,
	}, nil
}

func decodeRecords(payload []byte) ([]streamRecordJSON, error) {
	var v streamEventJSON
	if err := decode(payload, &v); err != nil {
		return nil, err
	}
	if v.Records == nil {
		return nil, missingFields("event", "Records")
	}
	return *v.Records, nil
}

func parseInventoryChange(payload []byte) (domain.Trigger, error) {
	records, err := decodeRecords(payload)
	if err != nil {
		return nil, err
	}

	var t domain.InventoryChange
	for i, rec := range records {
		if rec.EventName != eventModify {
			t.Skipped++
			continue
		}
		r, err := inventoryRecord(rec.DynamoDB.NewImage)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		t.Records = append(t.Records, r)
	}
	return t, nil
}

func inventoryRecord(im image) (domain.InventoryRecord, error) {
	productID, ok := im.str("ProductID")
	if !ok {
		return domain.InventoryRecord{}, missingFields("NewImage", "ProductID")
	}
	basePrice, err := im.num("BasePrice")
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	demand, err := im.integer("Demand")
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	stock, err := im.integer("Stock")
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	return domain.InventoryRecord{
		ProductID: productID,
		BasePrice: basePrice,
		Demand:    demand,
		Stock:     stock,
	}, nil
}

func parsePurchaseSelectionInsert(payload []byte) (domain.Trigger, error) {
	records, err := decodeRecords(payload)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records in event: %w", domain.ErrValidation)
	}

	var t domain.PurchaseSelectionInsert
	for i, rec := range records {
		if rec.EventName != eventInsert {
			t.Skipped++
			continue
		}
		im := rec.DynamoDB.NewImage
		customerID, okC := im.str("CustomerID")
		productID, okP := im.str("ProductID")
		if !okC || !okP {
			return nil, fmt.Errorf(
				"record %d: %w", i, missingFields("NewImage", "CustomerID", "ProductID"),
			)
		}
		selectionID, _ := im.str("SelectionID")
		t.Selections = append(t.Selections, domain.PurchaseSelection{
			SelectionID: selectionID,
			CustomerID:  customerID,
			ProductID:   productID,
		})
	}
	return t, nil
}

func parseSeasonalDiscountRequest(payload []byte) (domain.Trigger, error) {
	var v struct {
		SelectedDate *wireDate      `json:"SelectedDate"`
		ActiveEvent  json.RawMessage `json:"ActiveEvent"`
	}
	if err := decode(payload, &v); err != nil {
		return nil, err
	}
	if v.SelectedDate == nil {
		return nil, missingFields("event", "SelectedDate")
	}

	t := domain.SeasonalDiscountRequest{SelectedDate: time.Time(*v.SelectedDate)}
	if isFalsy(v.ActiveEvent) {
		return t, nil
	}

	var p promotionJSON
	if err := decode(v.ActiveEvent, &p); err != nil {
		return nil, fmt.Errorf("ActiveEvent: %w", err)
	}
	event, err := p.toDomain()
	if err != nil {
		return nil, err
	}
	t.ActiveEvent = &event
	return t, nil
}

// parseSeasonalSchedule defaults the date to the day of now.
func parseSeasonalSchedule(payload []byte, now time.Time) (domain.Trigger, error) {
	var v struct {
		SelectedDate *wireDate `json:"SelectedDate"`
	}
	if len(payload) != 0 {
		if err := decode(payload, &v); err != nil {
			return nil, err
		}
	}

	date := now.UTC().Truncate(24 * time.Hour)
	if v.SelectedDate != nil {
		date = time.Time(*v.SelectedDate)
	}
	return domain.SeasonalSchedule{SelectedDate: date}, nil
}
