package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the day-month-year layout of every date on the wire.
const DateLayout = "02-01-2006"

var dateLayouts = []string{DateLayout, time.DateOnly, time.RFC3339}

// A wireDate reads DateLayout, ISO dates and RFC 3339 timestamps
// and always writes DateLayout.
type wireDate time.Time

func (d *wireDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	*d = wireDate(t)
	return nil
}

func (d wireDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(DateLayout))
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want %s", s, "dd-mm-yyyy")
}

// A productList is either a comma separated string or an array on input
// and always a comma separated string on output.
type productList []string

func (l *productList) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err == nil {
		*l = cleanIDs(ids)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("AffectedProducts must be a string or an array: %w", err)
	}
	*l = cleanIDs(strings.Split(s, ","))
	return nil
}

func (l productList) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(l, ","))
}

func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

type promotionJSON struct {
	EventID          string           `json:"EventID"`
	EventName        string           `json:"EventName"`
	StartDate        *wireDate        `json:"StartDate"`
	EndDate          *wireDate        `json:"EndDate"`
	AffectedProducts productList      `json:"AffectedProducts"`
	DiscountRate     *decimal.Decimal `json:"DiscountRate"`
}

func (p promotionJSON) toDomain() (domain.EventPromotion, error) {
	var missing []string
	if p.StartDate == nil {
		missing = append(missing, "StartDate")
	}
	if p.EndDate == nil {
		missing = append(missing, "EndDate")
	}
	if p.DiscountRate == nil {
		missing = append(missing, "DiscountRate")
	}
	if len(missing) != 0 {
		return domain.EventPromotion{}, missingFields("ActiveEvent", missing...)
	}

	return domain.EventPromotion{
		EventID:          p.EventID,
		EventName:        p.EventName,
		StartDate:        time.Time(*p.StartDate),
		EndDate:          time.Time(*p.EndDate),
		AffectedProducts: p.AffectedProducts,
		DiscountRate:     *p.DiscountRate,
	}, nil
}

func promotionFromDomain(p domain.EventPromotion) promotionJSON {
	start, end, rate := wireDate(p.StartDate), wireDate(p.EndDate), p.DiscountRate
	return promotionJSON{
		EventID:          p.EventID,
		EventName:        p.EventName,
		StartDate:        &start,
		EndDate:          &end,
		AffectedProducts: p.AffectedProducts,
		DiscountRate:     &rate,
	}
}

type seasonalRequestJSON struct {
	SelectedDate *wireDate      `json:"SelectedDate"`
	ActiveEvent  *promotionJSON `json:"ActiveEvent"`
}

// MarshalSeasonalRequest encodes req as the seasonal discount payload.
func MarshalSeasonalRequest(req domain.SeasonalDiscountRequest) ([]byte, error) {
	date := wireDate(req.SelectedDate)
	v := seasonalRequestJSON{SelectedDate: &date}
	if req.ActiveEvent != nil {
		p := promotionFromDomain(*req.ActiveEvent)
		v.ActiveEvent = &p
	}
	return json.Marshal(v)
}

type (
	streamEventJSON struct {
		Records *[]streamRecordJSON `json:"Records"`
	}

	streamRecordJSON struct {
		EventName string `json:"eventName"`
		DynamoDB  struct {
			NewImage image `json:"NewImage"`
		} `json:"dynamodb"`
	}

	// An attributeValue is a typed change-stream value: a string or a
	// number carried as a string.
	attributeValue struct {
		S *string `json:"S,omitempty"`
		N *string `json:"N,omitempty"`
	}
)

const (
	eventInsert = "INSERT"
	eventModify = "MODIFY"
)

// An image is the NewImage of a change record.
type image map[string]attributeValue

func (im image) str(field string) (string, bool) {
	v, ok := im[field]
	if !ok || v.S == nil || *v.S == "" {
		return "", false
	}
	return *v.S, true
}

func (im image) num(field string) (decimal.Decimal, error) {
	v, ok := im[field]
	if !ok || v.N == nil {
		return decimal.Zero, missingFields("NewImage", field)
	}
	d, err := decimal.NewFromString(*v.N)
	if err != nil {
		return decimal.Zero, fmt.Errorf(
			"NewImage.%s: %w: %w", field, err, domain.ErrValidation,
		)
	}
	return d, nil
}

func (im image) integer(field string) (int64, error) {
	d, err := im.num(field)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf(
			"NewImage.%s: %s is not an integer: %w", field, d, domain.ErrValidation,
		)
	}
	return d.IntPart(), nil
}

func strAttr(s string) attributeValue { return attributeValue{S: &s} }

func numAttr(n string) attributeValue { return attributeValue{N: &n} }

func marshalStreamRecord(eventName string, newImage image) ([]byte, error) {
	rec := streamRecordJSON{EventName: eventName}
	rec.DynamoDB.NewImage = newImage
	records := []streamRecordJSON{rec}
	return json.Marshal(streamEventJSON{Records: &records})
}

// MarshalInventoryModified encodes the MODIFY change record of p.
func MarshalInventoryModified(p domain.Product) ([]byte, error) {
	return marshalStreamRecord(eventModify, image{
		"ProductID": strAttr(p.ProductID),
		"BasePrice": numAttr(p.BasePrice.String()),
		"Demand":    numAttr(strconv.FormatInt(p.Demand, 10)),
		"Stock":     numAttr(strconv.FormatInt(p.Stock, 10)),
	})
}

// MarshalSelectionInserted encodes the INSERT change record of s.
func MarshalSelectionInserted(s domain.PurchaseSelection) ([]byte, error) {
	return marshalStreamRecord(eventInsert, image{
		"SelectionID": strAttr(s.SelectionID),
		"CustomerID":  strAttr(s.CustomerID),
		"ProductID":   strAttr(s.ProductID),
	})
}

// isFalsy reports whether raw is absent, null or an empty value.
func isFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return true
	}
	return false
}

func missingFields(parent string, fields ...string) error {
	return fmt.Errorf(
		"missing %s in %s: %w",
		strings.Join(fields, ", "), parent, domain.ErrValidation,
	)
}
