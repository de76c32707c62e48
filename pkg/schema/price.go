package schema

import "github.com/hamba/avro/v2"

// Prices travel as decimal strings to keep their exact digits.
const PriceChangedSchemaTextV1 = `{
	"type": "record",
	"namespace": "pricing",
	"name": "price_changed",
	"fields": [
		{"name": "event_id", "type": "string"},
		{"name": "product_id", "type": "string"},
		{"name": "competitor_id", "type": "string", "default": ""},
		{"name": "previous_price", "type": "string"},
		{"name": "new_current_price", "type": "string"},
		{"name": "source", "type": "string"},
		{"name": "occurred_at", "type": "long"}
	]
}`

type PriceChangedV1 struct {
	EventID         string `avro:"event_id"`
	ProductID       string `avro:"product_id"`
	CompetitorID    string `avro:"competitor_id"`
	PreviousPrice   string `avro:"previous_price"`
	NewCurrentPrice string `avro:"new_current_price"`
	Source          string `avro:"source"`
	OccurredAt      int64  `avro:"occurred_at"`
}

func PriceChangedV1Avro() avro.Schema {
	return avro.MustParse(PriceChangedSchemaTextV1)
}
