package shop

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderFinalized = "OrderFinalized"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order code
	Payload       json.RawMessage `json:"payload"`
}

type FinalizedItem struct {
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderFinalizedPayload struct {
	OrderCode  string          `json:"order_code"`
	CustomerID int64           `json:"customer_id"`
	Items      []FinalizedItem `json:"items"`
	Total      decimal.Decimal `json:"total"`
	PostalCode string          `json:"postal_code"`
	Number     string          `json:"number"`
}
