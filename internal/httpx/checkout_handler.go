package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/checkout"
	kafkax "github.com/ibex-commerce/storefront/internal/kafka"
	"github.com/ibex-commerce/storefront/internal/redisx"
	"github.com/ibex-commerce/storefront/internal/shop"
)

type CheckoutHandler struct {
	Finalizer *checkout.Finalizer
	Redis     *redis.Client
	Producer  *kafkax.Producer
	Service   string
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.finalize)
}

type checkoutReq struct {
	PostalCode string `json:"postal_code"`
	Number     string `json:"number"`
	Confirm    bool   `json:"confirm"`
}

type checkoutResp struct {
	OrderCode  string          `json:"order_code"`
	Items      int             `json:"items"`
	Total      decimal.Decimal `json:"total"`
	PostalCode string          `json:"postal_code"`
	Number     string          `json:"number"`
	Idempotent bool            `json:"idempotent,omitempty"`
}

func (h *CheckoutHandler) finalize(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, &shop.ValidationError{Field: "body", Reason: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Optional double-submission guard: replay the stored result when
	// the same customer retries with the same Idempotency-Key.
	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, customer, k)
		if cached, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && cached != "" {
			var resp checkoutResp
			if json.Unmarshal([]byte(cached), &resp) == nil {
				resp.Idempotent = true
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
	}

	co, err := h.Finalizer.Begin(ctx, customer)
	if err != nil {
		writeErr(w, err)
		return
	}
	addr := shop.Address{PostalCode: req.PostalCode, Number: req.Number}
	res, err := h.Finalizer.Confirm(ctx, co, addr, req.Confirm)
	if errors.Is(err, shop.ErrCancelled) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := checkoutResp{
		OrderCode:  res.OrderCode,
		Items:      res.Items,
		Total:      res.Total,
		PostalCode: res.Address.PostalCode,
		Number:     res.Address.Number,
	}
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, kafkax.MustMarshal(resp), redisx.TTLIdempotency).Err()
	}

	h.publishFinalized(r, customer, res)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *CheckoutHandler) publishFinalized(r *http.Request, customer int64, res checkout.Result) {
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderFinalized,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.OrderCode,
	}
	ev.Payload = kafkax.MustMarshal(shop.OrderFinalizedPayload{
		OrderCode:  res.OrderCode,
		CustomerID: customer,
		Items:      checkout.CommittedLines(res.Lines),
		Total:      res.Total,
		PostalCode: res.Address.PostalCode,
		Number:     res.Address.Number,
	})
	h.Producer.Publish(shop.PartitionKey(res.OrderCode), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderFinalized)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
