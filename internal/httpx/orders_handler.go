package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/ledger"
	"github.com/ibex-commerce/storefront/internal/shop"
)

type OrdersHandler struct {
	Ledger *ledger.Repo
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders", h.customerOrders)
	r.Get("/orders/{code}", h.customerOrderDetails)
	r.Get("/company/orders", h.companyOrders)
	r.Get("/company/orders/{code}", h.companyOrderDetails)
}

type orderSummaryResp struct {
	OrderCode  string          `json:"order_code"`
	LatestAt   time.Time       `json:"latest_at"`
	Items      int             `json:"items"`
	Total      decimal.Decimal `json:"total"`
	PostalCode string          `json:"postal_code"`
	Number     string          `json:"number"`
}

type orderDetailResp struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func toSummaries(in []shop.OrderSummary) []orderSummaryResp {
	out := make([]orderSummaryResp, 0, len(in))
	for _, s := range in {
		out = append(out, orderSummaryResp{
			OrderCode: s.OrderCode, LatestAt: s.LatestAt, Items: s.Items,
			Total: s.Total, PostalCode: s.Address.PostalCode, Number: s.Address.Number,
		})
	}
	return out
}

func toDetails(in []shop.OrderLineDetail) []orderDetailResp {
	out := make([]orderDetailResp, 0, len(in))
	for _, d := range in {
		out = append(out, orderDetailResp{
			ProductID: d.ProductID, Name: d.Name, Qty: d.Qty,
			UnitPrice: d.UnitPrice, LineTotal: d.LineTotal,
		})
	}
	return out
}

func (h *OrdersHandler) customerOrders(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Ledger.OrdersByCustomer(ctx, customer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaries(out))
}

func (h *OrdersHandler) customerOrderDetails(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Ledger.LineItemsForCustomerOrder(ctx, customer, chi.URLParam(r, "code"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetails(out))
}

func (h *OrdersHandler) companyOrders(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Ledger.OrdersByCompany(ctx, company)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaries(out))
}

func (h *OrdersHandler) companyOrderDetails(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Ledger.LineItemsForCompanyOrder(ctx, company, chi.URLParam(r, "code"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetails(out))
}
