package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/cart"
	"github.com/ibex-commerce/storefront/internal/shop"
)

type CartHandler struct {
	Cart *cart.Service
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.viewCart)
	r.Post("/cart/items", h.addItem)
	r.Delete("/cart/items/{productID}", h.removeOrDecrease)
}

type cartLineResp struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartViewResp struct {
	Lines []cartLineResp  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (h *CartHandler) viewCart(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Cart.ViewCart(ctx, customer)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := cartViewResp{Lines: make([]cartLineResp, 0, len(v.Lines)), Total: v.Total}
	for _, l := range v.Lines {
		resp.Lines = append(resp.Lines, cartLineResp{
			ProductID: l.ProductID, Name: l.Name,
			UnitPrice: l.UnitPrice, Qty: l.Qty, Subtotal: l.Subtotal,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type addItemReq struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, &shop.ValidationError{Field: "body", Reason: "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Cart.AddItem(ctx, customer, req.ProductID, req.Qty); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (h *CartHandler) removeOrDecrease(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeErr(w, &shop.ValidationError{Field: "productID", Reason: "must be an integer"})
		return
	}
	amount := 1
	if v := r.URL.Query().Get("amount"); v != "" {
		amount, err = strconv.Atoi(v)
		if err != nil {
			writeErr(w, &shop.ValidationError{Field: "amount", Reason: "must be an integer"})
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Cart.RemoveOrDecrease(ctx, customer, productID, amount); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
