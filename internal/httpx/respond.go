package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ibex-commerce/storefront/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Kind      string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Available int    `json:"available,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// writeErr maps the typed error taxonomy onto HTTP statuses so the
// presentation side never has to string-match.
func writeErr(w http.ResponseWriter, err error) {
	var validation *shop.ValidationError
	var insufficient *shop.InsufficientStockError
	var negative *shop.StockWouldGoNegativeError
	var storage *shop.StorageError

	switch {
	case errors.Is(err, shop.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Kind: "not_found", Detail: err.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errBody{Kind: "validation", Detail: validation.Error()})
	case errors.Is(err, shop.ErrOutOfStock):
		writeJSON(w, http.StatusConflict, errBody{Kind: "out_of_stock", Detail: err.Error()})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, errBody{
			Kind:      "insufficient_stock",
			Detail:    insufficient.Error(),
			ProductID: insufficient.ProductID,
			Available: insufficient.Available,
			Requested: insufficient.Requested,
		})
	case errors.As(err, &negative):
		writeJSON(w, http.StatusConflict, errBody{Kind: "stock_would_go_negative", Detail: negative.Error()})
	case errors.Is(err, shop.ErrEmptyCart):
		writeJSON(w, http.StatusUnprocessableEntity, errBody{Kind: "empty_cart", Detail: err.Error()})
	case errors.Is(err, shop.ErrNotInCart):
		writeJSON(w, http.StatusNotFound, errBody{Kind: "not_in_cart", Detail: err.Error()})
	case errors.As(err, &storage):
		writeJSON(w, http.StatusInternalServerError, errBody{Kind: "storage_failure", Detail: storage.Error(), Retryable: true})
	default:
		writeJSON(w, http.StatusInternalServerError, errBody{Kind: "internal", Detail: err.Error()})
	}
}
