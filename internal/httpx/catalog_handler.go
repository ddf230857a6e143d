package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/catalog"
	"github.com/ibex-commerce/storefront/internal/shop"
)

type CatalogHandler struct {
	Repo *catalog.Repo
}

type productResp struct {
	ID        int64           `json:"id"`
	CompanyID int64           `json:"company_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
}

func toProductResp(p shop.Product) productResp {
	return productResp{
		ID: p.ID, CompanyID: p.CompanyID, Name: p.Name,
		Price: p.Price, Stock: p.Stock, CreatedAt: p.CreatedAt,
	}
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Post("/company/products", h.createProduct)
	r.Put("/company/products/{id}", h.updateProduct)
	r.Delete("/company/products/{id}", h.deleteProduct)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var (
		ps  []shop.Product
		err error
	)
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			writeErr(w, &shop.ValidationError{Field: "company_id", Reason: "must be an integer"})
			return
		}
		ps, err = h.Repo.ListByCompany(ctx, id)
	} else {
		ps, err = h.Repo.ListProducts(ctx)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, &shop.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

type productReq struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, &shop.ValidationError{Field: "body", Reason: "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.Create(ctx, company, req.Name, req.Price, req.Stock)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResp(p))
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, &shop.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, &shop.ValidationError{Field: "body", Reason: "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.Update(ctx, company, id, req.Name, req.Price, req.Stock)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResp(p))
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, &shop.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.Delete(ctx, company, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
