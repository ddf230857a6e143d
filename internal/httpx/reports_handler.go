package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ibex-commerce/storefront/internal/redisx"
	"github.com/ibex-commerce/storefront/internal/reports"
)

type ReportsHandler struct {
	Reports *reports.Repo
	Redis   *redis.Client
}

func (h *ReportsHandler) Register(r *chi.Mux) {
	r.Get("/company/reports/sales", h.sales)
	r.Get("/company/reports/stock", h.stock)
}

// Reports are aggregate scans; cache them briefly per company.
func (h *ReportsHandler) sales(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, redisx.KeyReportSales, func(ctx context.Context, company int64) (any, error) {
		return h.Reports.Sales(ctx, company)
	})
}

func (h *ReportsHandler) stock(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, redisx.KeyReportStock, func(ctx context.Context, company int64) (any, error) {
		return h.Reports.Stock(ctx, company)
	})
}

func (h *ReportsHandler) serve(w http.ResponseWriter, r *http.Request, keyFmt string, load func(context.Context, int64) (any, error)) {
	company, err := companyID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf(keyFmt, company)
	if cached, err := h.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cached))
		return
	}

	out, err := load(ctx, company)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, err := json.Marshal(out)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = h.Redis.Set(ctx, key, b, redisx.TTLReportCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
