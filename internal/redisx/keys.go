package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{customer_id}:{key} -> finalize result JSON
	KeyIdemCheckout = "idem:checkout:%d:%s"

	// Company report cache: report:{kind}:{company_id} -> report JSON
	KeyReportSales = "report:sales:%d"
	KeyReportStock = "report:stock:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLReportCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
