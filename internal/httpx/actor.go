package httpx

import (
	"net/http"
	"strconv"

	"github.com/ibex-commerce/storefront/internal/shop"
)

// Actor identity arrives pre-authenticated from the identity
// collaborator as headers. Each call is explicitly scoped to one
// actor; there is no ambient logged-in state.
const (
	headerCustomerID = "X-Customer-Id"
	headerCompanyID  = "X-Company-Id"
)

func customerID(r *http.Request) (int64, error) {
	return actorID(r, headerCustomerID)
}

func companyID(r *http.Request) (int64, error) {
	return actorID(r, headerCompanyID)
}

func actorID(r *http.Request, header string) (int64, error) {
	v := r.Header.Get(header)
	if v == "" {
		return 0, &shop.ValidationError{Field: header, Reason: "required"}
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, &shop.ValidationError{Field: header, Reason: "must be a positive integer"}
	}
	return id, nil
}
