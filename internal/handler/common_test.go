package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func TestFailMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("booking x: %w", repository.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad dates", repository.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("deluxe: %w", repository.ErrInsufficientInventory), http.StatusConflict},
		{fmt.Errorf("%w: changed", repository.ErrRaceCondition), http.StatusConflict},
		{repository.ErrLedgerInconsistency, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{echo.NewHTTPError(http.StatusBadRequest, "invalid body"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := fail(c, zap.NewNop(), tc.err); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.status {
			t.Errorf("%v -> %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&paymentReq{Method: "cheque", Amount: 0})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if err := v.Validate(&paymentReq{Method: "card", Amount: 12.5, TransactionDate: "2030-02-01"}); err != nil {
		t.Fatalf("valid payment rejected: %v", err)
	}
	if err := v.Validate(&chargeReq{Description: "Spa", Amount: 1, ChargeType: "spa", ChargeDate: "01/02/2030"}); err == nil {
		t.Fatal("bad charge date accepted")
	}
}

func TestParseDate(t *testing.T) {
	if d, err := parseDate(""); err != nil || !d.IsZero() {
		t.Fatalf("empty date = %v %v", d, err)
	}
	if _, err := parseDate("2030-13-01"); err == nil {
		t.Fatal("invalid month accepted")
	}
}
