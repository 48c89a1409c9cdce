package pms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/salmonumbrella/pms-cli/internal/resource"
	"github.com/salmonumbrella/pms-cli/internal/table"
)

// PaymentStatus summarises how much of a reservation has been paid.
type PaymentStatus string

const (
	StatusUnpaid   PaymentStatus = "unpaid"
	StatusPartial  PaymentStatus = "partial"
	StatusPaid     PaymentStatus = "paid"
	StatusOverpaid PaymentStatus = "overpaid"
	StatusRefunded PaymentStatus = "refunded"
)

// Payment and refund states that count towards the totals. Rows without a
// status are counted.
var (
	settledPayment = map[string]bool{"completed": true, "paid": true, "succeeded": true, "confirmed": true}
	settledRefund  = map[string]bool{"completed": true, "processed": true, "refunded": true, "succeeded": true}
)

// PaymentSummary aggregates the payments and refunds of one reservation.
type PaymentSummary struct {
	Reservation string          `json:"reservation" yaml:"reservation"`
	Total       decimal.Decimal `json:"total" yaml:"total"`
	Paid        decimal.Decimal `json:"paid" yaml:"paid"`
	Refunded    decimal.Decimal `json:"refunded" yaml:"refunded"`
	Balance     decimal.Decimal `json:"balance" yaml:"balance"`
	DepositPaid decimal.Decimal `json:"deposit_paid" yaml:"deposit_paid"`
	Status      PaymentStatus   `json:"status" yaml:"status"`
	Payments    int             `json:"payments" yaml:"payments"`
	Refunds     int             `json:"refunds" yaml:"refunds"`
}

// Rows returns the summary as label/value pairs for text output.
func (s PaymentSummary) Rows() [][2]string {
	return [][2]string{
		{"Reserva", s.Reservation},
		{"Total", s.Total.StringFixed(2)},
		{"Pagado", s.Paid.StringFixed(2)},
		{"Reembolsado", s.Refunded.StringFixed(2)},
		{"Saldo", s.Balance.StringFixed(2)},
		{"Depósito", s.DepositPaid.StringFixed(2)},
		{"Estado", string(s.Status)},
	}
}

// Amount reads a decimal amount from row[key]. Strings, JSON numbers and
// Go numbers are accepted.
func Amount(row any, key string) (decimal.Decimal, bool) {
	v, ok := table.Lookup(row, key)
	if !ok || table.IsNull(v) {
		return decimal.Zero, false
	}
	switch v := v.(type) {
	case decimal.Decimal:
		return v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Zero, false
}

// IsDeposit reports whether a payment is a deposit. Only the explicit
// is_deposit flag is trusted.
func IsDeposit(payment any) bool {
	v, ok := table.Lookup(payment, "is_deposit")
	if !ok {
		return false
	}
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func settled(row any, states map[string]bool) bool {
	v, ok := table.Lookup(row, "status")
	if !ok || table.IsNull(v) {
		return true
	}
	return states[strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))]
}

// Summarize aggregates payments and refunds against a reservation total.
// Only settled payments and refunds count. Balance is what remains to be
// paid and is negative when the guest is owed money.
func Summarize(reservation string, total decimal.Decimal, payments, refunds []any) PaymentSummary {
	s := PaymentSummary{
		Reservation: reservation,
		Total:       total,
		Paid:        decimal.Zero,
		Refunded:    decimal.Zero,
		DepositPaid: decimal.Zero,
	}
	for _, p := range payments {
		if !settled(p, settledPayment) {
			continue
		}
		amount, ok := Amount(p, "amount")
		if !ok {
			continue
		}
		s.Payments++
		s.Paid = s.Paid.Add(amount)
		if IsDeposit(p) {
			s.DepositPaid = s.DepositPaid.Add(amount)
		}
	}
	for _, r := range refunds {
		if !settled(r, settledRefund) {
			continue
		}
		amount, ok := Amount(r, "amount")
		if !ok {
			continue
		}
		s.Refunds++
		s.Refunded = s.Refunded.Add(amount)
	}

	net := s.Paid.Sub(s.Refunded)
	s.Balance = total.Sub(net)

	switch {
	case s.Paid.IsZero():
		s.Status = StatusUnpaid
	case s.Refunded.IsPositive() && !net.IsPositive():
		s.Status = StatusRefunded
	case net.GreaterThan(total):
		s.Status = StatusOverpaid
	case net.Equal(total):
		s.Status = StatusPaid
	default:
		s.Status = StatusPartial
	}
	return s
}

// FetchSummary loads a reservation with its payments and refunds and
// summarises them. Refunds are filtered by reservation like payments.
func FetchSummary(ctx context.Context, layer *resource.Layer, reservationID string) (PaymentSummary, error) {
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return PaymentSummary{}, fmt.Errorf("reservation id is required")
	}

	res := layer.Get("reservations", reservationID, true)
	if err := res.Fetch(ctx); err != nil {
		return PaymentSummary{}, fmt.Errorf("fetching reservation %s: %w", reservationID, err)
	}
	total, _ := Amount(res.Data(), "total_amount")

	filter := url.Values{"reservation": {reservationID}}
	payments := layer.List("payments", filter, true)
	if err := payments.FetchAll(ctx); err != nil {
		return PaymentSummary{}, fmt.Errorf("fetching payments: %w", err)
	}
	refunds := layer.List("refunds", filter, true)
	if err := refunds.FetchAll(ctx); err != nil {
		return PaymentSummary{}, fmt.Errorf("fetching refunds: %w", err)
	}

	return Summarize(reservationID, total, payments.Rows(), refunds.Rows()), nil
}
