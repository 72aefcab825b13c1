// Package rules holds the pure money-flow business rules: submission key
// derivation, fuel purchase tax, transfer tax brackets, and the result
// rounding convention. Everything here is side-effect free and operates
// on shopspring decimals; persistence and HTTP live elsewhere.
package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoTimestamp is returned when a sales record carries neither an
// explicit submission date nor a sale date. Callers treat it as a
// recoverable skip, not a fatal error.
var ErrNoTimestamp = errors.New("sales record has no submission date or sale date")

// SubmissionInput is the subset of a sales record that identifies a
// submission: one shift by one employee at one store on one date.
type SubmissionInput struct {
	SubmissionDate string // explicit key; used verbatim when set
	SaleDate       time.Time
	EmployeeID     string
	StoreID        string
	Shift          string
}

// SubmissionKey derives the idempotency key for a sales submission.
// An explicit submission date wins verbatim; otherwise the key is
// date-employee-store-shift, with "na" standing in for missing parts.
func SubmissionKey(in SubmissionInput) (string, error) {
	if in.SubmissionDate != "" {
		return in.SubmissionDate, nil
	}
	if in.SaleDate.IsZero() {
		return "", ErrNoTimestamp
	}
	employee := in.EmployeeID
	if employee == "" {
		employee = "na"
	}
	shift := in.Shift
	if shift == "" {
		shift = "na"
	}
	return fmt.Sprintf("%s-%s-%s-%s", in.SaleDate.Format("2006-01-02"), employee, in.StoreID, shift), nil
}

// Fuel purchase constants (IDR). The per-gallon haul fee is rounded up to
// the nearest 5000 over the whole load.
var (
	fuelPricePerGallon   = decimal.NewFromInt(340000)
	ongkosPerGallon      = decimal.NewFromInt(12000)
	ongkosRoundingStep   = decimal.NewFromInt(5000)
	DefaultPajakTransfer = decimal.NewFromInt(2500)
)

// FuelPurchaseCosts computes the cost breakdown for a fuel stock purchase.
// pajakOngkos = ceil(gallons * 12000 / 5000) * 5000
// total = gallons * 340000 + pajakOngkos + pajakTransfer
func FuelPurchaseCosts(gallons, pajakTransfer decimal.Decimal) (pajakOngkos, totalPengeluaran decimal.Decimal) {
	pajakOngkos = gallons.Mul(ongkosPerGallon).Div(ongkosRoundingStep).Ceil().Mul(ongkosRoundingStep)
	base := gallons.Mul(fuelPricePerGallon)
	totalPengeluaran = base.Add(pajakOngkos).Add(pajakTransfer)
	return pajakOngkos, totalPengeluaran
}

type transferBracket struct {
	upTo decimal.Decimal // exclusive upper bound
	tax  decimal.Decimal
}

var transferBrackets = []transferBracket{
	{decimal.NewFromInt(5000), decimal.Zero},
	{decimal.NewFromInt(150000), decimal.NewFromInt(2000)},
	{decimal.NewFromInt(500000), decimal.NewFromInt(3000)},
	{decimal.NewFromInt(1000000), decimal.NewFromInt(5000)},
	{decimal.NewFromInt(5000000), decimal.NewFromInt(7000)},
	{decimal.NewFromInt(10000000), decimal.NewFromInt(10000)},
	{decimal.NewFromInt(25000000), decimal.NewFromInt(15000)},
	{decimal.NewFromInt(50000000), decimal.NewFromInt(20000)},
}

var transferTaxTop = decimal.NewFromInt(25000)

// TransferTax looks up the bank transfer fee for a gross amount.
func TransferTax(gross decimal.Decimal) decimal.Decimal {
	for _, b := range transferBrackets {
		if gross.LessThan(b.upTo) {
			return b.tax
		}
	}
	return transferTaxTop
}

var thousand = decimal.NewFromInt(1000)
var hundred = decimal.NewFromInt(100)
var fiveHundred = decimal.NewFromInt(500)

// RoundResult rounds a transfer result to the business convention:
// remainder of the thousand <= 500 drops to the thousand boundary,
// anything above lands on boundary + 100. Not standard rounding; the
// convention comes from how the stores reconcile transfer slips.
func RoundResult(d decimal.Decimal) decimal.Decimal {
	base := d.Div(thousand).Floor().Mul(thousand)
	remainder := d.Sub(base)
	if remainder.LessThanOrEqual(fiveHundred) {
		return base
	}
	return base.Add(hundred)
}
