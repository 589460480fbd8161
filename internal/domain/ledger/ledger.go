// Package ledger derives farmer balances and statements from signed cash transactions.
// Balances are never stored; they are always recomputed from the full history.
package ledger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/domain/payment"
)

// recentTransactions is how many transactions an SMS summary lists.
const recentTransactions = 3

// Balance returns the exact sum of the transaction amounts.
func Balance(txns []models.Transaction) float64 {
	sum := decimal.Zero
	for _, txn := range txns {
		sum = sum.Add(decimal.NewFromFloat(txn.Amount))
	}
	return sum.InexactFloat64()
}

// SumAmounts returns the exact sum of arbitrary signed amounts.
func SumAmounts(amounts ...float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.InexactFloat64()
}

// SaleTotal returns quantity × price per unit.
func SaleTotal(quantity, pricePerUnit float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(pricePerUnit)).InexactFloat64()
}

// Signed converts a positive cash amount into the stored sign convention:
// paying the farmer is a debit (negative), receiving from them a credit.
func Signed(amount float64, pay bool) float64 {
	if pay {
		return -amount
	}
	return amount
}

// BalanceLabel describes what a balance means to the farmer.
func BalanceLabel(balance float64) string {
	if balance < 0 {
		return "Amount Due"
	}
	return "Credit Balance"
}

// Statement is the full transaction history of a farmer with the current balance.
type Statement struct {
	Farmer       models.Farmer        `json:"farmer"`
	Balance      float64              `json:"balance"`
	BalanceLabel string               `json:"balanceLabel"`
	Transactions []models.Transaction `json:"transactions"`
	GeneratedAt  time.Time            `json:"generatedAt"`
}

// NewStatement assembles a statement.
func NewStatement(farmer models.Farmer, balance float64, txns []models.Transaction, now time.Time) Statement {
	if txns == nil {
		txns = []models.Transaction{}
	}
	return Statement{
		Farmer:       farmer,
		Balance:      balance,
		BalanceLabel: BalanceLabel(balance),
		Transactions: txns,
		GeneratedAt:  now,
	}
}

// SMSSummary builds the short balance message sent to a farmer: name, balance,
// the last three transactions newest first and a link to the full details.
func SMSSummary(farmer models.Farmer, balance float64, txns []models.Transaction, link string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	start := len(txns) - recentTransactions
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, recentTransactions)
	for i := len(txns) - 1; i >= start; i-- {
		txn := txns[i]
		lines = append(lines, fmt.Sprintf("%s: %s", txn.Time().In(loc).Format("02/01/2006"), payment.FormatCurrency(txn.Amount)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nBalance: %s\n\nRecent Transactions:\n%s", farmer.Name, payment.FormatCurrency(balance), strings.Join(lines, "\n"))
	if link != "" {
		fmt.Fprintf(&b, "\n\nView full details: %s", link)
	}
	return b.String()
}

var phoneNoise = regexp.MustCompile(`[\s\-()]`)

// CleanPhone strips spaces, dashes and parentheses from a phone number.
func CleanPhone(phone string) string {
	return phoneNoise.ReplaceAllString(phone, "")
}

// NormalizePhone reduces a phone number to its national digits: formatting,
// a leading + and the 91 country code of a 12 digit number are removed.
func NormalizePhone(phone string) string {
	p := strings.TrimPrefix(CleanPhone(phone), "+")
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		return p[2:]
	}
	return p
}

// SMSURI builds an sms: link that opens the messaging app with a prefilled body.
func SMSURI(phone, message string) string {
	return fmt.Sprintf("sms:%s?body=%s", CleanPhone(phone), strings.ReplaceAll(url.QueryEscape(message), "+", "%20"))
}
