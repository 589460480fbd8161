package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anmoldairy/dairy/internal/domain/models"
)

func txn(id int64, amount float64, at time.Time) models.Transaction {
	return models.Transaction{ID: id, FarmerID: 7, Amount: amount, Timestamp: models.NanosFromTime(at)}
}

func TestBalance_SumOfTransactions(t *testing.T) {
	day := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	txns := []models.Transaction{txn(1, -100, day), txn(2, 50, day), txn(3, -20, day)}

	assert.Equal(t, -70.0, Balance(txns))
	assert.Equal(t, "Amount Due", BalanceLabel(Balance(txns)))
}

func TestBalance_ExactDecimalSum(t *testing.T) {
	day := time.Now()
	txns := []models.Transaction{txn(1, 0.1, day), txn(2, 0.2, day)}

	assert.Equal(t, 0.3, Balance(txns))
	assert.Equal(t, 0.0, Balance(nil))
	assert.Equal(t, "Credit Balance", BalanceLabel(0))
}

func TestSumAmountsAndSaleTotal(t *testing.T) {
	assert.Equal(t, 0.6, SumAmounts(0.1, 0.2, 0.3))
	assert.Equal(t, 3.3, SaleTotal(1.1, 3))
	assert.Equal(t, -250.0, Signed(250, true))
	assert.Equal(t, 250.0, Signed(250, false))
}

func TestSMSSummary_LastThreeNewestFirst(t *testing.T) {
	farmer := models.Farmer{CustomerID: 7, Name: "Ramesh", Phone: "+91 98765-43210"}
	var txns []models.Transaction
	for i := 1; i <= 5; i++ {
		txns = append(txns, txn(int64(i), float64(i*10), time.Date(2026, 2, i, 12, 0, 0, 0, time.UTC)))
	}

	msg := SMSSummary(farmer, 150, txns, "https://dairy.example", time.UTC)

	assert.True(t, strings.HasPrefix(msg, "Ramesh\nBalance: ₹150.00\n\nRecent Transactions:\n"))
	assert.Contains(t, msg, "05/02/2026: ₹50.00\n04/02/2026: ₹40.00\n03/02/2026: ₹30.00")
	assert.NotContains(t, msg, "02/02/2026")
	assert.True(t, strings.HasSuffix(msg, "View full details: https://dairy.example"))
}

func TestSMSURI(t *testing.T) {
	uri := SMSURI("+91 (987) 654-3210", "Balance: ₹10.00\nok")

	assert.True(t, strings.HasPrefix(uri, "sms:+919876543210?body="))
	assert.NotContains(t, uri, " ")
	assert.Contains(t, uri, "Balance%3A%20")
}

func TestNewStatement(t *testing.T) {
	now := time.Now()
	st := NewStatement(models.Farmer{Name: "A"}, -70, nil, now)

	assert.NotNil(t, st.Transactions)
	assert.Equal(t, "Amount Due", st.BalanceLabel)
	assert.Equal(t, now, st.GeneratedAt)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(98765) 43210":   "9876543210",
		"+91 98765-43210": "9876543210",
		"919876543210":    "9876543210",
		"210":             "210",
		"91210":           "91210",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}
