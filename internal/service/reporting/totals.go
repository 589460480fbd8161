package reporting

import (
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/domain/payment"
)

// Row is a priced collection entry as printed on reports and bills.
type Row struct {
	models.CollectionEntry
	FarmerName   string   `json:"farmerName,omitempty"`
	Amount       float64  `json:"amount"`
	LessAdd      *float64 `json:"lessAdd,omitempty"`
	NetMilk      *float64 `json:"netMilk,omitempty"`
	LessAddLabel string   `json:"lessAddLabel"`
}

// Totals are the running sums over report rows.
type Totals struct {
	Quantity float64 `json:"quantity"`
	Fat      float64 `json:"fat"`
	LessAdd  float64 `json:"lessAdd"`
	NetMilk  float64 `json:"netMilk"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// Add accumulates one priced entry. NetMilk falls back to the weight when the
// entry has no less/add adjustment.
func (t *Totals) Add(entry models.CollectionEntry, res payment.Result) {
	t.Quantity += entry.Weight
	t.Fat += entry.Fat
	t.LessAdd += res.LessAddOrZero()
	t.NetMilk += res.NetQuantity(entry.Weight)
	t.Amount += res.Amount
	t.Count++
}

// AverageFat is the plain mean of the fat percentages, not weighted by quantity.
func (t Totals) AverageFat() float64 {
	if t.Count == 0 {
		return 0
	}
	return t.Fat / float64(t.Count)
}

// Summary is the footer line of a report or bill.
type Summary struct {
	Totals
	AverageFat   float64 `json:"averageFat"`
	LessAddLabel string  `json:"lessAddLabel"`
}

// Price prices every entry with its own frozen rate and accumulates the totals.
func Price(entries []models.CollectionEntry, names map[int64]string) ([]Row, Summary) {
	rows := make([]Row, 0, len(entries))
	var totals Totals
	for _, entry := range entries {
		res := payment.ForEntry(entry)
		totals.Add(entry, res)

		row := Row{
			CollectionEntry: entry,
			Amount:          res.Amount,
			LessAdd:         res.LessAdd,
			NetMilk:         res.NetMilk,
			LessAddLabel:    payment.FormatLessAdd(res.LessAddOrZero()),
		}
		if names != nil {
			row.FarmerName = farmerName(names, entry.FarmerID)
		}
		rows = append(rows, row)
	}
	return rows, summarize(totals)
}

func summarize(t Totals) Summary {
	return Summary{Totals: t, AverageFat: t.AverageFat(), LessAddLabel: payment.FormatLessAdd(t.LessAdd)}
}

func farmerName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return "Unknown"
}
