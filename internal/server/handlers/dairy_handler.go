package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/service/dairy"
	"github.com/anmoldairy/dairy/internal/service/reporting"
)

// BalanceNotifier pushes a farmer's balance summary to their phone.
type BalanceNotifier interface {
	NotifyBalance(ctx context.Context, farmerID int64) error
}

// BillExporter copies a farmer bill to an external sheet.
type BillExporter interface {
	AppendBill(ctx context.Context, bill reporting.Bill) error
}

// DairyHandler serves the collection center REST API.
type DairyHandler struct {
	dairy    *dairy.Service
	reports  *reporting.Service
	notifier BalanceNotifier
	exporter BillExporter
	logger   *zap.Logger
}

// NewDairyHandler constructs the HTTP handler adapter. notifier and exporter may be nil.
func NewDairyHandler(dairySvc *dairy.Service, reports *reporting.Service, notifier BalanceNotifier, exporter BillExporter, logger *zap.Logger) *DairyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DairyHandler{dairy: dairySvc, reports: reports, notifier: notifier, exporter: exporter, logger: logger}
}

// --- farmers ---

// ListFarmers returns every farmer.
func (h *DairyHandler) ListFarmers(c *gin.Context) {
	farmers, err := h.dairy.ListFarmers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmers)
}

// AddFarmer registers a farmer.
func (h *DairyHandler) AddFarmer(c *gin.Context) {
	var req dairy.FarmerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := h.dairy.AddFarmer(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customerID": id})
}

// GetFarmer returns one farmer.
func (h *DairyHandler) GetFarmer(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	farmer, err := h.dairy.GetFarmer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmer)
}

type updateFarmerRequest struct {
	dairy.FarmerInput
	NewCustomerID int64 `json:"newCustomerID"`
}

// UpdateFarmer edits a farmer, optionally moving them to a new customer id.
func (h *DairyHandler) UpdateFarmer(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req updateFarmerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	newID := req.NewCustomerID
	if newID == 0 {
		newID = id
	}
	if err := h.dairy.UpdateFarmer(c.Request.Context(), id, req.FarmerInput, newID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customerID": newID})
}

// --- collections ---

// RecordCollection saves a collection entry priced with the current rate.
func (h *DairyHandler) RecordCollection(c *gin.Context) {
	var req dairy.CollectionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	preview, err := h.dairy.RecordCollection(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, preview)
}

// PreviewCollection prices a measurement without saving it.
func (h *DairyHandler) PreviewCollection(c *gin.Context) {
	var req dairy.CollectionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	preview, err := h.dairy.PreviewCollection(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// SessionCollections returns one raw page of a session's entries.
func (h *DairyHandler) SessionCollections(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	session, err := models.ParseSession(c.Param("session"))
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	entries, err := h.dairy.SessionCollections(c.Request.Context(), session, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// FarmerCollections returns one raw page of a farmer's entries.
func (h *DairyHandler) FarmerCollections(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	entries, err := h.dairy.FarmerCollections(c.Request.Context(), id, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// UpdateCollection edits a stored entry.
func (h *DairyHandler) UpdateCollection(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	entryID, err := int64Param(c, "entryId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req dairy.CollectionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.dairy.UpdateCollection(c.Request.Context(), id, entryID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- cash ledger ---

// Transactions returns one page of a farmer's transactions.
func (h *DairyHandler) Transactions(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	txns, err := h.dairy.Transactions(c.Request.Context(), id, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// RecordCash posts a payment or receipt.
func (h *DairyHandler) RecordCash(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req dairy.CashInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	txnID, err := h.dairy.RecordCash(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": txnID})
}

// UpdateCash edits a transaction.
func (h *DairyHandler) UpdateCash(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	txnID, err := int64Param(c, "txnId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req dairy.CashInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.dairy.UpdateCash(c.Request.Context(), id, txnID, req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Balance returns the farmer's balance with its display label.
func (h *DairyHandler) Balance(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	balance, err := h.dairy.Balance(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "label": ledger.BalanceLabel(balance)})
}

// Statement returns the full account statement.
func (h *DairyHandler) Statement(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	st, err := h.reports.Statement(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// BalanceSMS returns the balance summary text and the sms: link opening it.
func (h *DairyHandler) BalanceSMS(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	msg, err := h.reports.BalanceSMS(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// NotifyBalance sends the balance summary over WhatsApp.
func (h *DairyHandler) NotifyBalance(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "messaging is not configured"})
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.notifier.NotifyBalance(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// --- bills and reports ---

func (h *DairyHandler) billRange(c *gin.Context) (reporting.DateRange, error) {
	loc := h.reports.Location()
	from, err := dateQuery(c, "from", loc)
	if err != nil {
		return reporting.DateRange{}, err
	}
	to, err := dateQuery(c, "to", loc)
	if err != nil {
		return reporting.DateRange{}, err
	}
	today := time.Now().In(loc)
	if from == nil {
		from = &today
	}
	if to == nil {
		to = &today
	}
	return reporting.NewDateRange(*from, *to, loc)
}

func (h *DairyHandler) farmerBill(c *gin.Context) (reporting.Bill, error) {
	id, err := int64Param(c, "id")
	if err != nil {
		return reporting.Bill{}, err
	}
	rng, err := h.billRange(c)
	if err != nil {
		return reporting.Bill{}, err
	}
	return h.reports.FarmerBill(c.Request.Context(), id, rng)
}

// FarmerBill returns the bill of a farmer for ?from&to (both default to today).
func (h *DairyHandler) FarmerBill(c *gin.Context) {
	bill, err := h.farmerBill(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// ExportFarmerBill appends the bill to the configured spreadsheet.
func (h *DairyHandler) ExportFarmerBill(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sheet export is not configured"})
		return
	}
	bill, err := h.farmerBill(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.exporter.AppendBill(c.Request.Context(), bill); err != nil {
		h.logger.Error("bill export failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to export bill"})
		return
	}
	c.Status(http.StatusAccepted)
}

// SessionReport returns the full report for ?session (default both) and optional ?from&to.
func (h *DairyHandler) SessionReport(c *gin.Context) {
	filter, err := models.ParseSessionFilter(c.Query("session"))
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	loc := h.reports.Location()
	from, err := dateQuery(c, "from", loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := dateQuery(c, "to", loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var rng *reporting.DateRange
	if from != nil || to != nil {
		if from == nil {
			from = to
		}
		if to == nil {
			to = from
		}
		r, err := reporting.NewDateRange(*from, *to, loc)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		rng = &r
	}

	report, err := h.reports.SessionReport(c.Request.Context(), filter, rng)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SessionReportPage returns one page of the report screen for ?session&page and optional ?date.
func (h *DairyHandler) SessionReportPage(c *gin.Context) {
	filter, err := models.ParseSessionFilter(c.Query("session"))
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	day, err := dateQuery(c, "date", h.reports.Location())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	report, err := h.reports.SessionReportPage(c.Request.Context(), filter, page, day)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DailyReport returns the summary of ?session on ?date (default today).
func (h *DairyHandler) DailyReport(c *gin.Context) {
	session, err := models.ParseSession(c.Query("session"))
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	day, err := dateQuery(c, "date", h.reports.Location())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if day == nil {
		today := time.Now().In(h.reports.Location())
		day = &today
	}
	report, err := h.reports.DailyReport(c.Request.Context(), *day, session)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
