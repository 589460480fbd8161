package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/service/dairy"
)

type addProductRequest struct {
	ProductName string  `json:"productName" binding:"required"`
	Quantity    float64 `json:"quantity"`
}

type adjustStockRequest struct {
	Quantity float64 `json:"quantity"`
}

// ListInventory returns every product with its stock.
func (h *DairyHandler) ListInventory(c *gin.Context) {
	inv, err := h.dairy.ListInventory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// AddProduct creates a product.
func (h *DairyHandler) AddProduct(c *gin.Context) {
	var req addProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.dairy.AddProduct(c.Request.Context(), req.ProductName, req.Quantity); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

// AdjustStock adds a signed delta to a product's stock.
func (h *DairyHandler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.dairy.AdjustStock(c.Request.Context(), c.Param("name"), req.Quantity); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSales returns every sale.
func (h *DairyHandler) ListSales(c *gin.Context) {
	sales, err := h.dairy.ListSales(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// RecordSale records a product sale.
func (h *DairyHandler) RecordSale(c *gin.Context) {
	var req dairy.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := h.dairy.RecordSale(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateSale edits a sale.
func (h *DairyHandler) UpdateSale(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req dairy.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.dairy.UpdateSale(c.Request.Context(), id, req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SellBill returns the receipt of a sale.
func (h *DairyHandler) SellBill(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	bill, err := h.reports.SellBill(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// GetRates returns the current rates.
func (h *DairyHandler) GetRates(c *gin.Context) {
	rates, err := h.dairy.GetRates(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// UpdateRates changes the rates applied to future collections.
func (h *DairyHandler) UpdateRates(c *gin.Context) {
	var req models.Rates
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.dairy.UpdateRates(c.Request.Context(), req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
