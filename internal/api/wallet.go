package api

import (
	"errors"
	"net/http"
	"strconv"

	"trustme_backend/internal/middleware"
	"trustme_backend/internal/repository"
	"trustme_backend/internal/service"
	"trustme_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultTxPageSize = 100

type walletRoutes struct {
	ws service.WalletServiceI
}

func NewWalletRoutes(handler *gin.RouterGroup, ws service.WalletServiceI) {
	r := &walletRoutes{ws: ws}
	h := handler.Group("/wallet")
	{
		h.GET("/balance", r.GetBalance)
		h.GET("/tx", r.ListTransactions)
		h.POST("/deposit", r.Deposit)
		h.POST("/withdraw", r.Withdraw)
	}
}

func (r *walletRoutes) GetBalance(c *gin.Context) {
	log := logger.Logger()

	visitorID := middleware.VisitorID(c)
	wallet, err := r.ws.Balance(c.Request.Context(), visitorID)
	if err != nil {
		log.Error("failed to get wallet balance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": wallet.Balance,
		"pending": wallet.Pending,
		"address": "TMUSDT-DEMO-" + shortID(visitorID),
	})
}

func (r *walletRoutes) ListTransactions(c *gin.Context) {
	log := logger.Logger()

	limit := defaultTxPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	rows, err := r.ws.Transactions(c.Request.Context(), middleware.VisitorID(c), limit)
	if err != nil {
		log.Error("failed to list transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *walletRoutes) Deposit(c *gin.Context) {
	log := logger.Logger()

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid amount"})
		return
	}

	tx, err := r.ws.Deposit(c.Request.Context(), middleware.VisitorID(c), req.Amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid amount"})
	case errors.Is(err, repository.ErrSnapshotIO):
		log.Error("deposit durability failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "durability failure"})
	case err != nil:
		log.Error("failed to record deposit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "tx": tx})
	}
}

func (r *walletRoutes) Withdraw(c *gin.Context) {
	log := logger.Logger()

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid amount"})
		return
	}

	tx, err := r.ws.Withdraw(c.Request.Context(), middleware.VisitorID(c), req.Amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid amount"})
	case errors.Is(err, service.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "insufficient balance"})
	case errors.Is(err, repository.ErrSnapshotIO):
		log.Error("withdrawal durability failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "durability failure"})
	case err != nil:
		log.Error("failed to record withdrawal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "tx": tx})
	}
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
