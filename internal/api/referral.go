package api

import (
	"errors"
	"net/http"
	"strings"

	"trustme_backend/internal/middleware"
	"trustme_backend/internal/model"
	"trustme_backend/internal/repository"
	"trustme_backend/internal/service"
	"trustme_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type referralRoutes struct {
	rs service.ReferralServiceI
}

func NewReferralRoutes(handler *gin.RouterGroup, rs service.ReferralServiceI) {
	r := &referralRoutes{rs: rs}
	h := handler.Group("/referral")
	{
		h.GET("/my", r.GetMyCode)
		h.GET("/stats", r.GetMyStats)
		h.GET("/by/:code", r.GetStatsByCode)
		h.POST("/bind", r.Bind)
	}
}

func (r *referralRoutes) GetMyCode(c *gin.Context) {
	log := logger.Logger()

	rec, err := r.rs.MyCode(c.Request.Context(), middleware.VisitorID(c))
	if err != nil {
		log.Error("failed to get referral code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": rec.Code,
		"link": originBase(c) + "/?ref=" + rec.Code,
	})
}

func (r *referralRoutes) GetMyStats(c *gin.Context) {
	log := logger.Logger()

	rec, err := r.rs.MyCode(c.Request.Context(), middleware.VisitorID(c))
	if err != nil {
		log.Error("failed to get referral code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	tree, err := r.rs.Stats(c.Request.Context(), rec.Code)
	if err != nil {
		log.Error("failed to compute referral stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, treeResponse(rec.Code, tree))
}

func (r *referralRoutes) GetStatsByCode(c *gin.Context) {
	log := logger.Logger()

	code := strings.ToUpper(c.Param("code"))
	tree, err := r.rs.Stats(c.Request.Context(), code)
	if err != nil {
		log.Error("failed to compute referral stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, treeResponse(code, tree))
}

type BindRequest struct {
	Code string `json:"code"`
}

func (r *referralRoutes) Bind(c *gin.Context) {
	log := logger.Logger()

	var req BindRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "code required"})
		return
	}

	err := r.rs.Bind(c.Request.Context(), middleware.VisitorID(c), strings.ToUpper(strings.TrimSpace(req.Code)))
	switch {
	case errors.Is(err, repository.ErrSnapshotIO):
		log.Error("bind durability failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "durability failure"})
	case err != nil:
		log.Error("failed to bind referral", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func treeResponse(code string, tree *model.ReferralTree) gin.H {
	return gin.H{
		"code":   code,
		"tier1":  tree.Tier1,
		"tier2":  tree.Tier2,
		"tier3":  tree.Tier3,
		"counts": tree.Counts,
	}
}

// originBase reconstructs the externally visible origin, honoring the
// proxy headers the deployment sits behind.
func originBase(c *gin.Context) string {
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if c.Request.TLS != nil {
			proto = "https"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host
}
