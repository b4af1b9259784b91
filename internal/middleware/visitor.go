package middleware

import (
	"net/http"
	"strings"

	"trustme_backend/internal/service"
	"trustme_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	visitorCookie    = "tm_uid"
	visitorKey       = "visitor_id"
	visitorCookieAge = 365 * 24 * 60 * 60
)

// Visitor resolves the caller's identity from the visitor cookie,
// creates the user lazily and captures ?ref=CODE referral binds on any
// request.
type Visitor struct {
	wallets   service.WalletServiceI
	referrals service.ReferralServiceI
}

func NewVisitor(wallets service.WalletServiceI, referrals service.ReferralServiceI) *Visitor {
	return &Visitor{
		wallets:   wallets,
		referrals: referrals,
	}
}

func (v *Visitor) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		id, err := c.Cookie(visitorCookie)
		if err != nil || id == "" {
			id = newVisitorID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(visitorCookie, id, visitorCookieAge, "/", "", false, true)
		}
		c.Set(visitorKey, id)

		if _, err := v.wallets.EnsureUser(c.Request.Context(), id); err != nil {
			log.Error("failed to ensure visitor user", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		// Referral capture. A failed bind must not break the request.
		if ref := strings.TrimSpace(c.Query("ref")); ref != "" {
			if err := v.referrals.Bind(c.Request.Context(), id, strings.ToUpper(ref)); err != nil {
				log.Warn("failed to capture referral",
					zap.String("visitor_id", id),
					zap.Error(err))
			}
		}

		c.Next()
	}
}

// VisitorID returns the identity set by Identify for the current request.
func VisitorID(c *gin.Context) string {
	return c.GetString(visitorKey)
}

func newVisitorID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:10]
}
