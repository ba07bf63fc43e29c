package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/adaptivestartup/webhooks-platform/src/signature"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxVendorBodySize = 1 << 20 // 1 MiB

// VerifyVendorSignature verifies the vendor webhook signature header against
// the exact raw request body. Every rejection is the same generic 401 so the
// response never reveals which check failed. On success the raw body is
// stored in the context for the handler.
//
// An empty secret is never a valid signing key: anyone can compute HMACs with
// it, so the middleware rejects every request until one is configured.
func VerifyVendorSignature(secret, headerName string) gin.HandlerFunc {
	if secret == "" {
		log.Error().Msg("Vendor webhook secret not configured; rejecting all vendor webhook requests")
		return func(c *gin.Context) {
			unauthorized(c)
		}
	}

	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxVendorBodySize+1))
		if err != nil || len(body) > maxVendorBodySize {
			log.Warn().Err(err).Msg("Vendor webhook body unreadable or too large")
			unauthorized(c)
			return
		}
		// Handlers downstream may still read the body the usual way
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		header := c.GetHeader(headerName)
		if header == "" {
			log.Warn().Msg("Vendor webhook missing signature header")
			unauthorized(c)
			return
		}

		if err := signature.VerifyHeader(secret, header, body); err != nil {
			// Detail stays server-side only
			log.Warn().Err(err).Msg("Vendor webhook signature rejected")
			unauthorized(c)
			return
		}

		c.Set("raw_body", body)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	c.Abort()
}

// RawBody returns the verified request body stored by VerifyVendorSignature
func RawBody(c *gin.Context) []byte {
	if v, ok := c.Get("raw_body"); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}
