package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"sommelier-backend/service"

	"github.com/gin-gonic/gin"
)

// BillingHandler handles HTTP requests for subscription billing
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// CreateCheckoutSession handles POST /api/billing/checkout-session
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	url, err := h.billingService.CreateCheckoutSession(c.Request.Context(), sessionEmail(c))
	if err != nil {
		log.Printf("Error creating checkout session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CHECKOUT_FAILED",
				"message": "Checkout session creation failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"url": url},
	})
}

// Webhook handles POST /api/billing/webhook. The raw body is needed for
// signature verification, so no JSON binding happens here.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.billingService.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, service.ErrWebhookSignature) {
			log.Printf("Webhook signature verification failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook Error: invalid signature"})
			return
		}
		log.Printf("Webhook processing error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
