package handlers

import (
	"errors"
	"log"
	"net/http"

	"sommelier-backend/models"
	"sommelier-backend/repository"
	"sommelier-backend/service"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles HTTP requests for preferences and plan changes
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// GetPreferences handles GET /api/account/preferences
func (h *AccountHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.accountService.GetPreferences(c.Request.Context(), sessionEmail(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "User not found",
				},
			})
			return
		}
		log.Printf("Preference load error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": "Internal Server Error",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"preferences": prefs},
	})
}

// SavePreferencesRequest represents the request body for saving preferences
type SavePreferencesRequest struct {
	DrynessLevel    string   `json:"dryness_level"`
	FavoriteTypes   []string `json:"favorite_types"`
	DislikedFlavors []string `json:"disliked_flavors"`
	BudgetRange     string   `json:"budget_range"`
	KnowledgeLevel  string   `json:"knowledge_level"`
	LocationZip     string   `json:"location_zip"`
}

// SavePreferences handles POST /api/account/preferences
func (h *AccountHandler) SavePreferences(c *gin.Context) {
	var req SavePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	prefs := models.WinePreferences{
		DrynessLevel:    req.DrynessLevel,
		FavoriteTypes:   req.FavoriteTypes,
		DislikedFlavors: req.DislikedFlavors,
		BudgetRange:     req.BudgetRange,
		KnowledgeLevel:  req.KnowledgeLevel,
		LocationZip:     req.LocationZip,
	}

	err := h.accountService.UpdatePreferences(c.Request.Context(), sessionEmail(c), prefs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPremiumRequired):
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PREMIUM_REQUIRED",
					"message": "Only premium can save preferences",
				},
			})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "User not found",
				},
			})
		default:
			log.Printf("Preference save error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UPDATE_FAILED",
					"message": "Internal Server Error",
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":     "Preferences saved!",
			"preferences": prefs,
		},
	})
}

// UpgradeRequest represents the request body for a plan change
type UpgradeRequest struct {
	NewPlan string `json:"new_plan" binding:"required"`
}

// Upgrade handles POST /api/account/upgrade
func (h *AccountHandler) Upgrade(c *gin.Context) {
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	membership, err := h.accountService.ChangePlan(c.Request.Context(), sessionEmail(c), req.NewPlan)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "User not found",
				},
			})
			return
		}
		log.Printf("Upgrade error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPDATE_FAILED",
				"message": "Internal Server Error",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"membership": membership},
	})
}
