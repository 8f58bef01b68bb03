package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	enginedomain "github.com/dairylink/creditledger/internal/creditengine/domain"
)

func (s *Server) CheckEligibility(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.profileSvc.CheckEligibility(c.Request.Context(), farmerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type grantCreditRequest struct {
	PerformedBy string `json:"performed_by"`
}

func (s *Server) GrantCredit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req grantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	grantedBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	txn, err := s.processor.Grant(c.Request.Context(), farmerID, grantedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

type useCreditRequest struct {
	ProductID         string          `json:"product_id"`
	PackagingOptionID string          `json:"packaging_option_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	PerformedBy       string          `json:"performed_by"`
	Notes             string          `json:"notes"`
}

func (s *Server) UseCredit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req useCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	productID, err := parsePathID(req.ProductID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	packagingID, err := parseOptionalSnowflakeID(req.PackagingOptionID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usedBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.processor.Use(c.Request.Context(), enginedomain.UseRequest{
		FarmerID:       farmerID,
		ProductID:      productID,
		PackagingID:    packagingID,
		Quantity:       req.Quantity,
		UsedBy:         usedBy,
		ApprovalStatus: enginedomain.ApprovalApproved,
		Notes:          optionalString(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type repayCreditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PerformedBy string          `json:"performed_by"`
}

func (s *Server) RepayCredit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req repayCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	repaidBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	txn, err := s.processor.Repay(c.Request.Context(), farmerID, req.Amount, repaidBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

type adjustCreditRequest struct {
	NewLimitPercentage *decimal.Decimal `json:"new_limit_percentage"`
	NewMaxAmount       decimal.Decimal  `json:"new_max_amount"`
	PerformedBy        string           `json:"performed_by"`
	Notes              string           `json:"notes"`
}

func (s *Server) AdjustCreditLimit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req adjustCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	adjustedBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	txn, err := s.processor.Adjust(c.Request.Context(), enginedomain.AdjustRequest{
		FarmerID:      farmerID,
		NewPercentage: req.NewLimitPercentage,
		NewMaxAmount:  req.NewMaxAmount,
		AdjustedBy:    adjustedBy,
		Notes:         optionalString(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

type freezeCreditRequest struct {
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}

func (s *Server) FreezeCredit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req freezeCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	frozenBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.processor.Freeze(c.Request.Context(), farmerID, strings.TrimSpace(req.Reason), frozenBy); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"frozen": true}})
}

func (s *Server) UnfreezeCredit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req grantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	unfrozenBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.processor.Unfreeze(c.Request.Context(), farmerID, unfrozenBy); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"frozen": false}})
}

func (s *Server) SettleCredit(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req grantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	settledBy, err := s.resolvePerformer(c, req.PerformedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	txn, err := s.processor.Settle(c.Request.Context(), farmerID, settledBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

func (s *Server) ListCreditTransactions(c *gin.Context) {
	farmerID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.processor.ListTransactions(c.Request.Context(), farmerID, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RunSettlementSweep(c *gin.Context) {
	if s.sweeper == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	settled, err := s.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"settled": settled}})
}

// resolvePerformer maps an optional auth-space user ID to a staff identity.
// Elevated roles without a staff record resolve to NULL attribution.
func (s *Server) resolvePerformer(c *gin.Context, userID string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, nil
	}
	return s.identity.ResolveStaffID(c.Request.Context(), trimmed)
}
