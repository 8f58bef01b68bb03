package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	requestdomain "github.com/dairylink/creditledger/internal/creditrequest/domain"
)

type createCreditRequestBody struct {
	FarmerID          string          `json:"farmer_id"`
	ProductID         string          `json:"product_id"`
	PackagingOptionID string          `json:"packaging_option_id"`
	Quantity          decimal.Decimal `json:"quantity"`
}

func (s *Server) CreateCreditRequest(c *gin.Context) {
	var req createCreditRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	farmerID, err := parsePathID(req.FarmerID)
	if err != nil {
		AbortWithError(c, err)
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

	resp, err := s.requestSvc.Create(c.Request.Context(), requestdomain.CreateRequest{
		FarmerID:    farmerID,
		ProductID:   productID,
		PackagingID: packagingID,
		Quantity:    req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCreditRequests(c *gin.Context) {
	var query struct {
		FarmerID string `form:"farmer_id"`
		Status   string `form:"status"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	farmerID, err := parseOptionalSnowflakeID(query.FarmerID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	filter := requestdomain.ListFilter{
		FarmerID: farmerID,
		Limit:    query.Limit,
	}
	if trimmed := strings.TrimSpace(query.Status); trimmed != "" {
		status := requestdomain.Status(trimmed)
		filter.Status = &status
	}

	resp, err := s.requestSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCreditRequestByID(c *gin.Context) {
	requestID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.requestSvc.Get(c.Request.Context(), requestID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type decideCreditRequestBody struct {
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}

func (s *Server) ApproveCreditRequest(c *gin.Context) {
	requestID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req decideCreditRequestBody
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.requestSvc.Approve(c.Request.Context(), requestID, strings.TrimSpace(req.PerformedBy))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectCreditRequest(c *gin.Context) {
	requestID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req decideCreditRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.requestSvc.Reject(c.Request.Context(), requestID, strings.TrimSpace(req.Reason), strings.TrimSpace(req.PerformedBy))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
