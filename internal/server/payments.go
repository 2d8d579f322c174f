package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
)

type createOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type createOrderResponse struct {
	OrderID  string `json:"order_id"`
	KeyID    string `json:"key_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Credits  int64  `json:"credits"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

func (s *Server) CreatePaymentOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	result, err := s.paymentSvc.CreateOrder(c.Request.Context(), actor, paymentdomain.CreateOrderRequest{
		Amount: req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": createOrderResponse{
		OrderID:  result.Payment.OrderID,
		KeyID:    result.KeyID,
		Amount:   result.Payment.Amount,
		Currency: result.Payment.Currency,
		Credits:  result.Payment.Credits,
	}})
}

func (s *Server) VerifyPayment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	payment, err := s.paymentSvc.Verify(c.Request.Context(), actor, paymentdomain.VerifyRequest{
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) PaymentReceipt(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(c.Param("order_id"))
	if orderID == "" {
		AbortWithError(c, paymentdomain.ErrNotFound)
		return
	}

	receipt, err := s.paymentSvc.Receipt(c.Request.Context(), actor, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := io.ReadAll(receipt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+orderID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", body)
}
