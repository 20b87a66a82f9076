package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tally/internal/authorization"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
)

type orderActionRequest struct {
	OrderID string `json:"orderId"`
	Action  string `json:"action"`
}

func (s *Server) ListOrders(c *gin.Context) {
	orders, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListFilter{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) CreateOrder(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.Create(c.Request.Context(), caller.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// OrderAction toggles completion of an order or deletes it.
func (s *Server) OrderAction(c *gin.Context) {
	var req orderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		AbortWithError(c, newValidationError("orderId", "required", "orderId is required"))
		return
	}

	switch orderdomain.Action(strings.ToLower(strings.TrimSpace(req.Action))) {
	case orderdomain.ActionToggle:
		if err := s.authorize(c, authorization.ObjectOrder, authorization.ActionToggle); err != nil {
			AbortWithError(c, err)
			return
		}
		order, err := s.orderSvc.Toggle(c.Request.Context(), orderID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	case orderdomain.ActionDelete:
		if err := s.authorize(c, authorization.ObjectOrder, authorization.ActionDelete); err != nil {
			AbortWithError(c, err)
			return
		}
		order, err := s.orderSvc.Delete(c.Request.Context(), orderID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully", "order": order})
	default:
		AbortWithError(c, orderdomain.ErrInvalidAction)
	}
}
