package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
)

type deleteExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

func (s *Server) ListExpenses(c *gin.Context) {
	expenses, err := s.expenseSvc.List(c.Request.Context(), expensedomain.ListFilter{})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (s *Server) CreateExpense(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req expensedomain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expense, err := s.expenseSvc.Create(c.Request.Context(), caller.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (s *Server) DeleteExpense(c *gin.Context) {
	var req deleteExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expenseID := strings.TrimSpace(req.ExpenseID)
	if expenseID == "" {
		AbortWithError(c, newValidationError("expenseId", "required", "expenseId is required"))
		return
	}

	if err := s.expenseSvc.Delete(c.Request.Context(), expenseID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
