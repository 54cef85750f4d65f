package ordersvc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/config"
	transport "github.com/shoplite/order-saga/internal/transport/http"
)

// NewRouter builds the order API.
func NewRouter(svc *Service, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(transport.LoggingMiddleware(log))
	r.Use(transport.RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc)
	return r
}

// RegisterHandlers mounts the order endpoints.
func RegisterHandlers(r *gin.Engine, svc *Service) {
	api := r.Group("/api/orders")
	{
		api.POST("/create", createOrderHandler(svc))
		api.GET("/status/:id", orderStatusHandler(svc))
	}
}

func createOrderHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(req.Products) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order has no products"})
			return
		}
		resp, err := svc.Create(c, req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

func orderStatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		status, reason, err := svc.StatusOf(c, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if status == StatusCancelled {
			c.String(http.StatusOK, fmt.Sprintf("Status: %s\nCancellation reason: %s", status, reason))
			return
		}
		c.String(http.StatusOK, string(status))
	}
}
