package dltsvc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	transport "github.com/shoplite/order-saga/internal/transport/http"
)

// NewRouter builds the read-only dead-letter report API.
func NewRouter(svc *Service, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(transport.LoggingMiddleware(log))
	RegisterHandlers(r, svc)
	return r
}

// RegisterHandlers mounts the report endpoint.
func RegisterHandlers(r *gin.Engine, svc *Service) {
	r.GET("/api/errors", listErrorsHandler(svc))
}

func listErrorsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		dtos, err := svc.RetrieveAll(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dtos)
	}
}
