package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/smokefree/pkg/errors"
	"github.com/charlesng35/smokefree/pkg/logger"
	"github.com/charlesng35/smokefree/pkg/response"
)

// Recovery converts panics into a 500 response and logs the panic value.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithModule("http").Error("panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", r),
					zap.Stack("stack"),
				)
				response.Error(c, errors.ErrInternalServer)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// NotFoundHandler returns a JSON 404 for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.New("ROUTE_NOT_FOUND", "route "+c.Request.URL.Path+" not found", http.StatusNotFound))
}
