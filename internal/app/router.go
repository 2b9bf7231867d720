package app

import (
	"net/http"

	"rentalhub/internal/middleware"
	"rentalhub/internal/modules/rental"

	"github.com/gin-gonic/gin"
)

func (a *Application) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	origins := a.Config.CORSOrigins
	if len(origins) == 0 {
		origins = middleware.DefaultCORSOrigins
	}
	r.Use(middleware.ErrorLogger(a.Log), middleware.RequestLogger(a.Log), middleware.CORS(origins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := rental.NewHandler(a.Service())
	handler.RegisterRoutes(r.Group("/api"))
	handler.RegisterImageRoutes(r, a.Config.PublicPrefix)
	return r
}
