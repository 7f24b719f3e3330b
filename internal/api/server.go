package api

import (
	"net/http"
	"time"

	"github.com/contactkeval/option-impvol/internal/impliedvol"
	"github.com/contactkeval/option-impvol/internal/logger"
	"github.com/contactkeval/option-impvol/internal/quote"
	"github.com/gin-gonic/gin"
)

// Defaults fill the market and solver inputs a request leaves out.
type Defaults struct {
	Rate         float64
	Dividend     float64
	InitialGuess float64
	Tolerance    float64
}

// Server serves HTTP requests for the pricing and implied volatility service.
type Server struct {
	solver   impliedvol.Solver
	quotes   *quote.Service
	defaults Defaults
	router   *gin.Engine
}

// NewServer creates a new HTTP server and set up routing. quotes may be nil,
// in which case /v1/quote is not served.
func NewServer(solver impliedvol.Solver, quotes *quote.Service, defaults Defaults) *Server {
	server := &Server{solver: solver, quotes: quotes, defaults: defaults}

	server.setupRouter()
	return server
}

func (server *Server) setupRouter() {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)

	router.GET("/health", server.health)

	v1 := router.Group("/v1")
	v1.POST("/price", server.price)
	v1.POST("/impliedvol", server.impliedVol)
	if server.quotes != nil {
		v1.POST("/quote", server.quote)
	}
	server.router = router
}

// Handler exposes the router, e.g. for an http.Server with timeouts.
func (server *Server) Handler() http.Handler {
	return server.router
}

func (server *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}
