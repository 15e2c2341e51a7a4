// Package web exposes the import operations over HTTP. It is a thin caller
// surface: no reconciliation logic lives here, and authentication is left
// to the deployment in front of it.
package web

import (
	"github.com/gin-gonic/gin"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/importer"
)

// Server is the import HTTP server.
type Server struct {
	service *importer.Service
	router  *gin.Engine
}

// NewServer creates the server and wires its routes.
func NewServer(service *importer.Service) *Server {
	router := gin.Default()

	s := &Server{
		service: service,
		router:  router,
	}

	api := router.Group("/api")
	{
		api.POST("/imports", s.handleStage)
		api.GET("/imports/precheck", s.handlePrecheck)
		api.POST("/imports/:token/confirm", s.handleConfirm)
		api.DELETE("/imports/:token", s.handleDiscard)
		api.DELETE("/records", s.handleDeletePeriod)
	}

	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run starts the server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
