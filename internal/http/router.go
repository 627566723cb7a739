package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/demo"
)

type RouterConfig struct {
	Catalog catalog.Store
	Backend string
	// ReadOnly rejects every write request with 403.
	ReadOnly bool
}

// NewRouter wires the books API and the health check.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(demo.NewMiddleware(cfg.ReadOnly).Handler())

	health := NewHealthController(cfg.Catalog, cfg.Backend)
	books := NewBooksController(cfg.Catalog)

	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// gin requires one wildcard name per path segment, so the ISBN and the book id share :id.
	router.GET("/books", books.SearchByTitle)
	router.GET("/books/:id", books.GetByISBN)
	router.POST("/books/:id/rating", books.RateBook)
	router.GET("/books/:id/reviews", books.GetReviews)
	router.GET("/books/:id/creator", books.GetCreator)

	return router
}
