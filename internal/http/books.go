package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/booksdb/internal/entities"
)

// BookCatalog is the slice of catalog.Store the books API needs.
type BookCatalog interface {
	FindBooksByTitle(ctx context.Context, title string) ([]entities.Book, error)
	FindBooksByISBN(ctx context.Context, isbn string) ([]entities.Book, error)
	RateBook(ctx context.Context, bookID int, rating int, user *entities.User) error
	FindReviewsByBookID(ctx context.Context, bookID int) ([]entities.Review, error)
	FindBookCreator(ctx context.Context, bookID int) (*entities.User, error)
}

// apiUsername is attached to users acting through the API, which only knows their id.
const apiUsername = "api-user"

type RatingRequest struct {
	UserID *int `json:"userId" binding:"required"`
	Rating *int `json:"rating" binding:"required,min=1,max=5"`
}

type BooksController struct {
	catalog BookCatalog
}

func NewBooksController(catalog BookCatalog) *BooksController {
	return &BooksController{catalog: catalog}
}

func (controller *BooksController) SearchByTitle(c *gin.Context) {
	title := c.Query("title")
	if strings.TrimSpace(title) == "" {
		respondBadRequest(c, "title parameter is required")
		return
	}

	books, err := controller.catalog.FindBooksByTitle(c.Request.Context(), title)
	if err != nil {
		respondCatalogError(c, err, "search by title")
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetByISBN returns the first book with the ISBN in the path.
func (controller *BooksController) GetByISBN(c *gin.Context) {
	isbn := strings.TrimSpace(c.Param("id"))
	if isbn == "" {
		respondBadRequest(c, "isbn is required")
		return
	}

	books, err := controller.catalog.FindBooksByISBN(c.Request.Context(), isbn)
	if err != nil {
		respondCatalogError(c, err, "get by isbn")
		return
	}
	if len(books) == 0 {
		respondNotFound(c, "book")
		return
	}
	c.JSON(http.StatusOK, books[0])
}

func (controller *BooksController) RateBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation_failed",
			Details: fieldErrors(err),
		})
		return
	}

	user := &entities.User{ID: *req.UserID, Username: apiUsername}
	if err := controller.catalog.RateBook(c.Request.Context(), bookID, *req.Rating, user); err != nil {
		respondCatalogError(c, err, "rate book")
		return
	}
	c.Status(http.StatusOK)
}

func (controller *BooksController) GetReviews(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reviews, err := controller.catalog.FindReviewsByBookID(c.Request.Context(), bookID)
	if err != nil {
		respondCatalogError(c, err, "get reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (controller *BooksController) GetCreator(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := controller.catalog.FindBookCreator(c.Request.Context(), bookID)
	if err != nil {
		respondCatalogError(c, err, "get creator")
		return
	}
	if user == nil {
		respondNotFound(c, "creator")
		return
	}
	c.JSON(http.StatusOK, user)
}

// fieldErrors flattens validator errors into field -> tag; other bind errors become a single message.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
