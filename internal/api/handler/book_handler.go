package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type BookHandler struct {
	books      ports.BookService
	enrichment ports.EnrichmentService
}

func NewBookHandler(books ports.BookService, enrichment ports.EnrichmentService) *BookHandler {
	return &BookHandler{books: books, enrichment: enrichment}
}

// Search lists books matching a full-text query, an ISBN or an author.
//
// @Summary      Search books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        q          query     string  false  "Title, description, author name or ISBN"
// @Param        author_id  query     int     false  "Only books by this author"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size (max 100)"
// @Success      200        {object}  listResponse[domain.Book]
// @Router       /v1/books [get]
func (h *BookHandler) Search(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	q := domain.BookQuery{Q: c.QueryParam("q"), Page: page}
	if err := echo.QueryParamsBinder(c).Int64("author_id", &q.AuthorID).BindError(); err != nil {
		return domain.Invalid("author_id must be an integer")
	}
	books, total, err := h.books.Search(c.Request().Context(), actor, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(books, total, page))
}

// Get returns one book with its authors.
//
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  domain.Book
// @Failure      404  {object}  errorResponse
// @Router       /v1/books/{id} [get]
func (h *BookHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	book, err := h.books.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

// Create adds a book.
//
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createBookRequest  true  "Book details"
// @Success      201   {object}  domain.Book
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/books [post]
func (h *BookHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req createBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.books.Create(c.Request().Context(), actor, toBookInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, book)
}

// Update changes book metadata.
//
// @Summary      Update a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Book ID"
// @Param        body  body      updateBookRequest  true  "Fields to change"
// @Success      200   {object}  domain.Book
// @Failure      404   {object}  errorResponse
// @Router       /v1/books/{id} [patch]
func (h *BookHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.books.Update(c.Request().Context(), actor, id, toBookPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

// Delete removes a book that is not on loan.
//
// @Summary      Delete a book
// @Tags         books
// @Security     BearerAuth
// @Param        id   path  int  true  "Book ID"
// @Success      204
// @Failure      409  {object}  errorResponse
// @Router       /v1/books/{id} [delete]
func (h *BookHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.books.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AttachAuthor links an author to a book.
//
// @Summary      Attach an author
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      int  true  "Book ID"
// @Param        authorId  path      int  true  "Author ID"
// @Success      200       {object}  domain.Book
// @Failure      404       {object}  errorResponse
// @Router       /v1/books/{id}/authors/{authorId} [put]
func (h *BookHandler) AttachAuthor(c echo.Context) error {
	return h.linkAuthor(c, h.books.AttachAuthor)
}

// DetachAuthor unlinks an author from a book.
//
// @Summary      Detach an author
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      int  true  "Book ID"
// @Param        authorId  path      int  true  "Author ID"
// @Success      200       {object}  domain.Book
// @Failure      404       {object}  errorResponse
// @Router       /v1/books/{id}/authors/{authorId} [delete]
func (h *BookHandler) DetachAuthor(c echo.Context) error {
	return h.linkAuthor(c, h.books.DetachAuthor)
}

type linkFunc func(ctx context.Context, actor domain.Actor, bookID, authorID int64) (*domain.Book, error)

func (h *BookHandler) linkAuthor(c echo.Context, link linkFunc) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	bookID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	authorID, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	book, err := link(c.Request().Context(), actor, bookID, authorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, book)
}

// Import creates a book from the external catalog and waits for the job.
//
// @Summary      Import a book by ISBN
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      importBookRequest  true  "ISBN to import"
// @Success      201   {object}  domain.Book
// @Failure      404   {object}  errorResponse  "No catalog record, or import did not finish"
// @Failure      409   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/books/import [post]
func (h *BookHandler) Import(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req importBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.enrichment.ImportByISBN(c.Request().Context(), actor, req.ISBN)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, book)
}

// Enrich schedules a metadata refresh from the catalog.
//
// @Summary      Enrich a book
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Book ID"
// @Success      202  {object}  jobResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/books/{id}/enrich [post]
func (h *BookHandler) Enrich(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.enrichment.RequestEnrichment(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, toJobResponse(job))
}
