package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/core/ports"
)

type AuthorHandler struct {
	authors ports.AuthorService
}

func NewAuthorHandler(authors ports.AuthorService) *AuthorHandler {
	return &AuthorHandler{authors: authors}
}

// List returns a page of authors.
//
// @Summary      List authors
// @Tags         authors
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (1-based)"
// @Param        limit  query     int  false  "Page size (max 100)"
// @Success      200    {object}  listResponse[domain.Author]
// @Router       /v1/authors [get]
func (h *AuthorHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	authors, total, err := h.authors.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(authors, total, page))
}

// Get returns one author.
//
// @Summary      Get an author
// @Tags         authors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Author ID"
// @Success      200  {object}  domain.Author
// @Failure      404  {object}  errorResponse
// @Router       /v1/authors/{id} [get]
func (h *AuthorHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.authors.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Create adds an author.
//
// @Summary      Create an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAuthorRequest  true  "Author details"
// @Success      201   {object}  domain.Author
// @Failure      400   {object}  errorResponse
// @Router       /v1/authors [post]
func (h *AuthorHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req createAuthorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.authors.Create(c.Request().Context(), actor, ports.AuthorInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

// Update changes an author.
//
// @Summary      Update an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Author ID"
// @Param        body  body      updateAuthorRequest  true  "Fields to change"
// @Success      200   {object}  domain.Author
// @Failure      404   {object}  errorResponse
// @Router       /v1/authors/{id} [patch]
func (h *AuthorHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateAuthorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.authors.Update(c.Request().Context(), actor, id, toAuthorPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Delete removes an author. Book links are dropped with it.
//
// @Summary      Delete an author
// @Tags         authors
// @Security     BearerAuth
// @Param        id   path  int  true  "Author ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/authors/{id} [delete]
func (h *AuthorHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.authors.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
