package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/api/metrics"
	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type LoanHandler struct {
	loans ports.LoanService
}

func NewLoanHandler(loans ports.LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Create lends a book. Members borrow for themselves; admins may pass user_id.
//
// @Summary      Borrow a book
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createLoanRequest  true  "Book, optional borrower and due date"
// @Success      201   {object}  domain.Loan
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "Book already loaned"
// @Router       /v1/loans [post]
func (h *LoanHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req createLoanRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	loan, err := h.loans.Create(c.Request().Context(), actor, ports.CreateLoanInput{
		BookID: req.BookID,
		UserID: req.UserID,
		DueAt:  req.DueAt,
	})
	if err != nil {
		return err
	}
	metrics.LoansCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, loan)
}

// Return closes a loan. Only the borrower may return it.
//
// @Summary      Return a book
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Loan ID"
// @Success      200  {object}  domain.Loan
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse  "Already returned"
// @Router       /v1/loans/{id}/return [post]
func (h *LoanHandler) Return(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	loan, err := h.loans.Return(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	metrics.LoansReturnedTotal.WithLabelValues(string(loan.Status)).Inc()
	return c.JSON(http.StatusOK, loan)
}

// Get returns one loan visible to the caller.
//
// @Summary      Get a loan
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Loan ID"
// @Success      200  {object}  domain.Loan
// @Failure      404  {object}  errorResponse
// @Router       /v1/loans/{id} [get]
func (h *LoanHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	loan, err := h.loans.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}

// Ongoing lists unreturned loans. Members only ever see their own.
//
// @Summary      List ongoing loans
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query    int  false  "Borrower (admins only)"
// @Success      200      {array}  domain.Loan
// @Router       /v1/loans/ongoing [get]
func (h *LoanHandler) Ongoing(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var userID int64
	if err := echo.QueryParamsBinder(c).Int64("user_id", &userID).BindError(); err != nil {
		return domain.Invalid("user_id must be an integer")
	}
	loans, err := h.loans.FindOngoing(c.Request().Context(), actor, userID)
	if err != nil {
		return err
	}
	if loans == nil {
		loans = []*domain.Loan{}
	}
	return c.JSON(http.StatusOK, loans)
}

// List returns loans visible to the caller.
//
// @Summary      List loans
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query    int   false  "Borrower (admins only)"
// @Param        book_id  query    int   false  "Book"
// @Param        ongoing  query    bool  false  "Only unreturned loans"
// @Param        page     query    int   false  "Page (1-based)"
// @Param        limit    query    int   false  "Page size (max 100)"
// @Success      200      {array}  domain.Loan
// @Router       /v1/loans [get]
func (h *LoanHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	filter := domain.LoanFilter{Page: page}
	err = echo.QueryParamsBinder(c).
		Int64("user_id", &filter.UserID).
		Int64("book_id", &filter.BookID).
		Bool("ongoing", &filter.OngoingOnly).
		BindError()
	if err != nil {
		return domain.Invalid("user_id, book_id and ongoing must be well formed")
	}
	loans, err := h.loans.List(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	if loans == nil {
		loans = []*domain.Loan{}
	}
	return c.JSON(http.StatusOK, loans)
}
