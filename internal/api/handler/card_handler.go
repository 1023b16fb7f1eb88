package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type CardHandler struct {
	cards ports.CardService
}

func NewCardHandler(cards ports.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// Create adds one FREE card.
//
// @Summary      Create a membership card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCardRequest  true  "Card serial"
// @Success      201   {object}  domain.MembershipCard
// @Failure      409   {object}  errorResponse
// @Router       /v1/cards [post]
func (h *CardHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req createCardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	card, err := h.cards.Create(c.Request().Context(), actor, req.SerialNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, card)
}

// Seed adds a batch of sequentially numbered FREE cards.
//
// @Summary      Seed membership cards
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      seedCardsRequest  true  "Batch size and serial prefix"
// @Success      201   {array}   domain.MembershipCard
// @Failure      400   {object}  errorResponse
// @Router       /v1/cards/seed [post]
func (h *CardHandler) Seed(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req seedCardsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cards, err := h.cards.Seed(c.Request().Context(), actor, req.Count, req.Prefix)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cards)
}

// List returns a page of cards.
//
// @Summary      List membership cards
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "FREE or IN_USE"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  listResponse[domain.MembershipCard]
// @Router       /v1/cards [get]
func (h *CardHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	filter := domain.CardFilter{Status: domain.CardStatus(c.QueryParam("status")), Page: page}
	cards, total, err := h.cards.List(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newList(cards, total, page))
}

// Get returns one card.
//
// @Summary      Get a membership card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  domain.MembershipCard
// @Failure      404  {object}  errorResponse
// @Router       /v1/cards/{id} [get]
func (h *CardHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	card, err := h.cards.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, card)
}

// Assign hands a FREE card to a user who holds none.
//
// @Summary      Assign a membership card
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Card ID"
// @Param        body  body      assignCardRequest  true  "Target user"
// @Success      200   {object}  domain.MembershipCard
// @Failure      409   {object}  errorResponse
// @Router       /v1/cards/{id}/assign [post]
func (h *CardHandler) Assign(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req assignCardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	card, err := h.cards.Assign(c.Request().Context(), actor, id, req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, card)
}

// Archive retires a card permanently.
//
// @Summary      Archive a membership card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  domain.MembershipCard
// @Failure      409  {object}  errorResponse
// @Router       /v1/cards/{id}/archive [post]
func (h *CardHandler) Archive(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	card, err := h.cards.Archive(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, card)
}
