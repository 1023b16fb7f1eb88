package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type CatalogHandler struct {
	enrichment ports.EnrichmentService
}

func NewCatalogHandler(enrichment ports.EnrichmentService) *CatalogHandler {
	return &CatalogHandler{enrichment: enrichment}
}

// Search queries the external catalog directly.
//
// @Summary      Search the external catalog
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        q            query    string  true   "Free-text query"
// @Param        max_results  query    int     false  "Maximum results (max 40)"
// @Success      200          {array}  domain.CatalogVolume
// @Failure      400          {object} errorResponse
// @Failure      502          {object} errorResponse
// @Router       /v1/catalog/search [get]
func (h *CatalogHandler) Search(c echo.Context) error {
	if _, err := ctxActor(c); err != nil {
		return err
	}
	var maxResults int
	if err := echo.QueryParamsBinder(c).Int("max_results", &maxResults).BindError(); err != nil {
		return domain.Invalid("max_results must be an integer")
	}
	volumes, err := h.enrichment.SearchCatalog(c.Request().Context(), c.QueryParam("q"), maxResults)
	if err != nil {
		return err
	}
	if volumes == nil {
		volumes = []domain.CatalogVolume{}
	}
	return c.JSON(http.StatusOK, volumes)
}
