package handler

import (
	"context"
	"net/http"
	"strconv"

	"tradecore/internal/apperr"
	"tradecore/internal/dto"
	"tradecore/internal/middleware"
	"tradecore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DealsHandler struct{ svc service.DealService }

func NewDealsHandler(svc service.DealService) *DealsHandler { return &DealsHandler{svc: svc} }

func dealIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.InvalidInput("invalid deal id"))
		return uuid.Nil, false
	}
	return id, true
}

// Create godoc
// @Summary      Create a deal
// @Description  Opens a new deal; the authenticated company becomes the buyer. Writes version 1 and the first history entry atomically.
// @Tags         deals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateDealRequest true "Deal contents"
// @Success      201  {object} dto.DealResponse
// @Failure      400  {object} apperr.Error
// @Router       /v1/deals [post]
func (h *DealsHandler) Create(c *gin.Context) {
	var req dto.CreateDealRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateDeal(c.Request.Context(), middleware.CallerCompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary      Fetch a deal
// @Description  Resolves the latest version unless an explicit ?version=N is requested.
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string true  "Deal business id"
// @Param        version query int    false "Exact version to fetch"
// @Success      200  {object} dto.DealResponse
// @Failure      404  {object} apperr.Error
// @Router       /v1/deals/{id} [get]
func (h *DealsHandler) Get(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	var version *int
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, apperr.InvalidInput("version must be a positive integer"))
			return
		}
		version = &v
	}
	resp, err := h.svc.Get(c.Request.Context(), dealID, middleware.CallerCompanyID(c), version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateVersion godoc
// @Summary      Create a new deal version
// @Description  Clones the latest version with scalar overrides, increments the version counter and resets approval state. Returns 409 when another writer incremented concurrently.
// @Tags         deals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "Deal business id"
// @Param        body body dto.DealOverridesRequest true "Scalar overrides"
// @Success      201  {object} dto.DealResponse
// @Failure      409  {object} apperr.Error
// @Router       /v1/deals/{id}/versions [post]
func (h *DealsHandler) CreateVersion(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	var req dto.DealOverridesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateVersion(c.Request.Context(), dealID, middleware.CallerCompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary      Update the latest version in place
// @Description  Mutates scalar fields and optionally replaces the item set without creating a new version.
// @Tags         deals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "Deal business id"
// @Param        body body dto.UpdateDealRequest true "Partial field set"
// @Success      200  {object} dto.DealResponse
// @Failure      404  {object} apperr.Error
// @Router       /v1/deals/{id} [put]
func (h *DealsHandler) Update(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	var req dto.UpdateDealRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateLatest(c.Request.Context(), dealID, middleware.CallerCompanyID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteLastVersion godoc
// @Summary      Roll back the latest version
// @Description  Removes only the latest version row; the previous version becomes latest again. Removing the only version removes the deal.
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Deal business id"
// @Success      200  {object} dto.DeleteVersionResponse
// @Failure      404  {object} apperr.Error
// @Router       /v1/deals/{id}/versions/last [delete]
func (h *DealsHandler) DeleteLastVersion(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.DeleteLastVersion(c.Request.Context(), dealID, middleware.CallerCompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Delete a deal entirely
// @Description  Removes every version, item, document form and history entry of the deal. Irreversible.
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Deal business id"
// @Success      200  {object} dto.DeleteDealResponse
// @Failure      404  {object} apperr.Error
// @Router       /v1/deals/{id} [delete]
func (h *DealsHandler) Delete(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.DeleteDeal(c.Request.Context(), dealID, middleware.CallerCompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Propose godoc
// @Summary      Propose the current version for approval
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Deal business id"
// @Success      200  {object} dto.DealResponse
// @Failure      409  {object} apperr.Error
// @Router       /v1/deals/{id}/propose [post]
func (h *DealsHandler) Propose(c *gin.Context) {
	h.runTransition(c, h.svc.Propose)
}

// Accept godoc
// @Summary      Accept the current version
// @Description  Records the caller's acceptance; when both parties have accepted, the deal transitions to completed and the confirmation document is dispatched.
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Deal business id"
// @Success      200  {object} dto.DealResponse
// @Failure      409  {object} apperr.Error
// @Router       /v1/deals/{id}/accept [post]
func (h *DealsHandler) Accept(c *gin.Context) {
	h.runTransition(c, h.svc.Accept)
}

// Reject godoc
// @Summary      Reject the current version
// @Description  Clears prior partial acceptance; the rejection is terminal for this version, a new version restarts the proposal.
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Deal business id"
// @Success      200  {object} dto.DealResponse
// @Failure      409  {object} apperr.Error
// @Router       /v1/deals/{id}/reject [post]
func (h *DealsHandler) Reject(c *gin.Context) {
	h.runTransition(c, h.svc.Reject)
}

func (h *DealsHandler) runTransition(c *gin.Context, op func(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error)) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	resp, err := op(c.Request.Context(), dealID, middleware.CallerCompanyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary      Deal change history
// @Description  Paginated append-only audit trail of structural changes, newest first.
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string true  "Deal business id"
// @Param        page  query int    false "Page (default 1)"
// @Param        limit query int    false "Entries per page (default 50)"
// @Success      200  {object} dto.HistoryListResponse
// @Failure      404  {object} apperr.Error
// @Router       /v1/deals/{id}/history [get]
func (h *DealsHandler) History(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	var filter dto.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apperr.InvalidInput("invalid pagination parameters").Wrap(err))
		return
	}
	resp, err := h.svc.History(c.Request.Context(), dealID, middleware.CallerCompanyID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
