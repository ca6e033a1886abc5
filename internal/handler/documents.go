package handler

import (
	"net/http"

	"tradecore/internal/dto"
	"tradecore/internal/middleware"
	"tradecore/internal/service"

	"github.com/gin-gonic/gin"
)

type DocumentsHandler struct{ svc service.DocumentService }

func NewDocumentsHandler(svc service.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{svc: svc}
}

// Get godoc
// @Summary      Fetch a deal document form
// @Description  Returns the shared form for the document type. When nothing has been saved yet, responds with an empty payload without creating a row; updated_by is null in that case.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string true "Deal business id"
// @Param        doc_type path string true "order | bill | supply_contract | act | invoice | contract | others"
// @Success      200  {object} dto.DocumentResponse
// @Failure      400  {object} apperr.Error
// @Router       /v1/deals/{id}/documents/{doc_type} [get]
func (h *DocumentsHandler) Get(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), dealID, middleware.CallerCompanyID(c), c.Param("doc_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Save godoc
// @Summary      Save a deal document form
// @Description  Overwrites the whole payload last-writer-wins and stamps the caller as the writer. Clients compare the returned updated_at/updated_by against their last-seen values to warn about counterparty edits; sending expected_updated_at makes the server reject stale writes with 409 instead.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string                  true "Deal business id"
// @Param        doc_type path string                  true "Document type"
// @Param        body     body dto.SaveDocumentRequest true "Form payload"
// @Success      200  {object} dto.DocumentResponse
// @Failure      409  {object} apperr.Error
// @Router       /v1/deals/{id}/documents/{doc_type} [put]
func (h *DocumentsHandler) Save(c *gin.Context) {
	dealID, ok := dealIDParam(c)
	if !ok {
		return
	}
	var req dto.SaveDocumentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Save(c.Request.Context(), dealID, middleware.CallerCompanyID(c), c.Param("doc_type"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
