package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/montazh-backend/internal/dto"
	"github.com/ignatzorin/montazh-backend/internal/http/handlers/common"
	"github.com/ignatzorin/montazh-backend/internal/service"
)

// ResponseHandler маршруты откликов исполнителей.
type ResponseHandler struct {
	responses *service.ResponseService
}

func NewResponseHandler(responses *service.ResponseService) *ResponseHandler {
	return &ResponseHandler{responses: responses}
}

// CreateResponse обрабатывает POST /orders/:id/responses.
func (h *ResponseHandler) CreateResponse(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}

	response, err := h.responses.Create(c.Request.Context(), orderID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// ListOrderResponses обрабатывает GET /orders/:id/responses.
func (h *ResponseHandler) ListOrderResponses(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}

	list, err := h.responses.ListForOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(list, len(list), 0))
}

// ListMyResponses обрабатывает GET /responses/my.
func (h *ResponseHandler) ListMyResponses(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	list, err := h.responses.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(list, limit, offset))
}

// CanBid обрабатывает GET /balance/can-bid.
func (h *ResponseHandler) CanBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	ok, err := h.responses.CanAffordBid(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CanBidResponse{CanBid: ok})
}
