package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/montazh-backend/internal/dto"
	"github.com/ignatzorin/montazh-backend/internal/http/handlers/common"
	"github.com/ignatzorin/montazh-backend/internal/models"
	"github.com/ignatzorin/montazh-backend/internal/service"
)

// OrderHandler маршруты жизненного цикла заказа.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder обрабатывает POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateOrderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), userID, service.CreateOrderInput{
		Category:      req.Category,
		Title:         req.Title,
		Description:   req.Description,
		Region:        req.Region,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Budget:        req.Budget,
		BudgetType:    models.BudgetType(req.BudgetType),
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Attachments:   req.Attachments,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListMyOrders обрабатывает GET /orders/my.
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(orders, limit, offset))
}

// UpdateOrder обрабатывает PATCH /orders/:id.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	patch := service.OrderPatch{
		Title:       req.Title,
		Description: req.Description,
		Region:      req.Region,
		Address:     req.Address,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
	}
	if req.BudgetType != nil {
		bt := models.BudgetType(*req.BudgetType)
		patch.BudgetType = &bt
	}
	if req.PaymentMethod != nil {
		pm := models.PaymentMethod(*req.PaymentMethod)
		patch.PaymentMethod = &pm
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), orderID, userID, patch)
	respondOrder(c, order, err)
}

// CancelOrder обрабатывает POST /orders/:id/cancel.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), orderID, userID)
	respondOrder(c, order, err)
}

// SelectExecutor обрабатывает POST /orders/:id/select.
func (h *OrderHandler) SelectExecutor(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}

	var req dto.SelectExecutorRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	executorID, err := uuid.Parse(req.ExecutorID)
	if err != nil {
		common.RespondBadRequest(c, common.ErrInvalidUUID.Error())
		return
	}

	order, err := h.orders.SelectExecutor(c.Request.Context(), orderID, userID, executorID)
	respondOrder(c, order, err)
}

// StartWork обрабатывает POST /orders/:id/start.
func (h *OrderHandler) StartWork(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}
	order, err := h.orders.StartWork(c.Request.Context(), orderID, userID)
	respondOrder(c, order, err)
}

// CancelWork обрабатывает POST /orders/:id/cancel-work.
func (h *OrderHandler) CancelWork(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}

	var req dto.CancelWorkRequest
	if c.Request.ContentLength > 0 {
		if err := common.BindAndValidate(c, &req); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
	}

	order, err := h.orders.CancelWork(c.Request.Context(), orderID, userID, req.Reason)
	respondOrder(c, order, err)
}

// CompleteOrder обрабатывает POST /orders/:id/complete.
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}
	order, err := h.orders.CompleteOrder(c.Request.Context(), orderID, userID)
	respondOrder(c, order, err)
}

// ArchiveOrder обрабатывает POST /orders/:id/archive.
func (h *OrderHandler) ArchiveOrder(c *gin.Context) {
	userID, orderID, ok := userAndOrder(c)
	if !ok {
		return
	}
	order, err := h.orders.ArchiveOrder(c.Request.Context(), orderID, userID)
	respondOrder(c, order, err)
}

// ApproveOrder обрабатывает POST /orders/:id/approve (модератор).
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	order, err := h.orders.ApproveOrder(c.Request.Context(), orderID)
	respondOrder(c, order, err)
}

// userAndOrder читает текущего пользователя и :id заказа; при ошибке ответ уже отправлен.
func userAndOrder(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	return userID, orderID, true
}

func respondOrder(c *gin.Context, order *models.Order, err error) {
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
