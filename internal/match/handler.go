package match

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/api"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// @Summary      Create a match slot
// @Description  Admin-only: schedule a new match slot
// @Tags         admin,slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body match.CreateSlotRequest true "Slot payload"
// @Success      201 {object} match.Slot
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/slots [post]
func (h *Handler) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.InvalidBody(c, err)
		return
	}

	slot, err := h.service.CreateSlot(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, slot)
}

// @Summary      List match slots
// @Tags         slots
// @Produce      json
// @Param        status query string false "upcoming, live, completed or cancelled"
// @Success      200 {array} match.Slot
// @Failure      400 {object} api.ErrorResponse
// @Router       /slots [get]
func (h *Handler) ListSlots(c *gin.Context) {
	limit, offset := api.Page(c)
	slots, err := h.service.ListSlots(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, slots)
}

// @Summary      Get a match slot
// @Tags         slots
// @Produce      json
// @Param        slotID path int true "Slot ID"
// @Success      200 {object} match.Slot
// @Failure      404 {object} api.ErrorResponse
// @Router       /slots/{slotID} [get]
func (h *Handler) GetSlot(c *gin.Context) {
	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	slot, err := h.service.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, slot)
}

// @Summary      Change slot status
// @Tags         admin,slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slotID path int true "Slot ID"
// @Param        request body match.UpdateStatusRequest true "New status"
// @Success      200 {object} match.Slot
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/slots/{slotID}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.InvalidBody(c, err)
		return
	}

	slot, err := h.service.UpdateStatus(c.Request.Context(), slotID, req.Status)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, slot)
}

// @Summary      Record match winners
// @Tags         admin,slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slotID path int true "Slot ID"
// @Param        request body match.RecordWinnersRequest true "Winners"
// @Success      201 {array} match.Winner
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/slots/{slotID}/winners [post]
func (h *Handler) RecordWinners(c *gin.Context) {
	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	var req RecordWinnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.InvalidBody(c, err)
		return
	}

	winners, err := h.service.RecordWinners(c.Request.Context(), slotID, req.Winners)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, winners)
}

// @Summary      List match winners
// @Tags         slots
// @Produce      json
// @Param        slotID path int true "Slot ID"
// @Success      200 {array} match.Winner
// @Router       /slots/{slotID}/winners [get]
func (h *Handler) ListWinners(c *gin.Context) {
	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	winners, err := h.service.ListWinners(c.Request.Context(), slotID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, winners)
}

// @Summary      Pay out match winners
// @Description  Admin-only: credit each unpaid winner's prize to their win balance
// @Tags         admin,slots
// @Produce      json
// @Security     BearerAuth
// @Param        slotID path int true "Slot ID"
// @Success      200 {array} match.Payout
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/slots/{slotID}/payout [post]
func (h *Handler) Payout(c *gin.Context) {
	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	payouts, err := h.service.Payout(c.Request.Context(), slotID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slot_id": slotID, "payouts": payouts})
}
