package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/api"
	"github.com/hardik-0129/backend/internal/auth"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// BookSlot godoc
// @Summary      Book match positions
// @Description  Claims team positions in a match slot, charging join balance first and then win balance.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        slotID  path      int              true  "Slot ID"
// @Param        body    body      BookSlotRequest  true  "Positions, player names and declared total"
// @Success      201     {object}  BookResult
// @Failure      400     {object}  api.ErrorResponse
// @Failure      404     {object}  api.ErrorResponse
// @Failure      409     {object}  api.ErrorResponse
// @Router       /slots/{slotID}/book [post]
func (h *Handler) BookSlot(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	var req BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "selectedPositions and playerNames are required")
		return
	}

	res, err := h.svc.BookPositions(c.Request.Context(), BookRequest{
		UserID:         userID,
		SlotID:         slotID,
		Positions:      req.SelectedPositions,
		PlayerNames:    req.PlayerNames,
		DeclaredAmount: req.TotalAmount,
	})
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   ledger.Booking
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.svc.GetUserBookings(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListBookingsBySlot godoc
// @Summary      List bookings by slot
// @Description  Returns all bookings for a match slot. Admin only.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        slotID  path      int  true  "Slot ID"
// @Success      200     {array}   ledger.Booking
// @Failure      404     {object}  api.ErrorResponse
// @Router       /admin/slots/{slotID}/bookings [get]
func (h *Handler) ListBookingsBySlot(c *gin.Context) {
	slotID, ok := api.ParamID(c, "slotID")
	if !ok {
		return
	}

	bookings, err := h.svc.GetSlotBookings(c.Request.Context(), slotID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}
