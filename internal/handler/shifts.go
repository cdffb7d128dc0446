package handler

import (
	"net/http"

	"fuelpump/internal/dto"
	"fuelpump/internal/service"

	"github.com/gin-gonic/gin"
)

type ShiftHandler struct{ svc service.ShiftService }

func NewShiftHandler(svc service.ShiftService) *ShiftHandler { return &ShiftHandler{svc: svc} }

// Start godoc
// @Summary Start a shift for a staff member on a pump
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.StartShiftRequest true "Shift opening"
// @Success 201 {object} dto.ShiftResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/shifts [post]
func (h *ShiftHandler) Start(c *gin.Context) {
	var req dto.StartShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.StartShift(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List shifts of the station
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param status query string false "active | completed"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.ShiftListResponse
// @Router /v1/shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	var filter dto.ShiftFilter
	if !bindQuery(c, &filter) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), sess, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Mine godoc
// @Summary Caller's active shift
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/shifts/mine [get]
func (h *ShiftHandler) Mine(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Mine(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Shift detail
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} dto.ShiftResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/shifts/{id} [get]
func (h *ShiftHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Close draft ───────────────────────────────────────────────────────────────

// Draft godoc
// @Summary Current close form of an active shift
// @Tags close
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} dto.CloseDraftResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/shifts/{id}/close [get]
func (h *ShiftHandler) Draft(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetDraft(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// draftPatch binds req and applies it with fn, answering with the updated draft.
func draftPatch[T any](c *gin.Context, fn func(sess service.Session, req T) (*dto.CloseDraftResponse, error)) {
	var req T
	if !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := fn(sess, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateReading godoc
// @Summary Set a closing meter reading
// @Description A value that is not a number resets the closing reading to the opening reading.
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.UpdateClosingReadingRequest true "Reading"
// @Success 200 {object} dto.CloseDraftResponse
// @Router /v1/shifts/{id}/close/readings [patch]
func (h *ShiftHandler) UpdateReading(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	draftPatch(c, func(sess service.Session, req dto.UpdateClosingReadingRequest) (*dto.CloseDraftResponse, error) {
		return h.svc.UpdateClosingReading(c.Request.Context(), sess, id, req)
	})
}

// SetChannel godoc
// @Summary Set one sales channel amount
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.SetChannelRequest true "Channel"
// @Success 200 {object} dto.CloseDraftResponse
// @Router /v1/shifts/{id}/close/sales [patch]
func (h *ShiftHandler) SetChannel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	draftPatch(c, func(sess service.Session, req dto.SetChannelRequest) (*dto.CloseDraftResponse, error) {
		return h.svc.SetChannel(c.Request.Context(), sess, id, req)
	})
}

// SetTesting godoc
// @Summary Set testing fuel for one fuel type
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.SetTestingRequest true "Testing volume"
// @Success 200 {object} dto.CloseDraftResponse
// @Router /v1/shifts/{id}/close/testing [patch]
func (h *ShiftHandler) SetTesting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	draftPatch(c, func(sess service.Session, req dto.SetTestingRequest) (*dto.CloseDraftResponse, error) {
		return h.svc.SetTesting(c.Request.Context(), sess, id, req)
	})
}

// UpdateReturned godoc
// @Summary Set the returned quantity of an allocated consumable
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.UpdateReturnedRequest true "Returned quantity"
// @Success 200 {object} dto.CloseDraftResponse
// @Router /v1/shifts/{id}/close/consumables [patch]
func (h *ShiftHandler) UpdateReturned(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	draftPatch(c, func(sess service.Session, req dto.UpdateReturnedRequest) (*dto.CloseDraftResponse, error) {
		return h.svc.UpdateReturned(c.Request.Context(), sess, id, req)
	})
}

// UpdateCash godoc
// @Summary Set counted cash and expenses
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.UpdateCashRequest true "Cash"
// @Success 200 {object} dto.CloseDraftResponse
// @Router /v1/shifts/{id}/close/cash [patch]
func (h *ShiftHandler) UpdateCash(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	draftPatch(c, func(sess service.Session, req dto.UpdateCashRequest) (*dto.CloseDraftResponse, error) {
		return h.svc.UpdateCash(c.Request.Context(), sess, id, req)
	})
}

// Allocate godoc
// @Summary Issue consumable stock to an active shift
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.AllocateConsumableRequest true "Allocation"
// @Success 201 {object} dto.CloseDraftResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/shifts/{id}/consumables [post]
func (h *ShiftHandler) Allocate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.AllocateConsumableRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.AllocateConsumable(c.Request.Context(), sess, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ── Close / succession ────────────────────────────────────────────────────────

// Close godoc
// @Summary Close the shift
// @Description Validates readings, finalizes the shift atomically and optionally starts the next one.
// @Description A cash difference over the threshold is reported in warnings and never blocks closing.
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.CloseShiftRequest false "Succession options"
// @Success 200 {object} dto.CloseShiftResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Failure 500 {object} apierror.APIError
// @Router /v1/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.CloseShiftRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), sess, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Successor godoc
// @Summary Start the shift that follows a completed one
// @Tags close
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Completed shift ID"
// @Param body body dto.SuccessorRequest true "Successor"
// @Success 201 {object} dto.SuccessorResponse
// @Router /v1/shifts/{id}/successor [post]
func (h *ShiftHandler) Successor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.SuccessorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.StartSuccessor(c.Request.Context(), sess, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Successor == nil {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// ── Admin ─────────────────────────────────────────────────────────────────────

// Edit godoc
// @Summary Correct a completed shift
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body dto.EditShiftRequest true "Corrections"
// @Success 200 {object} dto.ShiftResponse
// @Router /v1/shifts/{id} [put]
func (h *ShiftHandler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.EditShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.Edit(c.Request.Context(), sess, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Delete a shift with its readings and allocations
// @Tags shifts
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 204
// @Router /v1/shifts/{id} [delete]
func (h *ShiftHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), sess, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AvailableStaff godoc
// @Summary Active staff without an active shift
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.StaffResponse
// @Router /v1/staff/available [get]
func (h *ShiftHandler) AvailableStaff(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	resp, err := h.svc.AvailableStaff(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FuelPrices godoc
// @Summary Current price per fuel type
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.FuelPricesResponse
// @Router /v1/fuel-prices [get]
func (h *ShiftHandler) FuelPrices(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.FuelPrices(c.Request.Context(), sess))
}
