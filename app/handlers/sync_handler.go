package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/quantrail/watermark/app/dto"
	"github.com/quantrail/watermark/app/middleware"
	businessflow "github.com/quantrail/watermark/business_flow"
	"github.com/quantrail/watermark/utils"
)

// SyncHandlerInterface defines the contract for sync cursor handlers
type SyncHandlerInterface interface {
	GetCursor(c fiber.Ctx) error
	AdvanceCursor(c fiber.Ctx) error
	ListProgress(c fiber.Ctx) error
}

// SyncHandler handles sync cursor HTTP requests
type SyncHandler struct {
	flow      businessflow.SyncFlow
	validator *validator.Validate
}

// NewSyncHandler creates a new sync cursor handler
func NewSyncHandler(flow businessflow.SyncFlow) SyncHandlerInterface {
	return &SyncHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *SyncHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SyncHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetCursor returns the stored cursor for one source table
// @Summary Get Sync Cursor
// @Description Retrieve the sync watermark for a source table; unseeded tables report epoch defaults
// @Tags Cursors
// @Produce json
// @Param table_name path string true "Source table name"
// @Success 200 {object} dto.APIResponse{data=dto.GetCursorResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cursors/{table_name} [get]
func (h *SyncHandler) GetCursor(c fiber.Ctx) error {
	tableName := c.Params("table_name")

	ctx := h.createRequestContext(c, "/api/v1/cursors/:table_name")
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	res, err := h.flow.GetCursor(ctx, tableName, metadata)
	if err != nil {
		if businessflow.IsTableNameRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Table name is required", "TABLE_NAME_REQUIRED", nil)
		}
		if businessflow.IsTableNameTooLong(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Table name is too long", "TABLE_NAME_TOO_LONG", nil)
		}

		log.Println("Get cursor failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get sync cursor", "GET_CURSOR_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// AdvanceCursor records a completed sync batch for one source table
// @Summary Advance Sync Cursor
// @Description Upsert the watermark for a source table after a successful sync batch; idempotent under retry
// @Tags Cursors
// @Accept json
// @Produce json
// @Param request body dto.AdvanceCursorRequest true "Completed batch data"
// @Success 200 {object} dto.APIResponse{data=dto.AdvanceCursorResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cursors/advance [post]
func (h *SyncHandler) AdvanceCursor(c fiber.Ctx) error {
	var req dto.AdvanceCursorRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx := h.createRequestContext(c, "/api/v1/cursors/advance")
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	res, err := h.flow.AdvanceCursor(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsTableNameRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Table name is required", "TABLE_NAME_REQUIRED", nil)
		}
		if businessflow.IsTableNameTooLong(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Table name is too long", "TABLE_NAME_TOO_LONG", nil)
		}
		if businessflow.IsRecordsSyncedNegative(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Records synced cannot be negative", "RECORDS_SYNCED_NEGATIVE", nil)
		}
		if businessflow.IsLastSyncedAtRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Last synced at is required", "LAST_SYNCED_AT_REQUIRED", nil)
		}

		log.Println("Advance cursor failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to advance sync cursor", "ADVANCE_CURSOR_FAILED", nil)
	}

	middleware.RecordCursorAdvance(req.TableName)

	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ListProgress returns the staleness report for all cursors
// @Summary List Sync Progress
// @Description Per-table staleness classification derived from stored cursors, freshest first
// @Tags Progress
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListProgressResponse}
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/progress [get]
func (h *SyncHandler) ListProgress(c fiber.Ctx) error {
	ctx := h.createRequestContext(c, "/api/v1/progress")
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	res, err := h.flow.ListProgress(ctx, metadata)
	if err != nil {
		log.Println("List progress failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list sync progress", "LIST_PROGRESS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

func (h *SyncHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *SyncHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
