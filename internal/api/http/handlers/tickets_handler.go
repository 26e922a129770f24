package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smartmaint/maintenance-service/internal/api/dto"
	"github.com/smartmaint/maintenance-service/internal/auth"
	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/service"
	"github.com/smartmaint/maintenance-service/pkg/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	restore *service.RestoreService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, restoreService *service.RestoreService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, restore: restoreService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" {
		return errorutil.NewValidationError("title required", nil)
	}

	ticket, err := h.tickets.Create(c.Context(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Priority:    req.Priority,
		Machine:     req.Machine,
		Area:        req.Area,
		Source:      req.Source,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	filter := parseTicketListQuery(c)
	tickets, err := h.tickets.List(c.Context(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.Update(c.Context(), actor, c.Params("id"), service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Priority:    req.Priority,
		Status:      req.Status,
		Machine:     req.Machine,
		Area:        req.Area,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.DeleteTicketRequest
	_ = c.BodyParser(&req)

	if err := h.tickets.Remove(c.Context(), actor, c.Params("id"), req.Reason); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianID == "" {
		return errorutil.NewValidationError("technician_id required", nil)
	}

	ticket, err := h.tickets.Assign(c.Context(), actor, c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Close(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Restore POST /tickets/:id/restore.
func (h *TicketsHandler) Restore(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	ticket, err := h.restore.RestoreTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// History GET /tickets/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	entries, err := h.tickets.History(c.Context(), actor, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditEntryResponses(entries)})
}

// AddConversation POST /tickets/:id/conversations.
func (h *TicketsHandler) AddConversation(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.ConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return errorutil.NewValidationError("body required", nil)
	}

	entry, err := h.tickets.AddConversation(c.Context(), actor, c.Params("id"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": conversationResponse(entry)})
}

// ListConversations GET /tickets/:id/conversations.
func (h *TicketsHandler) ListConversations(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	entries, err := h.tickets.ListConversations(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ConversationResponse, 0, len(entries))
	for i := range entries {
		items = append(items, conversationResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.AttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	attachment, err := h.tickets.AddAttachment(c.Context(), actor, c.Params("id"), service.AttachmentInput{
		FileName:    req.FileName,
		StoragePath: req.StoragePath,
		MimeType:    req.MimeType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	attachments, err := h.tickets.ListAttachments(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, attachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketListQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.TicketCategory(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedToID = &assignee
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Category:     ticket.Category,
		Subcategory:  ticket.Subcategory,
		Priority:     ticket.Priority,
		Status:       ticket.Status,
		Machine:      ticket.Machine,
		Area:         ticket.Area,
		Source:       ticket.Source,
		CreatedByID:  ticket.CreatedByID,
		AssignedToID: ticket.AssignedToID,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func conversationResponse(entry *domain.ConversationEntry) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		AuthorID:  entry.AuthorID,
		Body:      entry.Body,
		Internal:  entry.Internal,
		CreatedAt: entry.CreatedAt,
	}
}

func attachmentResponse(attachment *domain.AttachmentReference) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:        attachment.ID,
		TicketID:  attachment.TicketID,
		FileName:  attachment.FileName,
		MimeType:  attachment.MimeType,
		SizeBytes: attachment.SizeBytes,
		CreatedAt: attachment.CreatedAt,
	}
}

func auditEntryResponses(entries []domain.AuditEntry) []dto.AuditEntryResponse {
	resp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.AuditEntryResponse{
			ID:         entry.ID,
			ActionType: entry.ActionType,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			ActorID:    entry.ActorID,
			Changes:    entry.Changes,
			Reason:     entry.Reason,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
