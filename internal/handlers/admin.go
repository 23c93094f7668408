package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"shopassist/internal/container"
	"shopassist/internal/importer"
	"shopassist/internal/models"
	"shopassist/internal/services"
	"shopassist/internal/storage"
	"shopassist/internal/utils"
)

// AdminHandler serves the console endpoints: response rules, unknown
// questions, products, site content and quick messages. Every mutation
// publishes a fresh snapshot so other servers and open widgets converge.
type AdminHandler struct {
	container *container.Container
}

func NewAdminHandler(c *container.Container) *AdminHandler {
	return &AdminHandler{container: c}
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: code, Message: message})
}

func storeError(c *fiber.Ctx, ctx context.Context, action string, err error) error {
	utils.LogError(ctx, action+" failed", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error:   "store_error",
		Message: "The operation could not be completed",
	})
}

// publishResponsesSnapshot fans the full rule set out after any rule change.
func (h *AdminHandler) publishResponsesSnapshot(ctx context.Context) {
	rules, err := h.container.Store.ListResponses()
	if err != nil {
		utils.LogWarn(ctx, "snapshot listing failed", slog.Any("error", err))
		return
	}
	if err := h.container.PubSub.PublishSnapshot(ctx, services.ChannelResponses, rules); err != nil {
		utils.LogWarn(ctx, "snapshot publish failed", slog.Any("error", err))
	}
}

func (h *AdminHandler) publishQuickMessagesSnapshot(ctx context.Context) {
	quick, err := h.container.Store.ListQuickMessages()
	if err != nil {
		utils.LogWarn(ctx, "snapshot listing failed", slog.Any("error", err))
		return
	}
	if err := h.container.PubSub.PublishSnapshot(ctx, services.ChannelQuickMessages, quick); err != nil {
		utils.LogWarn(ctx, "snapshot publish failed", slog.Any("error", err))
	}
}

func (h *AdminHandler) publishUnknownSnapshot(ctx context.Context) {
	unknown, err := h.container.Store.ListUnknownQuestions()
	if err != nil {
		utils.LogWarn(ctx, "snapshot listing failed", slog.Any("error", err))
		return
	}
	if err := h.container.PubSub.PublishSnapshot(ctx, services.ChannelUnknownQuestions, unknown); err != nil {
		utils.LogWarn(ctx, "snapshot publish failed", slog.Any("error", err))
	}
}

// ─── Response rules ──────────────────────────────────────────────────────────

func (h *AdminHandler) ListResponses(c *fiber.Ctx) error {
	rules, err := h.container.Store.ListResponses()
	if err != nil {
		return storeError(c, c.UserContext(), "list responses", err)
	}
	return c.JSON(fiber.Map{"responses": rules})
}

type upsertResponseRequest struct {
	Trigger string `json:"trigger"`
	Reply   string `json:"reply"`
}

func (h *AdminHandler) UpsertResponse(c *fiber.Ctx) error {
	var req upsertResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_body", "Request body must be valid JSON")
	}
	trigger := storage.Normalize(req.Trigger)
	if trigger == "" || strings.TrimSpace(req.Reply) == "" {
		return badRequest(c, "validation_error", "trigger and reply are required")
	}

	ctx := c.UserContext()
	if err := h.container.Store.UpsertResponse(trigger, req.Reply); err != nil {
		return storeError(c, ctx, "upsert response", err)
	}
	h.publishResponsesSnapshot(ctx)
	return c.JSON(fiber.Map{"trigger": trigger, "reply": req.Reply})
}

func (h *AdminHandler) DeleteResponse(c *fiber.Ctx) error {
	trigger := storage.Normalize(c.Params("trigger"))
	if trigger == "" {
		return badRequest(c, "validation_error", "trigger is required")
	}

	ctx := c.UserContext()
	if err := h.container.Store.DeleteResponse(trigger); err != nil {
		return storeError(c, ctx, "delete response", err)
	}
	h.publishResponsesSnapshot(ctx)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ImportResponses(c *fiber.Ctx) error {
	rules, err := importer.ParseResponses(c.Body())
	if err != nil {
		return badRequest(c, "import_error", err.Error())
	}

	ctx := c.UserContext()
	if err := h.container.Store.ReplaceResponses(rules); err != nil {
		return storeError(c, ctx, "import responses", err)
	}
	h.publishResponsesSnapshot(ctx)
	return c.JSON(fiber.Map{"imported": len(rules)})
}

func (h *AdminHandler) ExportResponses(c *fiber.Ctx) error {
	rules, err := h.container.Store.ListResponses()
	if err != nil {
		return storeError(c, c.UserContext(), "export responses", err)
	}
	data, err := importer.ExportResponses(rules)
	if err != nil {
		return storeError(c, c.UserContext(), "export responses", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// ─── Unknown questions ───────────────────────────────────────────────────────

func (h *AdminHandler) ListUnknownQuestions(c *fiber.Ctx) error {
	unknown, err := h.container.Store.ListUnknownQuestions()
	if err != nil {
		return storeError(c, c.UserContext(), "list unknown questions", err)
	}
	return c.JSON(fiber.Map{"unknown_questions": unknown})
}

type promoteRequest struct {
	Reply string `json:"reply"`
}

// PromoteUnknownQuestion turns a captured question into a response rule. The
// question disappears from the review queue in the same transaction.
func (h *AdminHandler) PromoteUnknownQuestion(c *fiber.Ctx) error {
	normalized := storage.Normalize(c.Params("normalized"))
	var req promoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_body", "Request body must be valid JSON")
	}
	if strings.TrimSpace(req.Reply) == "" {
		return badRequest(c, "validation_error", "reply is required")
	}

	ctx := c.UserContext()
	if err := h.container.Store.PromoteUnknownQuestion(normalized, req.Reply); err != nil {
		return storeError(c, ctx, "promote unknown question", err)
	}
	h.publishResponsesSnapshot(ctx)
	h.publishUnknownSnapshot(ctx)
	return c.JSON(fiber.Map{"trigger": normalized, "reply": req.Reply})
}

func (h *AdminHandler) DiscardUnknownQuestion(c *fiber.Ctx) error {
	normalized := storage.Normalize(c.Params("normalized"))

	ctx := c.UserContext()
	if err := h.container.Store.DiscardUnknownQuestion(normalized); err != nil {
		return storeError(c, ctx, "discard unknown question", err)
	}
	h.publishUnknownSnapshot(ctx)
	return c.SendStatus(fiber.StatusNoContent)
}

// ─── Products ────────────────────────────────────────────────────────────────

func (h *AdminHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.container.Store.ListProducts()
	if err != nil {
		return storeError(c, c.UserContext(), "list products", err)
	}
	return c.JSON(fiber.Map{"products": products})
}

func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var p models.Product
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "invalid_body", "Request body must be valid JSON")
	}
	if strings.TrimSpace(p.Name) == "" {
		return badRequest(c, "validation_error", "name is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	if err := h.container.Store.CreateProduct(&p); err != nil {
		return storeError(c, c.UserContext(), "create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	var p models.Product
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "invalid_body", "Request body must be valid JSON")
	}
	p.ID = c.Params("id")

	if err := h.container.Store.UpdateProduct(&p); err != nil {
		return storeError(c, c.UserContext(), "update product", err)
	}
	return c.JSON(p)
}

func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.container.Store.DeleteProduct(c.Params("id")); err != nil {
		return storeError(c, c.UserContext(), "delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ImportProducts replaces the whole catalog. Parsing is all-or-nothing, so a
// bad entry rejects the file without touching stored data.
func (h *AdminHandler) ImportProducts(c *fiber.Ctx) error {
	products, err := importer.ParseProducts(c.Body())
	if err != nil {
		return badRequest(c, "import_error", err.Error())
	}
	if err := h.container.Store.ReplaceProducts(products); err != nil {
		return storeError(c, c.UserContext(), "import products", err)
	}
	return c.JSON(fiber.Map{"imported": len(products)})
}

func (h *AdminHandler) ExportProducts(c *fiber.Ctx) error {
	products, err := h.container.Store.ListProducts()
	if err != nil {
		return storeError(c, c.UserContext(), "export products", err)
	}
	data, err := importer.ExportProducts(products)
	if err != nil {
		return storeError(c, c.UserContext(), "export products", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// ─── Site content ────────────────────────────────────────────────────────────

func (h *AdminHandler) ListSiteContent(c *fiber.Ctx) error {
	entries, err := h.container.Store.ListSiteContent()
	if err != nil {
		return storeError(c, c.UserContext(), "list site content", err)
	}
	return c.JSON(fiber.Map{"site_content": entries})
}

func (h *AdminHandler) CreateSiteContent(c *fiber.Ctx) error {
	var entry models.SiteContent
	if err := c.BodyParser(&entry); err != nil {
		return badRequest(c, "invalid_body", "Request body must be valid JSON")
	}
	if strings.TrimSpace(entry.Title) == "" || strings.TrimSpace(entry.Content) == "" {
		return badRequest(c, "validation_error", "title and content are required")
	}
	if !models.SiteContentCategories[entry.Category] {
		return badRequest(c, "validation_error", "unknown category "+entry.Category)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if err := h.container.Store.CreateSiteContent(&entry); err != nil {
		return storeError(c, c.UserContext(), "create site content", err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *AdminHandler) DeleteSiteContent(c *fiber.Ctx) error {
	if err := h.container.Store.DeleteSiteContent(c.Params("id")); err != nil {
		return storeError(c, c.UserContext(), "delete site content", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ImportSiteContent(c *fiber.Ctx) error {
	entries, err := importer.ParseSiteContent(c.Body())
	if err != nil {
		return badRequest(c, "import_error", err.Error())
	}
	if err := h.container.Store.ReplaceSiteContent(entries); err != nil {
		return storeError(c, c.UserContext(), "import site content", err)
	}
	return c.JSON(fiber.Map{"imported": len(entries)})
}

func (h *AdminHandler) ExportSiteContent(c *fiber.Ctx) error {
	entries, err := h.container.Store.ListSiteContent()
	if err != nil {
		return storeError(c, c.UserContext(), "export site content", err)
	}
	data, err := importer.ExportSiteContent(entries)
	if err != nil {
		return storeError(c, c.UserContext(), "export site content", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// ─── Quick messages ──────────────────────────────────────────────────────────

func (h *AdminHandler) ListQuickMessages(c *fiber.Ctx) error {
	quick, err := h.container.Store.ListQuickMessages()
	if err != nil {
		return storeError(c, c.UserContext(), "list quick messages", err)
	}
	return c.JSON(fiber.Map{"quick_messages": quick})
}

type createQuickMessageRequest struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

func (h *AdminHandler) CreateQuickMessage(c *fiber.Ctx) error {
	var req createQuickMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_body", "Request body must be valid JSON")
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest(c, "validation_error", "text is required")
	}

	ctx := c.UserContext()
	quick, err := h.container.Store.CreateQuickMessage(req.Text, req.Position)
	if err != nil {
		return storeError(c, ctx, "create quick message", err)
	}
	h.publishQuickMessagesSnapshot(ctx)
	return c.Status(fiber.StatusCreated).JSON(quick)
}

func (h *AdminHandler) DeleteQuickMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.container.Store.DeleteQuickMessage(c.Params("id")); err != nil {
		return storeError(c, ctx, "delete quick message", err)
	}
	h.publishQuickMessagesSnapshot(ctx)
	return c.SendStatus(fiber.StatusNoContent)
}
