package proxy

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

// ConversationListResponse is a page of conversation history.
type ConversationListResponse struct {
	Conversations []*storage.Conversation `json:"conversations"`
	Total         int64                   `json:"total"`
	Limit         int                     `json:"limit"`
	Offset        int                     `json:"offset"`
}

func (p *Proxy) handleListConversations(c *fiber.Ctx) error {
	opts := storage.ListOptions{
		Limit:       c.QueryInt("limit", storage.DefaultListLimit),
		Offset:      c.QueryInt("offset", 0),
		StarredOnly: c.QueryBool("starred", false),
	}

	ctx := c.UserContext()
	list, err := p.conversations.List(ctx, opts)
	if err != nil {
		return p.storeError(c, err)
	}
	total, err := p.conversations.Count(ctx)
	if err != nil {
		return p.storeError(c, err)
	}

	if list == nil {
		list = []*storage.Conversation{}
	}
	return c.JSON(ConversationListResponse{
		Conversations: list,
		Total:         total,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	})
}

func (p *Proxy) handleSearchConversations(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "query parameter q is required"})
	}

	list, err := p.conversations.Search(c.UserContext(), query, c.QueryInt("limit", storage.DefaultSearchLimit))
	if err != nil {
		return p.storeError(c, err)
	}
	if list == nil {
		list = []*storage.Conversation{}
	}
	return c.JSON(list)
}

func (p *Proxy) handleGetConversation(c *fiber.Ctx) error {
	conv, err := p.conversations.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return p.storeError(c, err)
	}
	return c.JSON(conv)
}

// handleUpdateConversation applies the title and starred fields present in
// the body. A null title clears it.
func (p *Proxy) handleUpdateConversation(c *fiber.Ctx) error {
	id := c.Params("id")

	var body map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	ctx := c.UserContext()
	if raw, ok := body["title"]; ok {
		var title *string
		if err := json.Unmarshal(raw, &title); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "title must be a string or null"})
		}
		if title != nil && strings.TrimSpace(*title) == "" {
			title = nil
		}
		if err := p.conversations.SetTitle(ctx, id, title); err != nil {
			return p.storeError(c, err)
		}
	}
	if raw, ok := body["starred"]; ok {
		var starred bool
		if err := json.Unmarshal(raw, &starred); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "starred must be a boolean"})
		}
		if err := p.conversations.SetStarred(ctx, id, starred); err != nil {
			return p.storeError(c, err)
		}
	}

	conv, err := p.conversations.Get(ctx, id)
	if err != nil {
		return p.storeError(c, err)
	}
	return c.JSON(conv)
}

func (p *Proxy) handleDeleteConversation(c *fiber.Ctx) error {
	if err := p.conversations.Delete(c.UserContext(), c.Params("id")); err != nil {
		return p.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
