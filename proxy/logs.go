package proxy

import (
	"github.com/gofiber/fiber/v2"

	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

func (p *Proxy) handleListLogs(c *fiber.Ctx) error {
	logs, err := p.logs.List(c.UserContext(), c.QueryInt("limit", storage.DefaultLogLimit))
	if err != nil {
		return p.storeError(c, err)
	}
	if logs == nil {
		logs = []*storage.APILog{}
	}
	return c.JSON(logs)
}

func (p *Proxy) handleClearLogs(c *fiber.Ctx) error {
	n, err := p.logs.Clear(c.UserContext())
	if err != nil {
		return p.storeError(c, err)
	}
	return c.JSON(map[string]int64{"deleted": n})
}
