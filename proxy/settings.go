package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

// effectiveSettings returns every recognized setting: the stored override
// when there is one, otherwise the configured default.
func (p *Proxy) effectiveSettings(ctx context.Context) (map[string]string, error) {
	stored, err := p.settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	d := p.relay.Defaults()
	out := map[string]string{
		storage.SettingOllamaHost:       d.Host,
		storage.SettingOllamaPort:       strconv.Itoa(d.Port),
		storage.SettingKeepAlive:        d.KeepAlive,
		storage.SettingHistoryRetention: strconv.Itoa(d.RetentionDays),
	}
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

func (p *Proxy) handleGetSettings(c *fiber.Ctx) error {
	settings, err := p.effectiveSettings(c.UserContext())
	if err != nil {
		return p.storeError(c, err)
	}
	return c.JSON(settings)
}

// handlePutSettings writes overrides. A null value removes the override so
// the configured default applies again.
func (p *Proxy) handlePutSettings(c *fiber.Ctx) error {
	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	updates := make(map[string]string, len(body))
	var removals []string
	for key, raw := range body {
		if raw == nil {
			if !isSettingKey(key) {
				return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "unknown setting: " + key})
			}
			removals = append(removals, key)
			continue
		}

		value, err := settingValue(key, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		updates[key] = value
	}

	ctx := c.UserContext()
	if len(updates) > 0 {
		if err := p.settings.SetMany(ctx, updates); err != nil {
			return p.storeError(c, err)
		}
	}
	for _, key := range removals {
		if err := p.settings.Delete(ctx, key); err != nil {
			return p.storeError(c, err)
		}
	}

	settings, err := p.effectiveSettings(ctx)
	if err != nil {
		return p.storeError(c, err)
	}
	return c.JSON(settings)
}

func isSettingKey(key string) bool {
	switch key {
	case storage.SettingOllamaHost, storage.SettingOllamaPort,
		storage.SettingKeepAlive, storage.SettingHistoryRetention:
		return true
	}
	return false
}

// settingValue stringifies raw and checks it makes sense for key.
func settingValue(key string, raw any) (string, error) {
	if !isSettingKey(key) {
		return "", fmt.Errorf("unknown setting: %s", key)
	}

	var value string
	switch v := raw.(type) {
	case string:
		value = strings.TrimSpace(v)
	case float64:
		value = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		value = strconv.FormatBool(v)
	default:
		return "", fmt.Errorf("setting %s must be a string, number or boolean", key)
	}

	switch key {
	case storage.SettingOllamaHost:
		if value == "" {
			return "", fmt.Errorf("setting %s must not be empty", key)
		}
	case storage.SettingOllamaPort:
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			return "", fmt.Errorf("setting %s must be a port number, got %q", key, value)
		}
	case storage.SettingHistoryRetention:
		if _, err := strconv.Atoi(value); err != nil {
			return "", fmt.Errorf("setting %s must be a whole number of days, got %q", key, value)
		}
	}
	return value, nil
}
