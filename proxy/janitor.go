package proxy

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

func (p *Proxy) startJanitor() {
	if p.config.JanitorInterval <= 0 {
		return
	}

	p.janitor.Add(1)
	go func() {
		defer p.janitor.Done()

		ticker := time.NewTicker(p.config.JanitorInterval)
		defer ticker.Stop()

		p.pruneHistory(p.ctx)
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.pruneHistory(p.ctx)
			}
		}
	}()
}

// retentionDays returns the history_retention override, or the default.
func (p *Proxy) retentionDays(ctx context.Context) int {
	days := p.relay.Defaults().RetentionDays
	value, err := p.settings.Get(ctx, storage.SettingHistoryRetention)
	if err != nil {
		return days
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		days = n
	}
	return days
}

// pruneHistory deletes unstarred conversations and API log entries older than
// the retention window. Nothing is pruned when retention is zero (history
// disabled) or negative (keep forever).
func (p *Proxy) pruneHistory(ctx context.Context) {
	days := p.retentionDays(ctx)
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	conversations, err := p.conversations.PruneBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to prune conversations", zap.Error(err))
		return
	}
	logs, err := p.logs.PruneBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to prune api logs", zap.Error(err))
		return
	}

	if conversations > 0 || logs > 0 {
		p.logger.Info("pruned expired history",
			zap.Int("retention_days", days),
			zap.Int64("conversations", conversations),
			zap.Int64("api_logs", logs),
		)
	}
}
