package app

import (
	"context"
	"fmt"

	"signaldesk/internal/config"
	"signaldesk/internal/desk"
	"signaldesk/internal/gateway/notifier"
	"signaldesk/internal/logger"
	livehttp "signaldesk/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：配置 -> 依赖 -> 启动桌面服务与本地 HTTP。
type App struct {
	cfg     *config.Config
	desk    *desk.Service
	http    *livehttp.Server
	notify  *notifier.Queue
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(ctx, cfg)
}

// Run 启动所有组件，ctx 取消后全部退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.desk == nil {
		return fmt.Errorf("desk service not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("desk http server error: %w", err)
			}
			return nil
		})
	}
	if a.notify != nil {
		group.Go(func() error { return a.notify.Run(ctx) })
	}
	group.Go(func() error { return a.desk.Run(ctx) })
	return group.Wait()
}

// Desk exposes the service for harnesses.
func (a *App) Desk() *desk.Service {
	if a == nil {
		return nil
	}
	return a.desk
}
