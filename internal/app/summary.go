package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"signaldesk/internal/market"
	"signaldesk/internal/types"
)

// StartupSummary 启动时打印一次，只读配置不会再变化。
type StartupSummary struct {
	Venue       string
	Backend     string
	HTTPAddr    string
	Symbol      string
	Universe    []string
	Intervals   market.Intervals
	OrdersLimit int
	Preferences types.Preferences
	Telegram    bool
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[交易环境 (VENUE)]")
	fmt.Fprintf(w, "  模式: %s\n", s.Venue)
	fmt.Fprintf(w, "  后端: %s\n", s.Backend)
	fmt.Fprintf(w, "  本地接口: %s\n", s.HTTPAddr)
	fmt.Fprintf(w, "  当前交易对: %s\n", s.Symbol)
	fmt.Fprintf(w, "  可选交易对: %s\n", formatList(s.Universe))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[轮询周期 (POLLING)]")
	fmt.Fprintf(w, "  ticker=%s signal=%s balances=%s\n",
		formatInterval(s.Intervals.Ticker), formatInterval(s.Intervals.Signal), formatInterval(s.Intervals.Balances))
	fmt.Fprintf(w, "  config=%s orders=%s portfolio=%s\n",
		formatInterval(s.Intervals.Config), formatInterval(s.Intervals.Orders), formatInterval(s.Intervals.Portfolio))
	fmt.Fprintf(w, "  订单日志条数: %d\n", s.OrdersLimit)
	fmt.Fprintln(w)

	p := s.Preferences
	fmt.Fprintln(w, "[会话偏好 (PREFERENCES)]")
	fmt.Fprintf(w, "  risk=%.2f exposure=%.2f slippage=%gbps\n", p.RiskLevel, p.MaxExposure, p.SlippageBudget)
	fmt.Fprintf(w, "  tif=%s maker=%v paper=%v\n", p.TimeInForce, p.PreferMaker, p.PaperTrading)
	fmt.Fprintln(w)

	notify := "关闭"
	if s.Telegram {
		notify = "Telegram"
	}
	fmt.Fprintf(w, "[通知 (NOTIFY)] %s\n", notify)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func formatInterval(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.String()
}
