package notifier

import (
	"fmt"
	"strings"
	"time"

	"signaldesk/internal/pkg/maputil"
	"signaldesk/internal/pkg/symbol"
	"signaldesk/internal/pkg/text"
	"signaldesk/internal/types"
)

const maxMessageLen = 3800

// Section 通知中的一个段落。
type Section struct {
	Title string
	Lines []string
}

// StructuredMessage 统一格式的推送：标题行、代码块段落、时间戳。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []Section
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，超长时截断。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	if head := strings.TrimSpace(m.Icon + " " + m.Title); head != "" {
		b.WriteString(head)
		b.WriteString("\n\n")
	}
	b.WriteString(renderSections(m.Sections))
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(escapeFence(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：")
		b.WriteString(m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxMessageLen)
}

func renderSections(secs []Section) string {
	var body []string
	for _, sec := range secs {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		var blk strings.Builder
		if title := strings.TrimSpace(sec.Title); title != "" {
			blk.WriteString(escapeFence(title))
			blk.WriteString("\n")
		}
		for _, l := range lines {
			blk.WriteString("- ")
			blk.WriteString(escapeFence(l))
			blk.WriteString("\n")
		}
		body = append(body, blk.String())
	}
	if len(body) == 0 {
		return ""
	}
	return "```\n" + strings.Join(body, "\n") + "```\n\n"
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func escapeFence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

func displaySymbol(s string) string {
	if d := symbol.Parse(s).Display(); d != "" {
		return d
	}
	return s
}

// OrderPlaced 下单成功通知。
func OrderPlaced(req types.PlacementRequest, res types.PlacementResult, at time.Time) StructuredMessage {
	mode := "LIVE"
	if res.Paper() {
		mode = "PAPER"
	}
	lines := []string{
		fmt.Sprintf("%s %s qty=%g", req.Side, req.Symbol, req.Quantity),
		fmt.Sprintf("notional=%.2f fees=%.2f", req.Notional, req.Fees),
		fmt.Sprintf("tif=%s maker=%v", req.TimeInForce, req.PreferMaker),
	}
	if req.LimitPrice != nil {
		lines = append(lines, fmt.Sprintf("limit=%.2f", *req.LimitPrice))
	}
	if id, ok := maputil.Int64(res.Order, "orderId"); ok {
		venue := fmt.Sprintf("orderId=%d", id)
		if st := maputil.String(res.Order, "status"); st != "" {
			venue += " status=" + st
		}
		if filled := maputil.Float(res.Order, "executedQty"); filled > 0 {
			venue += fmt.Sprintf(" filled=%g", filled)
		}
		lines = append(lines, venue)
	}
	if req.ClientOrderID != "" {
		lines = append(lines, "client="+req.ClientOrderID)
	}
	return StructuredMessage{
		Icon:      "✅",
		Title:     fmt.Sprintf("下单 %s [%s]", displaySymbol(req.Symbol), mode),
		Sections:  []Section{{Title: "订单", Lines: lines}},
		Timestamp: at,
	}
}

// OrderCanceled 撤单成功通知。
func OrderCanceled(entry types.OrderLogEntry, at time.Time) StructuredMessage {
	id := "-"
	if entry.OrderID != nil {
		id = fmt.Sprintf("%d", *entry.OrderID)
	}
	return StructuredMessage{
		Icon:  "🛑",
		Title: "撤单 " + displaySymbol(entry.Symbol),
		Sections: []Section{{Lines: []string{
			fmt.Sprintf("orderId=%s side=%s qty=%g", id, entry.Side, entry.Quantity),
		}}},
		Timestamp: at,
	}
}

// AutoTradeChanged 自动交易开关变化通知。
func AutoTradeChanged(st types.AutoTradeStatus, at time.Time) StructuredMessage {
	state := "OFF"
	if st.Enabled {
		state = "ON"
	}
	syms := "(none)"
	if len(st.Symbols) > 0 {
		syms = strings.Join(st.Symbols, ", ")
	}
	return StructuredMessage{
		Icon:      "🤖",
		Title:     "自动交易 " + state,
		Sections:  []Section{{Title: "交易对", Lines: []string{syms}}},
		Timestamp: at,
	}
}

// WriteFailed 写操作失败通知。
func WriteFailed(action string, err error, at time.Time) StructuredMessage {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return StructuredMessage{
		Icon:      "⚠️",
		Title:     action + " 失败",
		Sections:  []Section{{Lines: []string{msg}}},
		Timestamp: at,
	}
}
