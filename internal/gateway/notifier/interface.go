package notifier

// TextNotifier is the only thing write paths depend on, so a missing or
// broken chat never changes their outcome.
type TextNotifier interface {
	SendText(text string) error
}

// Noop 通知关闭时使用。
type Noop struct{}

func (Noop) SendText(string) error { return nil }
