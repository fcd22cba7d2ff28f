package orders

import (
	"sync"
	"time"
)

const (
	ActionRefresh = "refresh"
	ActionCancel  = "cancel"
)

// busyTracker 记录每个订单行正在进行的手动操作，不同订单互不阻塞。
type busyTracker struct {
	mu     sync.Mutex
	states map[int64]busyState
	nowFn  func() time.Time
}

type busyState struct {
	action string
	since  time.Time
}

func newBusyTracker() *busyTracker {
	return &busyTracker{states: make(map[int64]busyState), nowFn: time.Now}
}

// Begin marks orderID busy. It fails if an action is already in flight.
func (b *busyTracker) Begin(orderID int64, action string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.states[orderID]; ok {
		return false
	}
	b.states[orderID] = busyState{action: action, since: b.nowFn()}
	return true
}

func (b *busyTracker) End(orderID int64) {
	b.mu.Lock()
	delete(b.states, orderID)
	b.mu.Unlock()
}

// Action returns the in-flight action for orderID, if any.
func (b *busyTracker) Action(orderID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[orderID]
	return st.action, ok
}
