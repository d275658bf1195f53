package message

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/consts"
	"github.com/dyike/CortexQuant/models"
)

// Emitter receives progress events. Implementations must not block the
// caller for long; correctness never depends on a subscriber.
type Emitter interface {
	Emit(event models.LogEvent)
}

// Emit sends to e when it is non-nil.
func Emit(e Emitter, level, msg string) {
	if e == nil {
		return
	}
	e.Emit(models.NewLogEvent(level, msg))
}

// MessageBuffer keeps the most recent events and the status of each analyst
// for progress display.
type MessageBuffer struct {
	mu          sync.Mutex
	messages    *list.List
	maxLength   int
	agentStatus map[string]string
	agentOrder  []string
}

func NewMessageBuffer(maxLength int) *MessageBuffer {
	if maxLength <= 0 {
		maxLength = 100
	}
	order := []string{
		consts.Agent_FundamentalAnalyst,
		consts.Agent_TechnicalAnalyst,
		consts.Agent_ValuationAnalyst,
		consts.Agent_SummaryAnalyst,
		consts.Agent_InvestmentAdvisor,
	}
	status := make(map[string]string, len(order))
	for _, name := range order {
		status[name] = consts.State_Pending
	}
	return &MessageBuffer{
		messages:    list.New(),
		maxLength:   maxLength,
		agentStatus: status,
		agentOrder:  order,
	}
}

func (m *MessageBuffer) Emit(event models.LogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages.PushBack(event)
	for m.messages.Len() > m.maxLength {
		m.messages.Remove(m.messages.Front())
	}
}

// Messages returns the buffered events, oldest first.
func (m *MessageBuffer) Messages() []models.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.LogEvent, 0, m.messages.Len())
	for e := m.messages.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(models.LogEvent))
	}
	return out
}

func (m *MessageBuffer) UpdateAgentStatus(agent, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentStatus[agent] = status
}

func (m *MessageBuffer) AgentStatus(agent string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentStatus[agent]
}

// ResetAgents puts every analyst back to pending before the next run.
func (m *MessageBuffer) ResetAgents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.agentOrder {
		m.agentStatus[name] = consts.State_Pending
	}
}

// Channel forwards events to C and drops them when the reader lags.
type Channel struct {
	C chan models.LogEvent
}

func NewChannel(size int) *Channel {
	return &Channel{C: make(chan models.LogEvent, size)}
}

func (c *Channel) Emit(event models.LogEvent) {
	select {
	case c.C <- event:
	default:
	}
}

// Logger writes events through zerolog.
type Logger struct {
	Log zerolog.Logger
}

func (l Logger) Emit(event models.LogEvent) {
	var ev *zerolog.Event
	switch event.Level {
	case models.LevelError:
		ev = l.Log.Error()
	case models.LevelWarning:
		ev = l.Log.Warn()
	default:
		ev = l.Log.Info()
	}
	ev.Str("type", event.Level).Time("event_time", event.Timestamp).Msg(event.Message)
}

// Multi fans one event out to several emitters.
type Multi []Emitter

func (m Multi) Emit(event models.LogEvent) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}

// Func adapts a plain function.
type Func func(models.LogEvent)

func (f Func) Emit(event models.LogEvent) { f(event) }
