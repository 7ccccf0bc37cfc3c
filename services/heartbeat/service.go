package heartbeat

import (
	"log/slog"
	"time"

	"spec-mtc-go/bus"
	"spec-mtc-go/sched"
	"spec-mtc-go/x/diag"
	"spec-mtc-go/x/timex"
)

// DefaultInterval between heartbeat lines.
const DefaultInterval = 10 * time.Second

var topicConfigHeartbeat = bus.T("config", "heartbeat")

// Service watches the whole bus and periodically reports scheduler health.
type Service struct {
	conn     *bus.Connection
	x        *sched.Executor
	log      *slog.Logger
	interval time.Duration

	sub  *bus.Subscription
	msgs *sched.Event

	next    time.Duration
	started bool
	seen    uint64
	beats   uint64
}

func New(conn *bus.Connection, x *sched.Executor, log *slog.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Service{
		conn:     conn,
		x:        x,
		log:      diag.Or(log),
		interval: interval,
		msgs:     sched.NewEvent(),
	}
	s.sub = conn.SubscribeNotify(bus.T("#"), s.msgs.Post)
	return s
}

func (s *Service) Poll(now time.Duration) sched.Wait {
	if !s.started {
		s.started = true
		s.next = now + s.interval
	}

	for {
		m, ok := s.sub.TryRecv()
		if !ok {
			break
		}
		s.seen++
		s.log.Debug("bus", "topic", m.Topic.String(), "retained", m.Retained)
		if bus.Match(topicConfigHeartbeat, m.Topic) {
			s.applyConfig(now, m.Payload)
		}
	}

	if now >= s.next {
		s.beat(now)
		// Skip beats missed while the executor was busy.
		for s.next <= now {
			s.next += s.interval
		}
	}
	return sched.OnOrAt(s.msgs, s.next)
}

func (s *Service) beat(now time.Duration) {
	s.beats++
	s.log.Info("heartbeat", "uptime_ms", timex.Ms(now), "msgs", s.seen, "tasks", s.x.Len())
	for _, st := range s.x.Stats() {
		s.log.Debug("task", "name", st.Name, "polls", st.Polls, "max_late_ms", timex.Ms(st.MaxLate), "done", st.Done)
	}
}

// applyConfig accepts {"interval": seconds}.
func (s *Service) applyConfig(now time.Duration, p any) {
	m, ok := p.(map[string]any)
	if !ok {
		return
	}
	iv, ok := m["interval"].(float64)
	if !ok || iv <= 0 {
		return
	}
	s.interval = time.Duration(iv * float64(time.Second))
	s.next = now + s.interval
	s.log.Info("heartbeat interval set", "seconds", iv)
}

// Beats reports how many heartbeat lines were emitted.
func (s *Service) Beats() uint64 { return s.beats }

// Seen reports how many bus messages were observed.
func (s *Service) Seen() uint64 { return s.seen }

// Stop drops the bus subscription.
func (s *Service) Stop() { s.conn.Unsubscribe(s.sub) }
