package accounts

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/conduit/pkg/protocol"
)

// DefaultKeepaliveSchedule is how often connections are checked for a due
// keepalive.
const DefaultKeepaliveSchedule = "@every 5s"

// Poster runs closures on the control goroutine.
type Poster interface {
	Post(fn func()) error
}

// Keepalives sends protocol keepalives for connected accounts. The cron
// schedule only decides when to look; each account is pinged once its
// interval has elapsed. The interval is the account's "keepalive" setting
// when present, otherwise the protocol's KeepaliveInterval. Zero disables it.
type Keepalives struct {
	manager *Manager
	poster  Poster
	cron    *cron.Cron
	last    map[string]time.Time
	log     *logrus.Logger
}

// NewKeepalives creates a scheduler for m's accounts. Ticks are posted
// through poster.
func NewKeepalives(m *Manager, poster Poster, log *logrus.Logger) *Keepalives {
	if log == nil {
		log = m.log
	}
	return &Keepalives{
		manager: m,
		poster:  poster,
		cron:    cron.New(cron.WithLogger(cronLogger{log})),
		last:    make(map[string]time.Time),
		log:     log,
	}
}

// Start schedules the check. An empty spec uses DefaultKeepaliveSchedule.
func (k *Keepalives) Start(spec string) error {
	if spec == "" {
		spec = DefaultKeepaliveSchedule
	}
	_, err := k.cron.AddFunc(spec, func() {
		if err := k.poster.Post(func() { k.Tick(time.Now()) }); err != nil {
			k.log.WithError(err).Debug("Dropped keepalive tick")
		}
	})
	if err != nil {
		return fmt.Errorf("keepalive schedule %q: %w", spec, err)
	}
	k.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running tick to be posted.
func (k *Keepalives) Stop() {
	<-k.cron.Stop().Done()
}

// Tick sends every keepalive due at now and returns how many were sent.
// It must run on the control goroutine.
func (k *Keepalives) Tick(now time.Time) int {
	sent := 0
	seen := make(map[string]bool)
	for _, acct := range k.manager.Active() {
		if !acct.IsConnected() {
			continue
		}
		p, ok := k.manager.registry.Lookup(acct.ProtocolID)
		if !ok {
			continue
		}
		seen[acct.ID] = true

		interval := k.interval(p, acct)
		if interval <= 0 {
			continue
		}
		last, ok := k.last[acct.ID]
		if !ok {
			// first sighting starts the clock
			k.last[acct.ID] = now
			continue
		}
		if now.Sub(last) < interval {
			continue
		}
		protocol.Keepalive(p, acct.Connection())
		k.last[acct.ID] = now
		sent++
	}

	for id := range k.last {
		if !seen[id] {
			delete(k.last, id)
		}
	}
	if sent > 0 {
		k.log.WithField("sent", sent).Debug("Sent keepalives")
	}
	return sent
}

func (k *Keepalives) interval(p *protocol.Protocol, acct *protocol.Account) time.Duration {
	secs := protocol.KeepaliveInterval(p)
	switch v := acct.Setting("keepalive", nil).(type) {
	case int:
		secs = v
	case int64:
		secs = int(v)
	case float64:
		secs = int(v)
	}
	return time.Duration(secs) * time.Second
}

// cronLogger routes cron's own logging to logrus.
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
