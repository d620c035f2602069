package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"chatwatch/internal/eventbus"
	rtsup "chatwatch/internal/runtime/supervisor"
	logx "chatwatch/pkg/logx"
)

var (
	ErrDisabled  = errors.New("notify disabled")
	ErrQueueFull = errors.New("notify queue full")
	ErrStopped   = errors.New("notify stopped")
)

const defaultSendTimeout = 10 * time.Second

// Engine routes alerts through rules to channels.
//
// It is safe for concurrent use. Start/Stop own the async dispatch pipeline;
// Notify works with or without it.
type Engine struct {
	mu sync.Mutex

	log logx.Logger
	bus eventbus.Bus

	cfg      Config
	limiter  *rate.Limiter
	channels map[string]Channel

	accepting bool
	queue     chan Message
	sup       *rtsup.Supervisor
	enqueueWG sync.WaitGroup

	// lastNotified is the cooldown ledger, keyed "keyword:source".
	lmu          sync.Mutex
	lastNotified map[string]time.Time

	smu   sync.Mutex
	stats map[string]*ChannelStat
}

func NewEngine(cfg Config, channels []Channel, log logx.Logger, bus eventbus.Bus) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{
		log:          log,
		bus:          bus,
		channels:     map[string]Channel{},
		lastNotified: map[string]time.Time{},
		stats:        map[string]*ChannelStat{},
	}
	for _, ch := range channels {
		e.channels[ch.Name()] = ch
		e.stats[ch.Name()] = &ChannelStat{Name: ch.Name()}
	}
	e.applyLocked(cfg)
	return e
}

func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Enabled
}

func (e *Engine) Apply(cfg Config) {
	e.mu.Lock()
	e.applyLocked(cfg)
	e.mu.Unlock()
}

func (e *Engine) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	e.cfg = cfg
	// Burst equals the per-second rate so short spikes drain immediately.
	e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start brings up the dispatch queue and workers. Idempotent.
func (e *Engine) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue != nil || !e.cfg.Enabled {
		return
	}
	e.queue = make(chan Message, e.cfg.QueueSize)
	e.accepting = true
	e.sup = rtsup.New(ctx,
		rtsup.WithLogger(e.log.With(logx.String("comp", "notify"))),
		// A broken channel must not take the monitor down with it.
		rtsup.WithCancelOnError(false),
	)
	q := e.queue
	for i := 0; i < e.cfg.Workers; i++ {
		name := fmt.Sprintf("worker.%d", i)
		e.sup.Go0(name, func(c context.Context) {
			e.workerLoop(c, q)
		})
	}
}

// Stop blocks new dispatches and drains the queue until ctx expires.
func (e *Engine) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	q := e.queue
	sup := e.sup
	if q == nil {
		e.mu.Unlock()
		return
	}
	e.accepting = false
	e.queue = nil
	e.sup = nil
	e.mu.Unlock()

	e.enqueueWG.Wait()
	close(q)

	if sup != nil {
		if err := sup.Wait(ctx); err != nil {
			sup.Cancel()
		}
	}
}

// Dispatch queues an alert for async delivery. A full queue drops the alert
// rather than blocking the caller.
func (e *Engine) Dispatch(msg Message) error {
	e.mu.Lock()
	if !e.cfg.Enabled {
		e.mu.Unlock()
		return ErrDisabled
	}
	if !e.accepting || e.queue == nil {
		e.mu.Unlock()
		return ErrStopped
	}
	q := e.queue
	e.enqueueWG.Add(1)
	e.mu.Unlock()
	defer e.enqueueWG.Done()

	select {
	case q <- msg:
		queueDepth.Set(float64(len(q)))
		return nil
	default:
		droppedCounter.Inc()
		e.publish(eventbus.TypeNotifyDropped, Event{
			Keyword: msg.Keyword, Source: msg.Source, Error: ErrQueueFull.Error(),
		})
		e.log.Warn("alert dropped, queue full",
			logx.String("keyword", msg.Keyword), logx.String("source", msg.Source))
		return ErrQueueFull
	}
}

func (e *Engine) workerLoop(ctx context.Context, q <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-q:
			if !ok {
				return
			}
			queueDepth.Set(float64(len(q)))
			e.Notify(ctx, msg)
		}
	}
}

// Notify delivers one alert synchronously and reports per-channel success.
// A cooled-down or unroutable alert returns an empty map.
func (e *Engine) Notify(ctx context.Context, msg Message) map[string]bool {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	enabled := e.cfg.Enabled
	timeout := e.cfg.SendTimeout
	lim := e.limiter
	e.mu.Unlock()
	if !enabled {
		return map[string]bool{}
	}

	names, cooldown, ruleName := e.route(msg)
	if len(names) == 0 {
		e.log.Debug("alert has no destination",
			logx.String("keyword", msg.Keyword), logx.String("source", msg.Source))
		return map[string]bool{}
	}

	if cooldown > 0 && !e.cooldownPass(msg, cooldown) {
		cooledCounter.Inc()
		e.publish(eventbus.TypeNotifyCooled, Event{
			Keyword: msg.Keyword, Source: msg.Source, Rule: ruleName,
		})
		return map[string]bool{}
	}

	results := make(map[string]bool, len(names))
	var (
		rmu sync.Mutex
		wg  sync.WaitGroup
	)
	for _, name := range names {
		ch, ok := e.lookup(name)
		if !ok {
			rmu.Lock()
			results[name] = false
			rmu.Unlock()
			continue
		}
		wg.Add(1)
		go func(name string, ch Channel) {
			defer wg.Done()
			ok := e.sendOne(ctx, ch, msg, timeout, lim, ruleName)
			rmu.Lock()
			results[name] = ok
			rmu.Unlock()
		}(name, ch)
	}
	wg.Wait()

	ok := 0
	for _, delivered := range results {
		if delivered {
			ok++
		}
	}
	e.log.Info("alert delivered",
		logx.String("keyword", msg.Keyword),
		logx.String("source", msg.Source),
		logx.Int("ok", ok),
		logx.Int("total", len(results)))
	return results
}

func (e *Engine) sendOne(ctx context.Context, ch Channel, msg Message, timeout time.Duration, lim *rate.Limiter, ruleName string) bool {
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return false
		}
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	err := ch.Send(sctx, msg)
	cancel()

	e.record(ch.Name(), err)
	if err != nil {
		failedCounter.WithLabelValues(ch.Name()).Inc()
		e.publish(eventbus.TypeNotifyFailed, Event{
			Channel: ch.Name(), Keyword: msg.Keyword, Source: msg.Source,
			Rule: ruleName, Error: err.Error(),
		})
		e.log.Warn("alert delivery failed",
			logx.String("channel", ch.Name()),
			logx.String("keyword", msg.Keyword),
			logx.Err(err))
		return false
	}
	sentCounter.WithLabelValues(ch.Name()).Inc()
	e.publish(eventbus.TypeNotifySent, Event{
		Channel: ch.Name(), Keyword: msg.Keyword, Source: msg.Source, Rule: ruleName,
	})
	return true
}

// route picks destination channels for an alert.
//
// Every enabled rule claiming the matched keyword contributes: the alert goes
// to the union of their channels under the smallest of their cooldowns. With
// no matching rule the default channels receive it with cooldown off.
func (e *Engine) route(msg Message) (names []string, cooldown time.Duration, ruleName string) {
	e.mu.Lock()
	rules := e.cfg.Rules
	defaults := e.cfg.DefaultChannels
	e.mu.Unlock()

	var matched []Rule
	for _, r := range rules {
		if r.Enabled && ruleMatches(r, msg.Keyword) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return defaults, 0, ""
	}

	cooldown = matched[0].Cooldown
	ruleNames := make([]string, 0, len(matched))
	for _, r := range matched {
		names = append(names, r.Channels...)
		if r.Cooldown < cooldown {
			cooldown = r.Cooldown
		}
		ruleNames = append(ruleNames, r.Name)
	}
	names = lo.Uniq(names)
	sort.Strings(ruleNames)
	return names, cooldown, strings.Join(ruleNames, ",")
}

// ruleMatches tests a rule against the alert's matched keyword. The matched
// keyword is checked as a substring of each rule keyword entry — not the
// reverse — so a rule on "申请退款" claims the hit "退款" while a rule on
// "退款" never claims "申请退款". Existing rule files rely on this asymmetry.
func ruleMatches(r Rule, keyword string) bool {
	if keyword == "" {
		return false
	}
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(kw, keyword) {
			return true
		}
	}
	return false
}

// cooldownPass consults and updates the ledger. The window is per keyword and
// source, so the same keyword firing on two sources alerts twice.
func (e *Engine) cooldownPass(msg Message, cooldown time.Duration) bool {
	key := msg.Keyword + ":" + msg.Source
	now := time.Now()
	e.lmu.Lock()
	defer e.lmu.Unlock()
	if last, ok := e.lastNotified[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	e.lastNotified[key] = now
	return true
}

func (e *Engine) lookup(name string) (Channel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[name]
	return ch, ok
}

func (e *Engine) record(channel string, err error) {
	e.smu.Lock()
	defer e.smu.Unlock()
	st, ok := e.stats[channel]
	if !ok {
		st = &ChannelStat{Name: channel}
		e.stats[channel] = st
	}
	if err != nil {
		st.Failed++
		st.LastError = err.Error()
		return
	}
	st.Sent++
	st.LastError = ""
	st.LastSent = time.Now()
}

// Stats returns a snapshot of per-channel delivery counters, sorted by name.
func (e *Engine) Stats() []ChannelStat {
	e.smu.Lock()
	out := make([]ChannelStat, 0, len(e.stats))
	for _, st := range e.stats {
		out = append(out, *st)
	}
	e.smu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Engine) publish(typ string, ev Event) {
	if e.bus == nil {
		return
	}
	now := time.Now()
	ev.At = now
	e.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
}
