package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"chatwatch/internal/dedup"
	"chatwatch/internal/eventbus"
	"chatwatch/internal/keyword"
	"chatwatch/internal/message"
	"chatwatch/internal/notify"
	rtsup "chatwatch/internal/runtime/supervisor"
	"chatwatch/internal/source"
	"chatwatch/internal/storage"
	logx "chatwatch/pkg/logx"
)

var ErrNoSources = errors.New("no sources registered")

// Dispatcher receives alerts for matched messages. Satisfied by
// *notify.Engine; a stub satisfies it in tests.
type Dispatcher interface {
	Dispatch(msg notify.Message) error
}

// Config tunes the loop cadence. Zero values get defaults in New.
type Config struct {
	// Tick is the scheduler resolution; sources poll on multiples of it.
	Tick time.Duration
	// Heartbeat is how often the store's liveness row is touched.
	Heartbeat time.Duration
	// KeywordRefresh is how often enabled keywords are re-read from the
	// store. Stored keywords take precedence over the file config set.
	KeywordRefresh time.Duration
}

// Stats is a point-in-time snapshot of pipeline counters. Channel delivery
// stats live with the notify engine; the web layer reports both side by side.
type Stats struct {
	Running    bool             `json:"running"`
	StartedAt  time.Time        `json:"started_at,omitzero"`
	Processed  uint64           `json:"processed"`
	Duplicates uint64           `json:"duplicates"`
	Matched    uint64           `json:"matched"`
	Keywords   []string         `json:"keywords"`
	Sources    []message.Status `json:"sources"`
}

// Monitor owns the poll loop and the processing pipeline.
type Monitor struct {
	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store
	disp  Dispatcher

	cfg        Config
	matcherCfg keyword.Config

	sources  []source.Source
	caches   map[string]*dedup.Cache
	inflight map[string]*atomic.Bool
	lastPoll map[string]time.Time
	// parked tracks sources currently skipped as unavailable so the
	// transitions get logged once, not every tick. Touched only from tick.
	parked map[string]bool

	mmu     sync.RWMutex
	matcher *keyword.Matcher

	running   atomic.Bool
	startedAt atomic.Int64 // unix nanos, 0 until Run begins

	processed  atomic.Uint64
	duplicates atomic.Uint64
	matched    atomic.Uint64
}

func New(cfg Config, matcherCfg keyword.Config, sources []source.Source, store storage.Store, disp Dispatcher, log logx.Logger, bus eventbus.Bus) *Monitor {
	if cfg.Tick <= 0 {
		cfg.Tick = 100 * time.Millisecond
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	if cfg.KeywordRefresh <= 0 {
		cfg.KeywordRefresh = 5 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Monitor{
		log:        log,
		bus:        bus,
		store:      store,
		disp:       disp,
		cfg:        cfg,
		matcherCfg: matcherCfg,
		sources:    sources,
		caches:     map[string]*dedup.Cache{},
		inflight:   map[string]*atomic.Bool{},
		lastPoll:   map[string]time.Time{},
		parked:     map[string]bool{},
		matcher:    keyword.New(matcherCfg),
	}
	for _, s := range sources {
		m.caches[s.Name()] = dedup.New(dedup.DefaultCap, dedup.DefaultKeep)
		m.inflight[s.Name()] = &atomic.Bool{}
	}
	return m
}

// Run drives the loop until ctx is canceled. It is the caller's main blocking
// call; starting with zero sources is a configuration error, not something to
// idle through.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.sources) == 0 {
		return ErrNoSources
	}

	m.running.Store(true)
	m.startedAt.Store(time.Now().UnixNano())
	defer m.running.Store(false)

	if m.store != nil {
		if err := m.store.UpdateStatus(ctx, "running", os.Getpid()); err != nil {
			m.log.Warn("status update failed", logx.Err(err))
		}
	}

	// Keywords stored in the DB override the file config set as soon as the
	// first refresh lands; do one synchronously so the override is in place
	// before the first poll.
	m.refreshKeywords(ctx)

	sup := rtsup.New(ctx, rtsup.WithLogger(m.log), rtsup.WithCancelOnError(false))

	cr := cron.New()
	if m.store != nil {
		if _, err := cr.AddFunc(fmt.Sprintf("@every %s", m.cfg.Heartbeat), func() {
			hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := m.store.Heartbeat(hctx); err != nil {
				m.log.Warn("heartbeat failed", logx.Err(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule heartbeat: %w", err)
		}
		if _, err := cr.AddFunc(fmt.Sprintf("@every %s", m.cfg.KeywordRefresh), func() {
			m.refreshKeywords(ctx)
		}); err != nil {
			return fmt.Errorf("schedule keyword refresh: %w", err)
		}
	}
	if _, err := cr.AddFunc("@every 5m", m.logPipelineStats); err != nil {
		return fmt.Errorf("schedule stats log: %w", err)
	}
	cr.Start()
	defer cr.Stop()

	m.log.Info("monitor started",
		logx.Int("sources", len(m.sources)),
		logx.Duration("tick", m.cfg.Tick),
		logx.Any("keywords", m.keywords()))

	ticker := time.NewTicker(m.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown(sup)
			return ctx.Err()
		case <-ticker.C:
			m.tick(ctx, sup)
		}
	}
}

func (m *Monitor) shutdown(sup *rtsup.Supervisor) {
	wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		sup.Cancel()
	}
	if m.store != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		if err := m.store.UpdateStatus(sctx, "stopped", os.Getpid()); err != nil {
			m.log.Warn("status update failed", logx.Err(err))
		}
	}
	m.log.Info("monitor stopped",
		logx.Uint64("processed", m.processed.Load()),
		logx.Uint64("matched", m.matched.Load()))
}

// tick launches a poll for every source that is due and not already mid-poll.
func (m *Monitor) tick(ctx context.Context, sup *rtsup.Supervisor) {
	now := time.Now()
	for _, s := range m.sources {
		if !s.Available() {
			if !m.parked[s.Name()] {
				m.parked[s.Name()] = true
				m.log.Debug("source parked", logx.String("source", s.Name()))
			}
			continue
		}
		if m.parked[s.Name()] {
			delete(m.parked, s.Name())
			m.log.Debug("source resumed", logx.String("source", s.Name()))
		}
		if now.Sub(m.lastPoll[s.Name()]) < s.PollInterval() {
			continue
		}
		busy := m.inflight[s.Name()]
		if !busy.CompareAndSwap(false, true) {
			continue
		}
		m.lastPoll[s.Name()] = now

		src := s
		sup.Go0("poll."+src.Name(), func(c context.Context) {
			defer busy.Store(false)
			m.pollOne(c, src)
		})
	}
}

func (m *Monitor) pollOne(ctx context.Context, src source.Source) {
	msgs, err := src.Poll(ctx)
	if err != nil {
		pollErrorCounter.WithLabelValues(src.Name()).Inc()
		if !errors.Is(err, context.Canceled) {
			m.log.Warn("poll failed", logx.String("source", src.Name()), logx.Err(err))
		}
		return
	}
	cache := m.caches[src.Name()]
	for i := range msgs {
		m.process(ctx, cache, &msgs[i])
	}
}

// process runs one message through dedup, matching, persistence, dispatch.
func (m *Monitor) process(ctx context.Context, cache *dedup.Cache, msg *message.Message) {
	if msg.ID == "" {
		msg.ID = message.GenerateID(msg.Platform, msg.Channel, msg.Content, msg.Timestamp)
	}
	if !cache.Observe(msg.ID) {
		m.duplicates.Add(1)
		duplicateCounter.WithLabelValues(msg.SourceName).Inc()
		return
	}

	m.processed.Add(1)
	processedCounter.WithLabelValues(msg.SourceName).Inc()

	matchedKw, hit := m.currentMatcher().Check(msg.Content)
	if hit {
		msg.MatchedKeywords = []string{matchedKw}
	}

	if m.store != nil {
		kw := ""
		if hit {
			kw = matchedKw
		}
		rec := storage.MessageRecord{
			MessageID:      msg.ID,
			SourceName:     msg.SourceName,
			Platform:       msg.Platform,
			Channel:        msg.Channel,
			Sender:         msg.Sender,
			Content:        msg.Content,
			MatchedKeyword: kw,
			CreatedAt:      msg.Timestamp,
		}
		sctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, err := m.store.InsertMessage(sctx, rec)
		cancel()
		if err != nil {
			// Persistence is best-effort; losing a row must not stop the
			// pipeline or the alert.
			m.log.Warn("message insert failed", logx.String("id", msg.ID), logx.Err(err))
		} else if m.bus != nil {
			m.bus.Publish(eventbus.Event{Type: eventbus.TypeMessageStored, Time: time.Now(), Data: *msg})
		}
	}

	if !hit {
		return
	}

	m.matched.Add(1)
	matchCounter.WithLabelValues(msg.SourceName).Inc()
	m.log.Info("keyword hit",
		logx.String("keyword", matchedKw),
		logx.String("source", msg.SourceName),
		logx.String("channel", msg.Channel),
		logx.String("sender", msg.Sender))

	if m.bus != nil {
		m.bus.Publish(eventbus.Event{Type: eventbus.TypeKeywordMatch, Time: time.Now(), Data: *msg})
	}

	if m.disp != nil {
		alert := notify.Message{
			Title:     "keyword alert: " + matchedKw,
			Body:      fmt.Sprintf("[%s] %s: %s", msg.Channel, msg.Sender, msg.Content),
			Keyword:   matchedKw,
			Source:    msg.SourceName,
			Timestamp: msg.Timestamp,
			Meta: map[string]string{
				"platform": msg.Platform,
				"msg_id":   msg.ID,
			},
		}
		if err := m.disp.Dispatch(alert); err != nil {
			m.log.Warn("alert dispatch failed", logx.String("keyword", matchedKw), logx.Err(err))
		}
	}
}

// refreshKeywords loads enabled keywords from the store. A non-empty stored
// set replaces the file config set; an empty one leaves the current set.
func (m *Monitor) refreshKeywords(ctx context.Context) {
	if m.store == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	kws, err := m.store.EnabledKeywords(rctx)
	if err != nil {
		m.log.Warn("keyword refresh failed", logx.Err(err))
		return
	}
	if len(kws) == 0 {
		return
	}
	cfg := m.matcherCfg
	cfg.Keywords = kws
	m.mmu.Lock()
	m.matcher = keyword.New(cfg)
	m.mmu.Unlock()
	m.log.Info("keywords refreshed", logx.Int("count", len(kws)))
}

// logPipelineStats runs off the cron goroutine, so it only touches the
// atomic counters; the per-source caches stay confined to their pollers.
func (m *Monitor) logPipelineStats() {
	m.log.Info("pipeline stats",
		logx.Uint64("processed", m.processed.Load()),
		logx.Uint64("duplicates", m.duplicates.Load()),
		logx.Uint64("matched", m.matched.Load()))
}

func (m *Monitor) currentMatcher() *keyword.Matcher {
	m.mmu.RLock()
	defer m.mmu.RUnlock()
	return m.matcher
}

func (m *Monitor) keywords() []string {
	return m.currentMatcher().Keywords()
}

// Status reports the current pipeline and per-source state.
func (m *Monitor) Status() Stats {
	st := Stats{
		Running:    m.running.Load(),
		Processed:  m.processed.Load(),
		Duplicates: m.duplicates.Load(),
		Matched:    m.matched.Load(),
		Keywords:   m.keywords(),
	}
	if ns := m.startedAt.Load(); ns != 0 {
		st.StartedAt = time.Unix(0, ns)
	}
	for _, s := range m.sources {
		st.Sources = append(st.Sources, s.Status())
	}
	return st
}
