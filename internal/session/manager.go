package session

import (
	"context"
	"crypto/sha256"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/patrickmn/go-cache"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
)

const cookieValueKey = "session_id"

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.NewStd("session not found")

// Recorder collects session lifecycle metrics.
type Recorder interface {
	RecordSessionEvent(event string)
	SetActiveSessions(n int)
}

// Config configures a Manager.
type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	CookieName      string
	Secret          string
	Secure          bool
}

// ConfigFromSettings converts the session section of settings.
func ConfigFromSettings(s *conf.SessionSettings) Config {
	return Config{
		TTL:             s.TTL,
		CleanupInterval: s.CleanupInterval,
		CookieName:      s.CookieName,
		Secret:          s.Secret,
		Secure:          s.Secure,
	}
}

// Manager creates, finds and expires sessions. Every access slides the
// session's expiry forward by the TTL.
type Manager struct {
	loader     Loader
	cache      *cache.Cache
	cookies    *sessions.CookieStore
	cookieName string
	recorder   Recorder
	now        func() time.Time
	log        logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder reports session metrics.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager returns a manager loading collections through loader. Call
// Close to stop the expiry janitor.
func NewManager(loader Loader, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		loader:     loader,
		cache:      cache.New(cfg.TTL, cache.NoExpiration),
		cookies:    sessions.NewCookieStore(cookieKey(cfg.Secret)),
		cookieName: cfg.CookieName,
		now:        time.Now,
		log:        GetLogger(),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	m.cache.OnEvicted(func(id string, _ any) {
		m.log.Debug("session evicted", logger.String("session_id", id))
		if m.recorder != nil {
			m.recorder.RecordSessionEvent("evicted")
			m.recorder.SetActiveSessions(m.cache.ItemCount())
		}
	})

	if cfg.CleanupInterval > 0 {
		m.wg.Add(1)
		go m.janitor(cfg.CleanupInterval)
	}
	return m
}

// cookieKey derives the cookie signing key. An empty secret gets a random
// key, so cookies do not survive a restart.
func cookieKey(secret string) []byte {
	if secret == "" {
		return securecookie.GenerateRandomKey(32)
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func (m *Manager) janitor(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cache.DeleteExpired()
		case <-m.stop:
			return
		}
	}
}

// Start loads the store into a new session.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	c, err := m.loader.Load(ctx)
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Context("operation", "start_session").
			Build()
	}

	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		collection: c,
		loadedAt:   now,
	}
	m.cache.SetDefault(s.ID, s)

	m.log.Info("session started",
		logger.String("session_id", s.ID),
		logger.Int("records", c.Len()))
	if m.recorder != nil {
		m.recorder.RecordSessionEvent("started")
		m.recorder.SetActiveSessions(m.cache.ItemCount())
	}
	return s, nil
}

// Get returns a live session and extends its expiry.
func (m *Manager) Get(id string) (*Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, errors.New(ErrSessionNotFound).
			Component("session").
			Category(errors.CategoryNotFound).
			Context("session_id", id).
			Build()
	}
	s := v.(*Session)
	m.cache.SetDefault(id, s)
	return s, nil
}

// Reload re-reads the store into an existing session. The selection is
// kept; on failure the session keeps its previous collection.
func (m *Manager) Reload(ctx context.Context, id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	c, err := m.loader.Load(ctx)
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Context("operation", "reload_session").
			Context("session_id", id).
			Build()
	}

	previous := s.Collection().Len()
	s.replace(c, m.now())

	m.log.Info("session reloaded",
		logger.String("session_id", id),
		logger.Int("records_before", previous),
		logger.Int("records", c.Len()))
	if m.recorder != nil {
		m.recorder.RecordSessionEvent("reloaded")
	}
	return s, nil
}

// End discards a session. Unknown ids are ignored.
func (m *Manager) End(id string) {
	if _, ok := m.cache.Get(id); !ok {
		return
	}
	m.cache.Delete(id)
	m.log.Info("session ended", logger.String("session_id", id))
}

// Count returns the number of live sessions, including expired ones not yet
// cleaned up.
func (m *Manager) Count() int {
	return m.cache.ItemCount()
}

// FromRequest returns the session named by the request cookie, starting a
// new one (and setting the cookie on w) when there is none.
func (m *Manager) FromRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	// A cookie signed by another key decodes with an error and an empty session.
	cookie, _ := m.cookies.Get(r, m.cookieName)
	if id, ok := cookie.Values[cookieValueKey].(string); ok {
		if s, err := m.Get(id); err == nil {
			return s, nil
		}
	}

	s, err := m.Start(ctx)
	if err != nil {
		return nil, err
	}

	cookie.Values[cookieValueKey] = s.ID
	if err := cookie.Save(r, w); err != nil {
		m.log.Warn("session cookie not saved", logger.Error(err))
	}
	return s, nil
}

// Close stops the expiry janitor. It does not discard sessions.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}
