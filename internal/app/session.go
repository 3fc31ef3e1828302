package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/metinatakli/cinefeed/internal/feed"
)

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

var errNoSession = errors.New("request has no browsing session")

// feedRegistry owns one feed controller per browsing session. Controllers of
// sessions that stay idle longer than the session timeout are closed.
type feedRegistry struct {
	newFeed func() *feed.Controller
	idle    time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*feedSession
}

type feedSession struct {
	ctrl     *feed.Controller
	lastSeen time.Time
}

func newFeedRegistry(newFeed func() *feed.Controller, idle time.Duration, logger *slog.Logger) *feedRegistry {
	return &feedRegistry{
		newFeed:  newFeed,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*feedSession),
	}
}

// Get returns the controller of the session, creating it on first use.
func (f *feedRegistry) Get(token string) *feed.Controller {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[token]
	if !ok {
		s = &feedSession{ctrl: f.newFeed()}
		f.sessions[token] = s

		f.logger.Debug("feed created for session", "feed_id", s.ctrl.ID())
	}

	s.lastSeen = f.now()

	return s.ctrl
}

func (f *feedRegistry) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sessions)
}

// Sweep closes the controllers of idle sessions and returns how many were
// dropped.
func (f *feedRegistry) Sweep() int {
	f.mu.Lock()

	cutoff := f.now().Add(-f.idle)

	var expired []*feed.Controller
	for token, s := range f.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.ctrl)
			delete(f.sessions, token)
		}
	}

	f.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
	}

	if len(expired) > 0 {
		f.logger.Info("evicted idle feeds", "count", len(expired))
	}

	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every controller.
func (f *feedRegistry) Run(ctx context.Context) {
	ticker := time.NewTicker(max(f.idle/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.Close()
			return
		case <-ticker.C:
			f.Sweep()
		}
	}
}

func (f *feedRegistry) Close() {
	f.mu.Lock()
	sessions := f.sessions
	f.sessions = make(map[string]*feedSession)
	f.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.Close()
	}
}

func (app *Application) newFeedController() *feed.Controller {
	opts := []feed.Option{feed.WithLogger(app.logger)}
	if app.pageCache != nil {
		opts = append(opts, feed.WithPageCache(app.pageCache))
	}

	return feed.NewController(app.catalog, app.gate, opts...)
}

// feedFor returns the feed of the session loaded by the session middleware.
func (app *Application) feedFor(r *http.Request) (*feed.Controller, error) {
	token := app.sessionManager.Token(r.Context())
	if token == "" {
		return nil, errNoSession
	}

	return app.feeds.Get(token), nil
}

// loadSession reads the session cookie without wrapping the response writer,
// for handlers that take over the connection.
func (app *Application) loadSession(r *http.Request) (context.Context, error) {
	cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
	if err != nil {
		return nil, errNoSession
	}

	ctx, err := app.sessionManager.Load(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}

	if app.sessionManager.Token(ctx) == "" {
		return nil, errNoSession
	}

	return ctx, nil
}
