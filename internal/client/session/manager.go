// Package session owns the client's current-user state. It mediates login,
// registration, and logout against the backend provider, restores persisted
// sessions on process start, and fans out state-change notifications to
// subscribers. All session mutation goes through the Manager; consumers only
// ever see copies.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mzheleznov/profilehub/internal/client/api"
	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/logging"
)

// State describes the manager's authentication state. On process start the
// manager reports StateLoading until Restore has decided whether a persisted
// session is still valid.
type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the in-memory representation of the currently authenticated
// user. ProfileImageRef is the provider-issued download reference for the
// profile picture, empty when none has been uploaded.
type Session struct {
	UserID          string
	Email           string
	Username        string
	ProfileImageRef string
	AccessToken     string
	RefreshToken    string
}

// EventKind labels a state-change notification.
type EventKind int

const (
	EventLogin EventKind = iota
	EventLogout
	EventRestored
	EventProfileUpdated
)

// Event is delivered to subscribers whenever the session changes.
type Event struct {
	Kind    EventKind
	State   State
	Session Session
}

// Manager is the identity session manager.
type Manager struct {
	provider api.Provider
	store    *TokenStore
	logger   logging.Logger

	mu      sync.RWMutex
	state   State
	session Session

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewManager constructs a Manager in StateLoading. Callers should invoke
// Restore shortly after to resolve the initial state.
func NewManager(provider api.Provider, store *TokenStore, logger logging.Logger) *Manager {
	return &Manager{
		provider: provider,
		store:    store,
		logger:   logger.With("module", "session"),
		state:    StateLoading,
		subs:     make(map[int]chan Event),
	}
}

// Current returns a copy of the session and the current state. The copy is
// zero-valued unless the state is StateAuthenticated.
func (m *Manager) Current() (Session, State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.state
}

// Subscribe registers for state-change events. The returned cancel func
// removes the subscription and closes the channel. Events are delivered
// best-effort: a subscriber that is not draining its channel misses events
// rather than blocking the manager.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, 8)
	m.subs[id] = ch

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Login authenticates against the provider, persists the refresh token, and
// populates the session including cached profile fields.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	creds, err := m.provider.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	session, err := m.establish(ctx, creds, EventLogin)
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// Register validates the username locally, creates the identity and its
// profile record via the provider, and establishes the session. An empty or
// whitespace-only username fails with common.ErrValidation before any
// provider call is made.
func (m *Manager) Register(ctx context.Context, email, password, username string) (Session, error) {
	if strings.TrimSpace(username) == "" {
		return Session{}, fmt.Errorf("register: %w: username is required", common.ErrValidation)
	}

	creds, err := m.provider.CreateIdentity(ctx, email, password, username)
	if err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}

	session, err := m.establish(ctx, creds, EventLogin)
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// Logout invalidates the persisted session with the provider (best effort),
// clears the local token file, and resets the in-memory session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	refresh := m.session.RefreshToken
	m.session = Session{}
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if refresh != "" {
		if err := m.provider.DestroySession(ctx, refresh); err != nil {
			m.logger.Warn(ctx, "destroy session failed", "error", err)
		}
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn(ctx, "clear session file failed", "error", err)
	}

	m.notify(EventLogout)
	return nil
}

// Restore resolves the initial state on process start. With no persisted
// token the manager becomes unauthenticated; with one, the token is
// exchanged for fresh credentials and the profile is fetched. Any failure
// degrades to unauthenticated rather than erroring the caller.
func (m *Manager) Restore(ctx context.Context) {
	userID, refresh, err := m.store.Load()
	if err != nil {
		m.logger.Warn(ctx, "load session file failed", "error", err)
	}
	if refresh == "" {
		m.setUnauthenticated(EventRestored)
		return
	}

	tokens, err := m.provider.RefreshSession(ctx, refresh)
	if err != nil {
		m.logger.Warn(ctx, "session restore rejected", "error", err)
		_ = m.store.Clear()
		m.setUnauthenticated(EventRestored)
		return
	}

	profile, err := m.provider.ReadProfile(ctx, tokens.AccessToken)
	if err != nil {
		m.logger.Warn(ctx, "profile fetch failed on restore", "error", err)
		_ = m.store.Clear()
		m.setUnauthenticated(EventRestored)
		return
	}

	if err := m.store.Save(userID, tokens.RefreshToken); err != nil {
		m.logger.Warn(ctx, "persist rotated token failed", "error", err)
	}

	m.mu.Lock()
	m.session = Session{
		UserID:          profile.UserID,
		Email:           profile.Email,
		Username:        profile.Username,
		ProfileImageRef: profile.AvatarURL,
		AccessToken:     tokens.AccessToken,
		RefreshToken:    tokens.RefreshToken,
	}
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.notify(EventRestored)
}

// UpdateUsername writes the new username to the profile record and, once
// durable, reflects it in the cached session.
func (m *Manager) UpdateUsername(ctx context.Context, username string) error {
	session, state := m.Current()
	if state != StateAuthenticated {
		return fmt.Errorf("update username: %w: not logged in", common.ErrAuth)
	}

	profile, err := m.provider.UpdateProfile(ctx, session.AccessToken, username)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}

	m.mu.Lock()
	if m.state == StateAuthenticated && m.session.UserID == profile.UserID {
		m.session.Username = profile.Username
	}
	m.mu.Unlock()

	m.notify(EventProfileUpdated)
	return nil
}

// ApplyAvatar records a confirmed profile image reference for userID. It
// reports false, leaving the session untouched, when that user is no longer
// the authenticated one — a slow upload finishing after a logout must not
// resurrect state.
func (m *Manager) ApplyAvatar(userID, ref string) bool {
	m.mu.Lock()
	if m.state != StateAuthenticated || m.session.UserID != userID {
		m.mu.Unlock()
		return false
	}
	m.session.ProfileImageRef = ref
	m.mu.Unlock()

	m.notify(EventProfileUpdated)
	return true
}

// --- helpers ---

// establish completes a login or registration: persist the refresh token,
// fetch the profile record, install the session, and notify subscribers.
func (m *Manager) establish(ctx context.Context, creds *api.Credentials, kind EventKind) (Session, error) {
	if err := m.store.Save(creds.UserID, creds.RefreshToken); err != nil {
		m.logger.Warn(ctx, "persist session failed", "error", err)
	}

	session := Session{
		UserID:       creds.UserID,
		Email:        creds.Email,
		Username:     creds.Username,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}

	// Populate cached profile fields, including the avatar reference.
	if profile, err := m.provider.ReadProfile(ctx, creds.AccessToken); err != nil {
		m.logger.Warn(ctx, "profile fetch failed", "error", err)
	} else {
		session.Username = profile.Username
		session.ProfileImageRef = profile.AvatarURL
	}

	m.mu.Lock()
	m.session = session
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.notify(kind)
	return session, nil
}

func (m *Manager) setUnauthenticated(kind EventKind) {
	m.mu.Lock()
	m.session = Session{}
	m.state = StateUnauthenticated
	m.mu.Unlock()
	m.notify(kind)
}

func (m *Manager) notify(kind EventKind) {
	session, state := m.Current()
	event := Event{Kind: kind, State: state, Session: session}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
