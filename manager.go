package clientcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaber/clientcore/store"
	"github.com/mosaber/clientcore/token"
)

// Manager owns session validity policy: issue, validate, expire, warn. All
// state is derived from client-held persistence; there is no server-side
// session authority.
//
// Manager instances are intended to be configured during initialization
// through [Builder.Build] and then treated as immutable. Methods are safe for
// concurrent use; re-entrant Validate calls are idempotent.
type Manager struct {
	config     Config
	codec      token.Codec
	store      *store.Store
	directory  Directory
	activity   *Log
	dispatcher *Dispatcher
	metrics    *Metrics
	now        func() time.Time

	warned    atomic.Bool
	redirects chan string

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

type sessionProbe uint8

const (
	probeAnonymous sessionProbe = iota
	probeMalformed
	probeCorrupt
	probeOK
)

// readSession derives the current session from persisted state without
// mutating anything. Storage transport failures surface as an error; every
// other shape of persisted state maps to a probe result.
func (m *Manager) readSession(ctx context.Context) (Session, sessionProbe, error) {
	tok, err := m.store.LoadToken(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, probeAnonymous, nil
	}
	if err != nil {
		return Session{}, probeAnonymous, err
	}

	subject, issuedAt, err := m.codec.Decode(tok)
	if err != nil {
		return Session{}, probeMalformed, nil
	}

	payload, err := m.store.LoadProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, probeCorrupt, nil
	}
	if err != nil {
		return Session{}, probeAnonymous, err
	}

	var profile UserProfile
	if err := unmarshalProfile(payload, &profile); err != nil {
		return Session{}, probeCorrupt, nil
	}

	return Session{Subject: subject, IssuedAt: issuedAt, User: profile}, probeOK, nil
}

// expired reports whether the session elapsed time strictly exceeds the TTL.
// Exactly TTL is still valid.
func (m *Manager) expired(sess Session) bool {
	return m.now().Sub(sess.IssuedAt) > m.config.Session.TTL
}

// nearExpiry reports whether the session is inside the warning band. The
// boundary itself (elapsed == TTL-WarningWindow) already counts as warned.
func (m *Manager) nearExpiry(sess Session) bool {
	elapsed := m.now().Sub(sess.IssuedAt)
	return elapsed >= m.config.Session.TTL-m.config.Session.WarningWindow && !m.expired(sess)
}

// Login validates the credentials against the directory collaborator, mints a
// token issued now, persists token and profile, and records the login. On
// rejection it records a failed_login (which alerts the admin) and returns
// [ErrInvalidCredentials].
func (m *Manager) Login(ctx context.Context, username, password string) (UserProfile, error) {
	if m == nil || m.store == nil {
		return UserProfile{}, ErrManagerNotReady
	}

	origin := originFromContext(ctx)

	if username == "" || password == "" {
		m.metrics.Inc(MetricLoginFailure)
		m.appendActivity(ctx, ActivityFailedLogin,
			fmt.Sprintf("failed login attempt for %s", actorOrUnknown(username)), username, origin)
		return UserProfile{}, ErrInvalidCredentials
	}

	profile, err := m.directory.Resolve(username)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.appendActivity(ctx, ActivityFailedLogin,
			fmt.Sprintf("failed login attempt for %s", username), username, origin)
		return UserProfile{}, ErrInvalidCredentials
	}
	password = ""

	tok, err := m.codec.Encode(username, m.now())
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return UserProfile{}, err
	}

	payload, err := marshalProfile(profile)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return UserProfile{}, err
	}
	if err := m.store.SaveToken(ctx, tok); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return UserProfile{}, err
	}
	if err := m.store.SaveProfile(ctx, payload); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return UserProfile{}, err
	}

	m.warned.Store(false)
	m.metrics.Inc(MetricLoginSuccess)
	m.appendActivity(ctx, ActivityLogin,
		fmt.Sprintf("user %s logged in", username), username, origin)

	return profile, nil
}

// Logout clears the persisted token, profile, and activity log, records the
// logout, and signals a redirect to the login entry point. It is
// unconditional: logging out an anonymous session is a no-op beyond the
// redirect.
func (m *Manager) Logout(ctx context.Context) error {
	if m == nil || m.store == nil {
		return ErrManagerNotReady
	}

	sess, probe, err := m.readSession(ctx)
	if err != nil {
		return err
	}

	if err := m.store.ClearSession(ctx); err != nil {
		return err
	}
	m.warned.Store(false)

	if probe == probeOK {
		m.metrics.Inc(MetricLogout)
		m.appendActivity(ctx, ActivityLogout,
			fmt.Sprintf("user %s logged out", sess.User.Username),
			sess.User.Username, originFromContext(ctx))
	}

	m.signalRedirect()
	return nil
}

// Validate derives the session from persisted state and reports whether it is
// still live. Exceeding the TTL, a malformed token, or corrupt persistence
// forces the Expired transition as a side effect: state is cleared, a logout
// is recorded when a session existed, and a redirect is signaled. Revalidating
// an already-expired session is a no-op.
func (m *Manager) Validate(ctx context.Context) bool {
	if m == nil || m.store == nil {
		return false
	}
	m.metrics.Inc(MetricValidate)

	sess, probe, err := m.readSession(ctx)
	if err != nil {
		// Storage down: assume no session rather than forcing a transition
		// we cannot persist.
		return false
	}

	switch probe {
	case probeAnonymous:
		return false
	case probeMalformed, probeCorrupt:
		m.forceExpire(ctx, nil, "")
		return false
	}

	if m.expired(sess) {
		m.forceExpire(ctx, &sess, "Session expired, please log in again")
		return false
	}
	return true
}

// forceExpire performs the Expired transition: clear persistence, record the
// logout when a session existed, signal the redirect, and optionally toast a
// one-line explanation. Malformed-token expiry stays silent beyond the
// redirect.
func (m *Manager) forceExpire(ctx context.Context, sess *Session, toast string) {
	if err := m.store.ClearSession(ctx); err != nil {
		// Nothing local to recover; the next Validate retries the transition.
		return
	}
	m.warned.Store(false)
	m.metrics.Inc(MetricSessionExpired)

	if sess != nil {
		m.appendActivity(ctx, ActivityLogout,
			fmt.Sprintf("session for %s expired", sess.User.Username),
			sess.User.Username, originFromContext(ctx))
	}
	if toast != "" {
		m.dispatcher.ShowToast(toast, SeverityWarning)
	}
	m.signalRedirect()
}

// checkNearExpiry fires the one-shot warning once the session enters the
// warning band. The warned latch resets on login, logout, and expiry.
func (m *Manager) checkNearExpiry(ctx context.Context) {
	sess, probe, err := m.readSession(ctx)
	if err != nil || probe != probeOK {
		return
	}
	if !m.nearExpiry(sess) {
		return
	}
	if m.warned.Swap(true) {
		return
	}
	m.metrics.Inc(MetricExpiryWarning)
	m.dispatcher.ShowToast("Session will expire in 5 minutes", SeverityWarning)
}

// State reports the lifecycle position without side effects.
func (m *Manager) State(ctx context.Context) SessionState {
	if m == nil || m.store == nil {
		return StateAnonymous
	}

	sess, probe, err := m.readSession(ctx)
	if err != nil || probe == probeAnonymous {
		return StateAnonymous
	}
	if probe != probeOK || m.expired(sess) {
		return StateExpired
	}
	if m.nearExpiry(sess) {
		return StateExpiring
	}
	return StateAuthenticated
}

// CurrentUser returns the profile of the live session, or false when the
// caller is anonymous or the session is no longer valid.
func (m *Manager) CurrentUser(ctx context.Context) (UserProfile, bool) {
	if m == nil || m.store == nil {
		return UserProfile{}, false
	}

	sess, probe, err := m.readSession(ctx)
	if err != nil || probe != probeOK || m.expired(sess) {
		return UserProfile{}, false
	}
	return sess.User, true
}

// HasPermission reports whether the live session authorizes perm. Anonymous
// callers are never authorized, regardless of the argument.
func (m *Manager) HasPermission(ctx context.Context, perm string) bool {
	user, ok := m.CurrentUser(ctx)
	if !ok {
		return false
	}
	return user.HasPermission(perm)
}

// IsAdmin reports whether the live session belongs to an admin.
func (m *Manager) IsAdmin(ctx context.Context) bool {
	user, ok := m.CurrentUser(ctx)
	return ok && user.Role == RoleAdmin
}

// RecordSensitiveOperation appends a sensitive_operation record, which alerts
// the admin synchronously. A session past its TTL cannot attest to anything;
// the attempt is rejected with [ErrSessionExpired] instead of being recorded
// under a stale identity.
func (m *Manager) RecordSensitiveOperation(ctx context.Context, message string) error {
	if m == nil || m.activity == nil {
		return ErrManagerNotReady
	}

	actor := "unknown"
	sess, probe, err := m.readSession(ctx)
	if err == nil && probe == probeOK {
		if m.expired(sess) {
			return ErrSessionExpired
		}
		actor = sess.User.Username
	}
	return m.activity.Append(ctx, ActivitySensitiveOperation, message, actor, originFromContext(ctx))
}

// Activity exposes the bounded activity log.
func (m *Manager) Activity() *Log {
	if m == nil {
		return nil
	}
	return m.activity
}

// Notifications exposes the dispatcher for toast surfaces and admin alerts.
func (m *Manager) Notifications() *Dispatcher {
	if m == nil {
		return nil
	}
	return m.dispatcher
}

// MetricsSnapshot copies the lifecycle counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return m.metrics.Snapshot()
}

// Redirects delivers the unauthenticated entry point path every time a
// logout or forced expiry asks the consumer to navigate away.
func (m *Manager) Redirects() <-chan string {
	return m.redirects
}

func (m *Manager) signalRedirect() {
	select {
	case m.redirects <- m.config.Session.LoginPath:
	default:
		// Consumer is not draining; the latest redirect is as good as any.
	}
}

func (m *Manager) appendActivity(ctx context.Context, kind ActivityKind, message, actor, origin string) {
	if err := m.activity.Append(ctx, kind, message, actor, origin); err != nil {
		// Activity persistence is best-effort and must not fail the
		// triggering operation.
		return
	}
}

// Close stops the periodic checks and the notification dispatcher.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.stopWatch()
	if m.dispatcher != nil {
		m.dispatcher.Close()
	}
}

func actorOrUnknown(username string) string {
	if username == "" {
		return "unknown"
	}
	return username
}
