package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/models"
	"github.com/recruit-dashboard/backend/internal/upload"
	"go.uber.org/zap"
)

// DefaultMaxSessions limits live sessions to bound memory use.
const DefaultMaxSessions = 10

// DefaultSessionMaxAge is how long an idle session is kept.
const DefaultSessionMaxAge = 30 * time.Minute

// DefaultKeepAliveWindow protects recently used sessions from cleanup.
const DefaultKeepAliveWindow = 5 * time.Minute

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Options configures a Manager. Zero values fall back to the defaults above.
type Options struct {
	MaxSessions     int
	KeepAliveWindow time.Duration
	Schema          contacts.Schema
	Store           contacts.StoreOptions
	Logger          *zap.Logger
}

// Manager holds one dashboard session per uploaded file.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex

	maxSessions     int
	keepAliveWindow time.Duration
	schema          contacts.Schema
	storeOpts       contacts.StoreOptions
	logger          *zap.Logger
}

// SessionState is everything derived from one upload. All fields except
// LastAccessed are set once when the upload is loaded and never mutated.
type SessionState struct {
	Session         *models.DashboardSession
	Original        *contacts.Table
	Deduped         *contacts.Table
	RecruiterCounts contacts.GroupCount // over Deduped
	GroupCounts     contacts.GroupCount // over Original
	Recruiters      []string            // unique recruiters of Original
	Rows            *contacts.RowStore
	LastAccessed    time.Time

	// queries holding Rows; the store is closed only once it drains
	inflight sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.KeepAliveWindow <= 0 {
		opts.KeepAliveWindow = DefaultKeepAliveWindow
	}
	if opts.Schema == (contacts.Schema{}) {
		opts.Schema = contacts.DefaultSchema()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "session"))
	opts.Store.Logger = logger.Named("rowstore")

	return &Manager{
		sessions:        make(map[string]*SessionState),
		maxSessions:     opts.MaxSessions,
		keepAliveWindow: opts.KeepAliveWindow,
		schema:          opts.Schema,
		storeOpts:       opts.Store,
		logger:          logger,
	}
}

// Schema returns the column names sessions are validated against.
func (m *Manager) Schema() contacts.Schema {
	return m.schema
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Load parses an upload into a new session. Parse and schema failures are
// returned as *contacts.ParseError / *contacts.SchemaError and leave no
// session behind.
func (m *Manager) Load(ctx context.Context, p *upload.Payload) (*models.DashboardSession, error) {
	id := uuid.New().String()
	state, err := m.build(ctx, id, p)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	evicted := m.evictIfFullLocked()
	m.sessions[id] = state
	sess := cloneSession(state)
	m.mu.Unlock()

	retire(evicted...)
	return sess, nil
}

// Replace loads a new upload into an existing session, discarding its
// previous tables. If the new upload fails to load the old one is kept.
func (m *Manager) Replace(ctx context.Context, id string, p *upload.Payload) (*models.DashboardSession, error) {
	m.mu.RLock()
	_, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	state, err := m.build(ctx, id, p)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	old, ok := m.sessions[id]
	var evicted []*SessionState
	if !ok {
		// Deleted or expired while the upload was being parsed.
		evicted = m.evictIfFullLocked()
	}
	m.sessions[id] = state
	sess := cloneSession(state)
	m.mu.Unlock()

	retire(evicted...)
	if old != nil {
		retire(old)
		m.logger.Info("session replaced", zap.String("session", shortID(id)),
			zap.Int("previousRows", old.Original.Len()))
	}
	return sess, nil
}

func (m *Manager) build(ctx context.Context, id string, p *upload.Payload) (*SessionState, error) {
	start := time.Now()
	log := m.logger.With(zap.String("session", shortID(id)), zap.String("file", p.Name))

	original, err := contacts.Load(bytes.NewReader(p.Data))
	if err != nil {
		log.Warn("upload rejected", zap.Error(err))
		return nil, err
	}
	if err := original.Require(m.schema.Required()...); err != nil {
		log.Warn("upload rejected", zap.Error(err))
		return nil, err
	}

	deduped, err := contacts.Deduplicate(original, m.schema.PhoneNumber)
	if err != nil {
		return nil, err
	}
	recruiterCounts, err := contacts.CountBy(deduped, m.schema.Recruiter)
	if err != nil {
		return nil, err
	}
	groupCounts, err := contacts.CountBy(original, m.schema.GroupName)
	if err != nil {
		return nil, err
	}
	recruiters, err := contacts.UniqueValues(original, m.schema.Recruiter)
	if err != nil {
		return nil, err
	}
	summary, err := contacts.Summarize(original, deduped, m.schema)
	if err != nil {
		return nil, err
	}

	rows, err := contacts.NewRowStore(ctx, original, m.schema.PhoneNumber, m.storeOpts)
	if err != nil {
		log.Error("failed to build row store", zap.Error(err))
		return nil, fmt.Errorf("failed to build row store: %w", err)
	}

	now := time.Now()
	elapsed := time.Since(start)
	log.Info("upload loaded",
		zap.Int("rows", original.Len()),
		zap.Int("uniqueContacts", deduped.Len()),
		zap.Bool("compressed", p.Compressed),
		zap.Duration("elapsed", elapsed))

	return &SessionState{
		Session: &models.DashboardSession{
			ID: id,
			File: models.FileInfo{
				Name:       p.Name,
				Size:       int64(len(p.Data)),
				Compressed: p.Compressed,
				UploadedAt: now,
			},
			Columns:          original.Columns(),
			Schema:           m.schema,
			Summary:          summary,
			ProcessingTimeMs: elapsed.Milliseconds(),
			CreatedAt:        now.UnixMilli(),
		},
		Original:        original,
		Deduped:         deduped,
		RecruiterCounts: recruiterCounts,
		GroupCounts:     groupCounts,
		Recruiters:      recruiters,
		Rows:            rows,
		LastAccessed:    now,
	}, nil
}

// evictIfFullLocked drops least recently used sessions until one more fits
// and returns them for retire. Caller holds m.mu.
func (m *Manager) evictIfFullLocked() []*SessionState {
	var evicted []*SessionState
	for len(m.sessions) >= m.maxSessions {
		var oldestID string
		var oldest time.Time
		for id, state := range m.sessions {
			if oldestID == "" || state.LastAccessed.Before(oldest) {
				oldestID, oldest = id, state.LastAccessed
			}
		}
		evicted = append(evicted, m.sessions[oldestID])
		delete(m.sessions, oldestID)
		m.logger.Info("evicted least recently used session",
			zap.String("session", shortID(oldestID)),
			zap.Int("maxSessions", m.maxSessions))
	}
	return evicted
}

// retire closes the row stores of sessions already removed from the map,
// waiting for queries still running on them. Caller must not hold m.mu.
func retire(states ...*SessionState) {
	for _, state := range states {
		state.inflight.Wait()
		state.Rows.Close()
	}
}

func cloneSession(state *SessionState) *models.DashboardSession {
	s := *state.Session
	s.Columns = append([]string(nil), state.Session.Columns...)
	s.LastAccessed = state.LastAccessed.UnixMilli()
	return &s
}

// lookup returns a session's state and marks it used.
func (m *Manager) lookup(id string) (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	state.LastAccessed = time.Now()
	return state, nil
}

// acquire is lookup for callers that use the row store. The store stays open
// until release is called, even if the session is replaced or removed.
func (m *Manager) acquire(id string) (*SessionState, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	state.LastAccessed = time.Now()
	state.inflight.Add(1)
	return state, state.inflight.Done, nil
}

// Get returns a session's metadata and summary.
func (m *Manager) Get(id string) (*models.DashboardSession, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSession(state), nil
}

// Touch keeps a session alive without reading it.
func (m *Manager) Touch(id string) error {
	_, err := m.lookup(id)
	return err
}

// Delete removes a session and releases its row store.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	retire(state)
	m.logger.Info("session deleted", zap.String("session", shortID(id)))
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but never
// one accessed within the keep-alive window. It returns how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()

	idle := maxAge
	if idle < m.keepAliveWindow {
		idle = m.keepAliveWindow
	}
	cutoff := time.Now().Add(-idle)

	var removed []*SessionState
	for id, state := range m.sessions {
		if !state.LastAccessed.Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		removed = append(removed, state)
		m.logger.Info("cleaned up idle session",
			zap.String("session", shortID(id)),
			zap.Duration("idle", time.Since(state.LastAccessed).Round(time.Second)))
	}
	m.mu.Unlock()

	retire(removed...)
	return len(removed)
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	states := make([]*SessionState, 0, len(m.sessions))
	for id, state := range m.sessions {
		states = append(states, state)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	retire(states...)
}

// Original returns the uploaded table.
func (m *Manager) Original(id string) (*contacts.Table, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return state.Original, nil
}

// Deduped returns the table with one row per phone number.
func (m *Manager) Deduped(id string) (*contacts.Table, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return state.Deduped, nil
}

// RecruiterCounts counts unique contacts per recruiter.
func (m *Manager) RecruiterCounts(id string) (contacts.GroupCount, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return state.RecruiterCounts, nil
}

// GroupCounts counts uploaded rows per WhatsApp group, duplicates included.
func (m *Manager) GroupCounts(id string) (contacts.GroupCount, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return state.GroupCounts, nil
}

// TopRecruiters returns the n recruiters with the most unique contacts.
func (m *Manager) TopRecruiters(id string, n int) (contacts.GroupCount, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return contacts.TopN(state.RecruiterCounts, n), nil
}

// Recruiters lists recruiter names in first-appearance order.
func (m *Manager) Recruiters(id string) ([]string, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), state.Recruiters...), nil
}

// FilterByRecruiter returns the uploaded rows for one recruiter.
func (m *Manager) FilterByRecruiter(id, recruiter string) (*contacts.Table, error) {
	state, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return contacts.FilterBy(state.Original, m.schema.Recruiter, recruiter)
}

// QueryRows pages through a session's rows.
func (m *Manager) QueryRows(ctx context.Context, id string, q contacts.RowQuery, page, pageSize int) (contacts.RowPage, error) {
	state, release, err := m.acquire(id)
	if err != nil {
		return contacts.RowPage{}, err
	}
	defer release()

	result, err := state.Rows.QueryRows(ctx, q, page, pageSize)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			m.logger.Warn("row query cancelled", zap.String("session", shortID(id)))
		}
		return contacts.RowPage{}, err
	}
	return result, nil
}

// CountRows groups the rows matching q by column, for charts narrowed by the
// sidebar filter or a search.
func (m *Manager) CountRows(ctx context.Context, id string, q contacts.RowQuery, column string) (contacts.GroupCount, error) {
	state, release, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	return state.Rows.CountBy(ctx, q, column)
}

// ExportDeduped writes the deduplicated table as CSV.
func (m *Manager) ExportDeduped(id string, w io.Writer) error {
	state, err := m.lookup(id)
	if err != nil {
		return err
	}
	return state.Deduped.WriteCSV(w)
}
