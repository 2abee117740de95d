package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateActive
	StateSending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateActive:
		return "active"
	case StateSending:
		return "sending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAbandoned is returned when the user left or replaced the selection
// while the operation was in flight. Its result is not applied to the view.
var ErrAbandoned = errors.New("selection abandoned")

// View is a read-only copy of a session's state for the presentation layer.
type View struct {
	State          State
	ViewerID       string
	Query          string
	Selected       *User
	ConversationID string
	Messages       []Message
	// Err is the last failure reported by Select, Send or Refresh.
	Err error
}

// Session is the per-screen orchestrator: pick a user, resolve the
// conversation, load its history and send messages into it.
type Session struct {
	auth     AuthProvider
	dir      UserDirectory
	resolver ConversationResolver
	messages MessageLog
	log      *slog.Logger
	timeout  time.Duration

	// sendMu keeps a session's appends in issue order.
	sendMu sync.Mutex

	mu       sync.Mutex
	state    State
	gen      uint64
	viewerID string
	users    []User
	query    string
	selected *User
	conv     *Conversation
	view     []Message
	lastErr  error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionTimeout bounds each collaborator call made by the session.
func WithSessionTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// NewSession wires a session. It starts Idle; call Load before selecting.
func NewSession(auth AuthProvider, dir UserDirectory, resolver ConversationResolver, messages MessageLog, opts ...SessionOption) *Session {
	s := &Session{
		auth:     auth,
		dir:      dir,
		resolver: resolver,
		messages: messages,
		log:      slog.Default(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Load identifies the viewer and fetches the candidate list.
func (s *Session) Load(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	viewer, err := s.auth.CurrentUserID(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			err = fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return err
	}
	if viewer == "" {
		return ErrUnauthenticated
	}

	users, err := s.dir.ListCandidates(ctx, viewer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	users = slices.DeleteFunc(slices.Clone(users), func(u User) bool { return u.ID == viewer })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewerID = viewer
	s.users = users
	return nil
}

// SetQuery updates the search query. It never waits on storage.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// Users returns the candidates matching the current query.
func (s *Session) Users() []User {
	s.mu.Lock()
	users, q := s.users, s.query
	s.mu.Unlock()
	return slices.Clone(Filter(users, q))
}

// Select opens the conversation with user, creating it on first contact,
// and loads its history. On failure the session returns to Idle.
func (s *Session) Select(ctx context.Context, user User) error {
	s.mu.Lock()
	if s.viewerID == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: session not loaded", ErrUnauthenticated)
	}
	if s.state == StateResolving || s.state == StateSending {
		s.mu.Unlock()
		return ErrBusy
	}
	s.gen++
	gen, viewer := s.gen, s.viewerID
	s.state = StateResolving
	s.selected = &user
	s.conv, s.view, s.lastErr = nil, nil, nil
	s.mu.Unlock()

	rctx, cancel := s.withTimeout(ctx)
	conv, err := s.resolver.ResolveOrCreate(rctx, viewer, user.ID)
	cancel()
	if err != nil {
		return s.abort(ctx, gen, fail(ErrResolutionFailed, err))
	}

	lctx, cancel := s.withTimeout(ctx)
	msgs, err := s.messages.List(lctx, conv.ID)
	cancel()
	if err != nil {
		return s.abort(ctx, gen, fail(ErrRetrievalFailed, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrAbandoned
	}
	s.state = StateActive
	s.conv = &conv
	s.view = slices.Clone(msgs)
	return nil
}

// abort drops a failed selection back to Idle unless it was superseded.
func (s *Session) abort(ctx context.Context, gen uint64, err error) error {
	s.log.WarnContext(ctx, "conversation selection failed", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrAbandoned
	}
	s.state = StateIdle
	s.selected, s.conv, s.view = nil, nil, nil
	s.lastErr = err
	return err
}

// Send appends body to the active conversation. On success the stored
// message joins the view; on failure the view is left as it was.
func (s *Session) Send(ctx context.Context, body string) (Message, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.state != StateActive || s.conv == nil {
		s.mu.Unlock()
		return Message{}, invalidInput("no active conversation")
	}
	gen, convID, viewer := s.gen, s.conv.ID, s.viewerID
	s.state = StateSending
	s.mu.Unlock()

	actx, cancel := s.withTimeout(ctx)
	msg, err := s.messages.Append(actx, convID, viewer, body)
	cancel()
	if err != nil {
		err = fail(ErrAppendFailed, err)
		s.log.WarnContext(ctx, "message send failed", "conversation_id", convID, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		if err != nil {
			return Message{}, err
		}
		return msg, ErrAbandoned
	}
	s.state = StateActive
	if err != nil {
		s.lastErr = err
		return Message{}, err
	}
	s.view = mergeMessages(s.view, msg)
	s.lastErr = nil
	return msg, nil
}

// Refresh re-reads the active conversation and merges what it finds into
// the view by message id. A failed refresh leaves the view untouched.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.conv == nil || (s.state != StateActive && s.state != StateSending) {
		s.mu.Unlock()
		return invalidInput("no active conversation")
	}
	gen, convID := s.gen, s.conv.ID
	s.mu.Unlock()

	lctx, cancel := s.withTimeout(ctx)
	msgs, err := s.messages.List(lctx, convID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrAbandoned
	}
	if err != nil {
		s.lastErr = fail(ErrRetrievalFailed, err)
		return s.lastErr
	}
	s.view = mergeMessages(s.view, msgs...)
	return nil
}

// Back returns to the user list. Persisted data is untouched.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateIdle
	s.selected, s.conv, s.view, s.lastErr = nil, nil, nil, nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:    s.state,
		ViewerID: s.viewerID,
		Query:    s.query,
		Messages: slices.Clone(s.view),
		Err:      s.lastErr,
	}
	if s.selected != nil {
		u := *s.selected
		v.Selected = &u
	}
	if s.conv != nil {
		v.ConversationID = s.conv.ID
	}
	return v
}

// mergeMessages adds incoming to view, skipping ids already present, and
// keeps the result in conversation order.
func mergeMessages(view []Message, incoming ...Message) []Message {
	out := lo.UniqBy(append(slices.Clone(view), incoming...), func(m Message) string { return m.ID })
	slices.SortStableFunc(out, CompareMessages)
	return out
}
