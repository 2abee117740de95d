package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// DefaultTimeout bounds a single storage round-trip of the resolver and the
// message store.
const DefaultTimeout = 5 * time.Second

// Resolver implements ConversationResolver on top of a ConversationRepository.
type Resolver struct {
	repo      ConversationRepository
	clock     Clock
	timeout   time.Duration
	log       *slog.Logger
	onAnomaly func(context.Context, *DuplicatePairError)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverClock sets the clock stamping new conversations.
func WithResolverClock(c Clock) ResolverOption {
	return func(r *Resolver) { r.clock = c }
}

// WithResolverTimeout sets the per-call timeout; zero disables it.
func WithResolverTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// WithAnomalyHandler replaces the default handler for duplicate pair rows,
// which logs a warning. The handler runs synchronously and must not block.
func WithAnomalyHandler(fn func(context.Context, *DuplicatePairError)) ResolverOption {
	return func(r *Resolver) { r.onAnomaly = fn }
}

// NewResolver returns a Resolver over repo.
func NewResolver(repo ConversationRepository, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:    repo,
		clock:   NewMonotonicClock(),
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.onAnomaly == nil {
		r.onAnomaly = func(ctx context.Context, e *DuplicatePairError) {
			r.log.WarnContext(ctx, "duplicate conversations for pair",
				"participant_a", e.Pair.A, "participant_b", e.Pair.B,
				"count", e.Count, "chosen", e.Chosen)
		}
	}
	return r
}

// ResolveOrCreate returns the conversation between userA and userB, creating
// it on first contact. Argument order does not matter.
func (r *Resolver) ResolveOrCreate(ctx context.Context, userA, userB string) (Conversation, error) {
	pair, err := NewPair(userA, userB)
	if err != nil {
		return Conversation{}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	conv, found, err := r.lookup(ctx, pair)
	if err != nil {
		return Conversation{}, fail(ErrResolutionFailed, err)
	}
	if found {
		return conv, nil
	}

	id, err := newID()
	if err != nil {
		return Conversation{}, fail(ErrResolutionFailed, err)
	}
	conv = Conversation{
		ID:           id,
		ParticipantA: pair.A,
		ParticipantB: pair.B,
		CreatedAt:    r.clock.Now(),
	}

	err = r.repo.InsertIfAbsent(ctx, conv)
	switch {
	case err == nil:
		r.log.DebugContext(ctx, "conversation created", "conversation_id", conv.ID)
		return conv, nil
	case errors.Is(err, ErrPairExists):
		// Lost the race against the other participant: their row wins.
		existing, found, err := r.lookup(ctx, pair)
		if err != nil {
			return Conversation{}, fail(ErrResolutionFailed, err)
		}
		if !found {
			return Conversation{}, fail(ErrResolutionFailed,
				fmt.Errorf("pair (%s, %s) reported as existing but not found", pair.A, pair.B))
		}
		return existing, nil
	default:
		return Conversation{}, fail(ErrResolutionFailed, err)
	}
}

// lookup returns the earliest conversation stored for pair.
func (r *Resolver) lookup(ctx context.Context, pair Pair) (Conversation, bool, error) {
	convs, err := r.repo.FindByPair(ctx, pair)
	if err != nil {
		return Conversation{}, false, err
	}
	switch len(convs) {
	case 0:
		return Conversation{}, false, nil
	case 1:
		return convs[0], true, nil
	}

	convs = slices.Clone(convs)
	slices.SortFunc(convs, compareConversations)
	r.onAnomaly(ctx, &DuplicatePairError{Pair: pair, Chosen: convs[0].ID, Count: len(convs)})
	return convs[0], true, nil
}
