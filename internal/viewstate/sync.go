package viewstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crm-contacts/internal/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Membership is the state of one contact-group pair.
type Membership int

const (
	NotMember Membership = iota
	Pending
	Member
)

func (m Membership) String() string {
	switch m {
	case Pending:
		return "pending"
	case Member:
		return "member"
	default:
		return "not_member"
	}
}

type pair struct {
	contactID, groupID string
}

// BatchResult reports a batch add. Err joins every per-contact failure.
type BatchResult struct {
	Succeeded []string
	Failed    []string
	Err       error
}

// Message is the single user-facing summary of a partially failed batch.
func (r BatchResult) Message() string {
	if len(r.Failed) == 0 {
		return ""
	}
	total := len(r.Succeeded) + len(r.Failed)
	return fmt.Sprintf("%d of %d contacts failed", len(r.Failed), total)
}

// Synchronizer adds and removes group memberships through the gateway and
// invalidates the affected cache keys afterwards.
type Synchronizer struct {
	gateway Gateway
	cache   Invalidator
	limiter *rate.Limiter
	logger  *zap.Logger

	mu     sync.Mutex
	states map[pair]Membership
	err    string
}

type SyncOption func(*Synchronizer)

// WithLimiter paces batch requests. A nil limiter does not pace.
func WithLimiter(l *rate.Limiter) SyncOption {
	return func(s *Synchronizer) { s.limiter = l }
}

func WithSyncLogger(logger *zap.Logger) SyncOption {
	return func(s *Synchronizer) { s.logger = logger }
}

func NewSynchronizer(gateway Gateway, cache Invalidator, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		gateway: gateway,
		cache:   cache,
		logger:  zap.NewNop(),
		states:  make(map[pair]Membership),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) setState(contactID, groupID string, m Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[pair{contactID, groupID}] = m
}

func (s *Synchronizer) State(contactID, groupID string) Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[pair{contactID, groupID}]
}

// Err is the inline error text of the last failed operation.
func (s *Synchronizer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Synchronizer) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

func (s *Synchronizer) setErr(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

// AddToGroup adds each contact in turn, waiting for every request before the
// next. A failure does not stop the batch or undo earlier additions.
func (s *Synchronizer) AddToGroup(ctx context.Context, contactIDs []string, groupID string) BatchResult {
	var (
		result BatchResult
		errs   []error
	)
	s.ClearError()

	for _, id := range contactIDs {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				result.Failed = append(result.Failed, id)
				errs = append(errs, fmt.Errorf("contact %s: %w", id, err))
				continue
			}
		}

		s.setState(id, groupID, Pending)
		if err := s.gateway.AddContactToGroup(ctx, id, groupID); err != nil {
			s.setState(id, groupID, NotMember)
			result.Failed = append(result.Failed, id)
			errs = append(errs, fmt.Errorf("contact %s: %w", id, err))
			s.logger.Warn("add to group failed",
				zap.String("contact_id", id),
				zap.String("group_id", groupID),
				zap.Error(err))
			continue
		}
		s.setState(id, groupID, Member)
		result.Succeeded = append(result.Succeeded, id)
	}

	result.Err = errors.Join(errs...)
	if result.Err != nil {
		s.setErr(result.Message())
	}
	s.invalidate(contactIDs)
	return result
}

// RemoveFromGroup removes one membership.
func (s *Synchronizer) RemoveFromGroup(ctx context.Context, contactID, groupID string) error {
	s.ClearError()
	s.setState(contactID, groupID, Pending)

	err := s.gateway.RemoveContactFromGroup(ctx, contactID, groupID)
	if err != nil {
		// removal is only offered for members
		s.setState(contactID, groupID, Member)
		s.setErr(fmt.Sprintf("failed to remove contact from group: %v", err))
	} else {
		s.setState(contactID, groupID, NotMember)
	}

	s.invalidate([]string{contactID})
	if err != nil {
		return fmt.Errorf("remove contact %s from group %s: %w", contactID, groupID, err)
	}
	return nil
}

func (s *Synchronizer) invalidate(contactIDs []string) {
	if s.cache == nil {
		return
	}
	for _, id := range contactIDs {
		s.cache.Invalidate(GroupsForContactKey(id))
	}
	s.cache.Invalidate(GroupsListKey)
	s.cache.InvalidatePrefix(ContactsListPrefix)
}

// AvailableGroups returns the groups a contact can still be added to.
func AvailableGroups(all, memberOf []models.Group) []models.Group {
	joined := make(map[string]struct{}, len(memberOf))
	for _, g := range memberOf {
		joined[g.ID] = struct{}{}
	}
	out := make([]models.Group, 0, len(all))
	for _, g := range all {
		if _, ok := joined[g.ID]; !ok {
			out = append(out, g)
		}
	}
	return out
}
