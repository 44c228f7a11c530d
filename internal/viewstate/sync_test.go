package viewstate

import (
	"context"
	"testing"

	"crm-contacts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestSynchronizer_BatchContinuesPastFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.failAdd["b"] = true
	inv := &recordingInvalidator{}
	s := NewSynchronizer(gw, inv)

	result := s.AddToGroup(context.Background(), []string{"a", "b", "c"}, "g1")

	assert.Equal(t, []string{"a", "b", "c"}, gw.addCalls)
	assert.Equal(t, []string{"a", "c"}, result.Succeeded)
	assert.Equal(t, []string{"b"}, result.Failed)
	assert.ErrorIs(t, result.Err, errGateway)
	assert.Equal(t, Member, s.State("a", "g1"))
	assert.Equal(t, NotMember, s.State("b", "g1"))
	assert.Equal(t, Member, s.State("c", "g1"))
}

func TestSynchronizer_PartialFailureScenario(t *testing.T) {
	gw := newFakeGateway()
	gw.failAdd["c2"] = true
	inv := &recordingInvalidator{}
	s := NewSynchronizer(gw, inv)

	result := s.AddToGroup(context.Background(), []string{"c1", "c2"}, "g1")

	assert.True(t, gw.isMember("c1", "g1"))
	assert.False(t, gw.isMember("c2", "g1"))
	assert.Equal(t, "1 of 2 contacts failed", s.Err())
	assert.Equal(t, result.Message(), s.Err())

	assert.ElementsMatch(t, []string{
		GroupsForContactKey("c1"),
		GroupsForContactKey("c2"),
		GroupsListKey,
	}, inv.keys)
	assert.Equal(t, []string{ContactsListPrefix}, inv.prefixes)
}

func TestSynchronizer_SuccessClearsError(t *testing.T) {
	gw := newFakeGateway()
	gw.failAdd["x"] = true
	s := NewSynchronizer(gw, &recordingInvalidator{})

	s.AddToGroup(context.Background(), []string{"x"}, "g1")
	require.NotEmpty(t, s.Err())

	result := s.AddToGroup(context.Background(), []string{"y"}, "g1")
	assert.NoError(t, result.Err)
	assert.Empty(t, result.Message())
	assert.Empty(t, s.Err())
}

func TestSynchronizer_RemoveFromGroup(t *testing.T) {
	gw := newFakeGateway()
	inv := &recordingInvalidator{}
	s := NewSynchronizer(gw, inv)
	ctx := context.Background()

	s.AddToGroup(ctx, []string{"c1"}, "g1")
	require.NoError(t, s.RemoveFromGroup(ctx, "c1", "g1"))
	assert.Equal(t, NotMember, s.State("c1", "g1"))
	assert.False(t, gw.isMember("c1", "g1"))

	s.AddToGroup(ctx, []string{"c1"}, "g1")
	gw.removeErr = errGateway
	err := s.RemoveFromGroup(ctx, "c1", "g1")
	assert.ErrorIs(t, err, errGateway)
	assert.Equal(t, Member, s.State("c1", "g1"))
	assert.Contains(t, s.Err(), "failed to remove contact from group")
}

func TestSynchronizer_FailedRemoveOfUntrackedPairStaysMember(t *testing.T) {
	gw := newFakeGateway()
	gw.removeErr = errGateway
	s := NewSynchronizer(gw, &recordingInvalidator{})

	err := s.RemoveFromGroup(context.Background(), "c1", "g1")
	assert.ErrorIs(t, err, errGateway)
	assert.Equal(t, Member, s.State("c1", "g1"))
}

func TestSynchronizer_LimiterCancelled(t *testing.T) {
	gw := newFakeGateway()
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	s := NewSynchronizer(gw, &recordingInvalidator{}, WithLimiter(limiter))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := s.AddToGroup(ctx, []string{"a", "b"}, "g1")

	assert.Empty(t, gw.addCalls)
	assert.Equal(t, []string{"a", "b"}, result.Failed)
	assert.Error(t, result.Err)
}

func TestAvailableGroups(t *testing.T) {
	all := []models.Group{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}}
	memberOf := []models.Group{{ID: "g2"}}

	got := AvailableGroups(all, memberOf)
	assert.Equal(t, []models.Group{{ID: "g1"}, {ID: "g3"}}, got)
	assert.Len(t, AvailableGroups(all, nil), 3)
	assert.Empty(t, AvailableGroups(all, all))
}

func TestMembershipString(t *testing.T) {
	assert.Equal(t, "not_member", NotMember.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "member", Member.String())
}
