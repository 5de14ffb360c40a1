package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communehub-api/models"
)

// ---- in-memory fakes ---------------------------------------------------------

type fakeNotificationStore struct {
	users         map[string]models.User
	communityName string
	created       []models.Notification
	createErr     error
}

func (f *fakeNotificationStore) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeNotificationStore) CommunityName(ctx context.Context, communityID string) (string, error) {
	return f.communityName, nil
}

func (f *fakeNotificationStore) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, notifications...)
	return nil
}

func (f *fakeNotificationStore) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.created {
		if n.TargetUserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	return nil
}

type fakeEmailSender struct {
	sent []string
	err  error
}

func (f *fakeEmailSender) SendMembershipEmail(toEmail, toName, communityName string, event models.MembershipEvent) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, toEmail)
	return nil
}

type fakeEventSink struct {
	published []models.MembershipEvent
	err       error
}

func (f *fakeEventSink) Publish(ctx context.Context, event models.MembershipEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

// ---- Dispatch ----------------------------------------------------------------

func TestDispatch_FansOutToAllChannels(t *testing.T) {
	store := &fakeNotificationStore{
		communityName: "Weekend Hikers",
		users: map[string]models.User{
			"owner": {ID: "owner", Name: "Olga", Email: "olga@example.com"},
			"alice": {ID: "alice", Name: "Alice", Email: "alice@example.com"},
		},
	}
	email := &fakeEmailSender{}
	sink := &fakeEventSink{}
	service := NewNotificationService(store, email, sink)

	err := service.Dispatch(context.Background(), models.MembershipEvent{
		Type:         models.NotificationTypeJoinRequest,
		CommunityID:  "c1",
		ActorUserID:  "alice",
		RecipientIDs: []string{"owner", "alice"},
		OccurredAt:   time.Now(),
	})
	require.NoError(t, err)

	// The actor never gets notified about their own action.
	require.Len(t, store.created, 1)
	assert.Equal(t, "owner", store.created[0].TargetUserID)
	assert.Equal(t, []string{"olga@example.com"}, email.sent)
	require.Len(t, sink.published, 1)
	assert.Equal(t, models.NotificationTypeJoinRequest, sink.published[0].Type)
}

// Channel failures are logged, never propagated: the state-machine transition
// that triggered the event has already committed.
func TestDispatch_ChannelFailuresAreSwallowed(t *testing.T) {
	store := &fakeNotificationStore{
		communityName: "Weekend Hikers",
		createErr:     errors.New("table gone"),
		users: map[string]models.User{
			"owner": {ID: "owner", Name: "Olga", Email: "olga@example.com"},
		},
	}
	email := &fakeEmailSender{err: errors.New("smtp down")}
	sink := &fakeEventSink{err: errors.New("broker down")}
	service := NewNotificationService(store, email, sink)

	err := service.Dispatch(context.Background(), models.MembershipEvent{
		Type:         models.NotificationTypeRequestApproved,
		CommunityID:  "c1",
		ActorUserID:  "admin",
		RecipientIDs: []string{"owner"},
	})
	assert.NoError(t, err)
}

func TestDispatch_NilChannelsAreOptional(t *testing.T) {
	store := &fakeNotificationStore{communityName: "Weekend Hikers"}
	service := NewNotificationService(store, nil, nil)

	err := service.Dispatch(context.Background(), models.MembershipEvent{
		Type:         models.NotificationTypeMemberLeft,
		CommunityID:  "c1",
		ActorUserID:  "alice",
		RecipientIDs: []string{"owner"},
	})
	assert.NoError(t, err)
}
