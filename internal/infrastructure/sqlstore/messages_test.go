package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, s *MessageStore, from, to string, itemID *string, at time.Time) *domain.Message {
	t.Helper()
	m := &domain.Message{
		MessageID: id.New(), SenderID: from, ReceiverID: to, ItemID: itemID,
		Content: from + "->" + to, CreatedAt: at, UpdatedAt: at,
	}
	require.NoError(t, s.Create(context.Background(), m))
	return m
}

func TestMessageStore_ThreadAndUnread(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	it := seedItem(t, db, "Bag", nil)
	s := NewMessageStore(db)
	base := time.Now().UTC().Add(-time.Hour)
	send(t, s, "a", "b", nil, base)
	send(t, s, "b", "a", &it.ItemID, base.Add(time.Minute))
	send(t, s, "a", "b", &it.ItemID, base.Add(2*time.Minute))
	send(t, s, "c", "b", nil, base.Add(3*time.Minute))

	thread, err := s.Thread(ctx, "a", "b", "")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "a", thread[0].SenderID)

	scoped, err := s.Thread(ctx, "b", "a", it.ItemID)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	n, err := s.CountUnread(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.MarkThreadRead(ctx, "b", "a", ""))
	n, err = s.CountUnread(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mine, err := s.ListForUser(ctx, "b")
	require.NoError(t, err)
	require.Len(t, mine, 4)
	assert.Equal(t, "c", mine[0].SenderID)
}
