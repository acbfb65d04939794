package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/monitoring"
	"portfolio/backend/internal/storage/memory"
)

const validToken = "valid-token"

func newInbox(t *testing.T) (*InboxService, *SubmissionService, *memory.Store, *stubAuth) {
	t.Helper()
	store := memory.NewStore()
	auth := &stubAuth{token: validToken}
	inbox := NewInboxService(store, auth, time.UTC, nil, zap.NewNop())
	submit := NewSubmissionService(store, domain.DefaultContactLimits(), nil, zap.NewNop())
	return inbox, submit, store, auth
}

func submitN(t *testing.T, submit *SubmissionService, n int) []*domain.Message {
	t.Helper()
	messages := make([]*domain.Message, 0, n)
	for i := 0; i < n; i++ {
		m, err := submit.Submit(context.Background(), domain.ContactInput{
			Name:    fmt.Sprintf("Visitor %d", i),
			Email:   fmt.Sprintf("visitor%d@example.com", i),
			Message: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
		messages = append(messages, m)
	}
	return messages
}

func TestInboxService_RejectsBadToken(t *testing.T) {
	repo := new(MockRepository)
	inbox := NewInboxService(repo, &stubAuth{token: validToken}, time.UTC, nil, zap.NewNop())
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "expired"} {
		_, err := inbox.ListMessages(ctx, token, domain.MessageFilter{})
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = inbox.QueryMessages(ctx, token, domain.MessageQuery{Limit: "abc", Read: "maybe"})
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = inbox.GetMessage(ctx, token, "id")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = inbox.GetStats(ctx, token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = inbox.MarkAsRead(ctx, token, "id")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)

		_, err = inbox.DeleteMessage(ctx, token, "id")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	}

	// 令牌无效时不触达存储
	repo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MessageStats", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkMessageRead", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestInboxService_RejectedCallLeavesStoreUnchanged(t *testing.T) {
	inbox, submit, store, _ := newInbox(t)
	ctx := context.Background()
	messages := submitN(t, submit, 2)

	_, err := inbox.MarkAsRead(ctx, "bad", messages[0].ID)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = inbox.DeleteMessage(ctx, "bad", messages[1].ID)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	stats, err := store.MessageStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Unread)
}

func TestInboxService_ListMessages(t *testing.T) {
	inbox, submit, _, _ := newInbox(t)
	ctx := context.Background()

	empty, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	messages := submitN(t, submit, 3)
	_, err = inbox.MarkAsRead(ctx, validToken, messages[1].ID)
	require.NoError(t, err)

	t.Run("全部", func(t *testing.T) {
		all, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("仅未读", func(t *testing.T) {
		unread := false
		list, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{Read: &unread})
		require.NoError(t, err)
		assert.Len(t, list, 2)
		for _, m := range list {
			assert.False(t, m.Read)
		}
	})

	t.Run("仅已读", func(t *testing.T) {
		read := true
		list, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{Read: &read})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, messages[1].ID, list[0].ID)
	})

	t.Run("非法过滤条件", func(t *testing.T) {
		_, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{Order: "sideways"})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = inbox.ListMessages(ctx, validToken, domain.MessageFilter{Limit: -1})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = inbox.ListMessages(ctx, validToken, domain.MessageFilter{Offset: -5})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestInboxService_QueryMessages(t *testing.T) {
	inbox, submit, _, _ := newInbox(t)
	ctx := context.Background()
	messages := submitN(t, submit, 3)
	_, err := inbox.MarkAsRead(ctx, validToken, messages[0].ID)
	require.NoError(t, err)

	t.Run("解析查询参数", func(t *testing.T) {
		list, err := inbox.QueryMessages(ctx, validToken, domain.MessageQuery{Read: "false", Order: "Oldest", Limit: "1"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.False(t, list[0].Read)
	})

	t.Run("格式错误的参数在认证之后报告", func(t *testing.T) {
		for _, query := range []domain.MessageQuery{
			{Read: "maybe"},
			{Limit: "abc"},
			{Offset: "1.5"},
			{Order: "sideways"},
			{Limit: "501"},
		} {
			_, err := inbox.QueryMessages(ctx, validToken, query)
			assert.ErrorIs(t, err, domain.ErrValidation, "%+v", query)

			_, err = inbox.QueryMessages(ctx, "bad", query)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated, "%+v", query)
		}
	})
}

func TestInboxService_MarkAsRead(t *testing.T) {
	inbox, submit, _, _ := newInbox(t)
	ctx := context.Background()
	messages := submitN(t, submit, 2)

	result, err := inbox.MarkAsRead(ctx, validToken, messages[0].ID)
	require.NoError(t, err)
	assert.True(t, result.Message.Read)
	require.NotNil(t, result.Stats)
	assert.Equal(t, int64(2), result.Stats.Total)
	assert.Equal(t, int64(1), result.Stats.Unread)

	t.Run("幂等", func(t *testing.T) {
		again, err := inbox.MarkAsRead(ctx, validToken, messages[0].ID)
		require.NoError(t, err)
		assert.True(t, again.Message.Read)
		assert.Equal(t, int64(1), again.Stats.Unread)
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := inbox.MarkAsRead(ctx, validToken, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestInboxService_MarkReadMetrics(t *testing.T) {
	store := memory.NewStore()
	metrics := monitoring.NewMetrics(nil)
	inbox := NewInboxService(store, &stubAuth{token: validToken}, time.UTC, metrics, zap.NewNop())
	submit := NewSubmissionService(store, domain.DefaultContactLimits(), metrics, zap.NewNop())
	ctx := context.Background()
	messages := submitN(t, submit, 1)

	for i := 0; i < 2; i++ {
		_, err := inbox.MarkAsRead(ctx, validToken, messages[0].ID)
		require.NoError(t, err)
	}
	_, err := inbox.MarkAsRead(ctx, validToken, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// 每次成功调用都计数，未读数由存储重新统计
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MarkReadCalls))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MessagesUnread))
}

func TestInboxService_DeleteMessage(t *testing.T) {
	inbox, submit, _, _ := newInbox(t)
	ctx := context.Background()
	messages := submitN(t, submit, 3)

	stats, err := inbox.DeleteMessage(ctx, validToken, messages[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Unread)

	_, err = inbox.DeleteMessage(ctx, validToken, messages[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = inbox.GetMessage(ctx, validToken, messages[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{})
	require.NoError(t, err)
	for _, m := range list {
		assert.NotEqual(t, messages[0].ID, m.ID)
	}
}

func TestInboxService_ConcurrentDeleteOnce(t *testing.T) {
	inbox, submit, _, _ := newInbox(t)
	ctx := context.Background()
	target := submitN(t, submit, 1)[0]

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inbox.DeleteMessage(ctx, validToken, target.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 1, succeeded)
}

func TestInboxService_Stats(t *testing.T) {
	repo := new(MockRepository)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	inbox := NewInboxService(repo, &stubAuth{token: validToken}, loc, nil, zap.NewNop())
	// 纽约时间 2026-03-10 01:30，UTC 已是当天 05:30
	inbox.now = func() time.Time { return time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC) }

	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, loc).UTC()
	weekStart := time.Date(2026, 3, 3, 5, 30, 0, 0, time.UTC)
	expected := &domain.MessageStats{Total: 10, Unread: 4, Today: 1, ThisWeek: 6}
	repo.On("MessageStats", mock.Anything, dayStart, weekStart).Return(expected, nil).Once()

	stats, err := inbox.GetStats(context.Background(), validToken)
	require.NoError(t, err)
	assert.Equal(t, expected, stats)
	repo.AssertExpectations(t)
}

func TestInboxService_StatsRecomputedFromStore(t *testing.T) {
	repo := new(MockRepository)
	inbox := NewInboxService(repo, &stubAuth{token: validToken}, time.UTC, nil, zap.NewNop())
	ctx := context.Background()

	repo.On("MarkMessageRead", mock.Anything, "m1").Return(&domain.Message{ID: "m1", Read: true}, nil)
	repo.On("MessageStats", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.MessageStats{Total: 5, Unread: 5}, nil)

	// 存储返回什么就是什么，服务端不做本地扣减
	result, err := inbox.MarkAsRead(ctx, validToken, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Stats.Unread)
	repo.AssertExpectations(t)
}

func TestInboxService_StoreFailures(t *testing.T) {
	repo := new(MockRepository)
	inbox := NewInboxService(repo, &stubAuth{token: validToken}, time.UTC, nil, zap.NewNop())
	ctx := context.Background()
	outage := domain.Unavailable("query", errors.New("connection refused"))

	repo.On("ListMessages", mock.Anything, mock.Anything).Return(nil, outage)
	repo.On("DeleteMessage", mock.Anything, "m1").Return(nil)
	repo.On("MessageStats", mock.Anything, mock.Anything, mock.Anything).Return(nil, outage)

	_, err := inbox.ListMessages(ctx, validToken, domain.MessageFilter{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = inbox.GetStats(ctx, validToken)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	// 删除已生效，统计失败时不报错
	stats, err := inbox.DeleteMessage(ctx, validToken, "m1")
	assert.NoError(t, err)
	assert.Nil(t, stats)
}
