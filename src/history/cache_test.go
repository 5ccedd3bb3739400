package history

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwang-arcfusion/askchat/src/chatapi"
	"github.com/kwang-arcfusion/askchat/src/chatsession"
)

type fakeLister struct {
	calls int32
	gate  chan struct{} // when set, ListConversations blocks until closed
	page  *chatapi.ConversationPage
	err   error
}

func (f *fakeLister) ListConversations(ctx context.Context, page, pageSize int) (*chatapi.ConversationPage, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func summaryPage(threads ...string) *chatapi.ConversationPage {
	page := &chatapi.ConversationPage{Page: 1, PageSize: 50}
	for i, id := range threads {
		page.Conversations = append(page.Conversations, chatapi.ConversationSummary{
			ID:        "c-" + id,
			ThreadID:  id,
			Title:     "about " + id,
			UpdatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
	page.Total = len(page.Conversations)
	return page
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	lister := &fakeLister{gate: make(chan struct{}), page: summaryPage("t1", "t2")}
	cache := NewCache(CacheConfig{API: lister})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries, err := cache.Fetch(context.Background())
			assert.NoError(t, err)
			assert.Len(t, summaries, 2)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(lister.gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&lister.calls))

	// A later call is served from cache.
	_, err := cache.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&lister.calls))
}

func TestAddOptimisticThenReconcile(t *testing.T) {
	cache := NewCache(CacheConfig{API: &fakeLister{page: summaryPage()}})

	cache.AddOptimistic("t9", "what are margins?", "")
	summaries := cache.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, "what are margins?", summaries[0].Title)
	optimisticAt := summaries[0].UpdatedAt

	// Server reconciliation moves title/timestamp forward.
	cache.Reconcile(Summary{
		ID:        "c9",
		ThreadID:  "t9",
		Title:     "Margin analysis",
		UpdatedAt: optimisticAt.Add(time.Second),
	})
	summaries = cache.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, "Margin analysis", summaries[0].Title)
	assert.Equal(t, "c9", summaries[0].ID)

	// A stale update is dropped: values only move forward.
	cache.Reconcile(Summary{
		ThreadID:  "t9",
		Title:     "old title",
		UpdatedAt: optimisticAt.Add(-time.Hour),
	})
	assert.Equal(t, "Margin analysis", cache.Summaries()[0].Title)
}

func TestSummariesOrderedNewestFirst(t *testing.T) {
	cache := NewCache(CacheConfig{API: &fakeLister{page: summaryPage("old", "older")}})
	_, err := cache.Fetch(context.Background())
	require.NoError(t, err)

	cache.AddOptimistic("brand-new", "fresh question", "")

	summaries := cache.Summaries()
	require.Len(t, summaries, 3)
	assert.Equal(t, "brand-new", summaries[0].ThreadID)
	assert.Equal(t, "old", summaries[1].ThreadID)
	assert.Equal(t, "older", summaries[2].ThreadID)
}

func TestStreamingThreadMirror(t *testing.T) {
	cache := NewCache(CacheConfig{API: &fakeLister{page: summaryPage()}})

	cache.SetStreamingThread("t1")
	cache.SetStreamingTask("t1", chatsession.TaskAnswering)
	// Task updates for a different thread are ignored.
	cache.SetStreamingTask("t2", chatsession.TaskCreatingSQL)

	thread, task := cache.StreamingThread()
	assert.Equal(t, "t1", thread)
	assert.Equal(t, chatsession.TaskAnswering, task)

	cache.ClearStreaming("t1")
	thread, task = cache.StreamingThread()
	assert.Empty(t, thread)
	assert.Empty(t, task)
}

func TestUnreadTracking(t *testing.T) {
	cache := NewCache(CacheConfig{API: &fakeLister{page: summaryPage()}})

	// Completion while the panel is hidden marks the thread unread.
	cache.SetStreamingThread("t1")
	cache.ClearStreaming("t1")
	assert.True(t, cache.Unread("t1"))

	cache.MarkRead("t1")
	assert.False(t, cache.Unread("t1"))

	// Completion while visible does not.
	cache.SetVisible(true)
	cache.SetStreamingThread("t2")
	cache.ClearStreaming("t2")
	assert.False(t, cache.Unread("t2"))
}
