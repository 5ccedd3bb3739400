package history

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kwang-arcfusion/askchat/src/chatapi"
	"github.com/kwang-arcfusion/askchat/src/chatsession"
)

const defaultPageSize = 50

// Summary is one conversation history entry.
type Summary struct {
	ID        string    `db:"id" json:"id"`
	ThreadID  string    `db:"thread_id" json:"thread_id"`
	Title     string    `db:"title" json:"title"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	StoryID   string    `db:"story_id" json:"story_id,omitempty"`
}

// Lister is the slice of the chat service the cache fetches summaries from.
type Lister interface {
	ListConversations(ctx context.Context, page, pageSize int) (*chatapi.ConversationPage, error)
}

// CacheConfig wires a history cache.
type CacheConfig struct {
	API      Lister
	Store    *Store       // optional local persistence
	Logger   *slog.Logger // optional
	PageSize int
}

// Cache is the process-wide directory of past conversations. It outlives
// individual sessions: any live session updates it through the
// chatsession.HistoryNotifier interface, and subscribers such as a history
// panel read it to show titles, live streaming status, and unread markers.
//
// Updates per thread are monotonic (title/timestamp only move forward), so
// last-writer-wins is sufficient for concurrent sessions.
type Cache struct {
	api      Lister
	store    *Store
	logger   *slog.Logger
	pageSize int

	sf singleflight.Group

	mu                sync.Mutex
	summaries         []Summary // newest first
	byThread          map[string]int
	fetched           bool
	loadedLocal       bool
	streamingThreadID string
	streamingTask     chatsession.Task
	visible           bool
	unread            map[string]bool
}

var _ chatsession.HistoryNotifier = (*Cache)(nil)

func NewCache(config CacheConfig) *Cache {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Cache{
		api:      config.API,
		store:    config.Store,
		logger:   logger.With("component", "history"),
		pageSize: pageSize,
		byThread: make(map[string]int),
		unread:   make(map[string]bool),
	}
}

// Fetch loads conversation summaries once. Concurrent callers share a single
// network request; later calls return the cached result. When a local store
// is wired, its contents are served while the first fetch is still pending.
func (c *Cache) Fetch(ctx context.Context) ([]Summary, error) {
	c.loadLocal(ctx)

	c.mu.Lock()
	if c.fetched {
		defer c.mu.Unlock()
		return c.copySummariesLocked(), nil
	}
	c.mu.Unlock()

	_, err, _ := c.sf.Do("fetch", func() (any, error) {
		page, err := c.api.ListConversations(ctx, 1, c.pageSize)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		for _, conv := range page.Conversations {
			c.upsertLocked(Summary{
				ID:        conv.ID,
				ThreadID:  conv.ThreadID,
				Title:     conv.Title,
				UpdatedAt: conv.UpdatedAt,
				StoryID:   conv.StoryID,
			})
		}
		c.fetched = true
		snapshot := c.copySummariesLocked()
		c.mu.Unlock()

		c.persist(ctx, snapshot)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copySummariesLocked(), nil
}

// Summaries returns the current entries, newest first.
func (c *Cache) Summaries() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copySummariesLocked()
}

// AddOptimistic inserts a best-effort entry for a brand-new thread so the
// history list reflects it without waiting for the server round trip. The
// entry is reconciled once real title/timestamp values arrive.
func (c *Cache) AddOptimistic(threadID, title, storyID string) {
	c.mu.Lock()
	c.upsertLocked(Summary{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Title:     title,
		UpdatedAt: time.Now(),
		StoryID:   storyID,
	})
	c.mu.Unlock()
}

// Reconcile applies server-assigned values for a thread. Stale updates (an
// older timestamp than what we hold) are ignored.
func (c *Cache) Reconcile(s Summary) {
	c.mu.Lock()
	c.upsertLocked(s)
	snapshot := c.copySummariesLocked()
	c.mu.Unlock()
	c.persist(context.Background(), snapshot)
}

// SetStreamingThread implements chatsession.HistoryNotifier.
func (c *Cache) SetStreamingThread(threadID string) {
	c.mu.Lock()
	c.streamingThreadID = threadID
	c.streamingTask = ""
	c.mu.Unlock()
}

// SetStreamingTask implements chatsession.HistoryNotifier.
func (c *Cache) SetStreamingTask(threadID string, task chatsession.Task) {
	c.mu.Lock()
	if c.streamingThreadID == threadID {
		c.streamingTask = task
	}
	c.mu.Unlock()
}

// ClearStreaming implements chatsession.HistoryNotifier. If the panel is not
// visible when a stream finishes, the thread is marked unread so returning
// users see what completed while they were away.
func (c *Cache) ClearStreaming(threadID string) {
	c.mu.Lock()
	if c.streamingThreadID == threadID {
		c.streamingThreadID = ""
		c.streamingTask = ""
	}
	if !c.visible {
		c.unread[threadID] = true
	}
	c.mu.Unlock()
}

// StreamingThread reports which thread is receiving tokens right now and the
// generation step it is in, for display next to the right history entry.
func (c *Cache) StreamingThread() (string, chatsession.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamingThreadID, c.streamingTask
}

// SetVisible records whether the history panel is on screen; completions
// that happen while it is not are tracked as unread.
func (c *Cache) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()
}

// Unread reports whether a thread finished streaming unseen.
func (c *Cache) Unread(threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[threadID]
}

// MarkRead clears a thread's unread marker.
func (c *Cache) MarkRead(threadID string) {
	c.mu.Lock()
	delete(c.unread, threadID)
	c.mu.Unlock()
}

// upsertLocked inserts or monotonically updates one entry and keeps the
// slice ordered newest first.
func (c *Cache) upsertLocked(s Summary) {
	if i, ok := c.byThread[s.ThreadID]; ok {
		cur := &c.summaries[i]
		if s.UpdatedAt.Before(cur.UpdatedAt) {
			return
		}
		if s.ID != "" {
			cur.ID = s.ID
		}
		if s.Title != "" {
			cur.Title = s.Title
		}
		if s.StoryID != "" {
			cur.StoryID = s.StoryID
		}
		cur.UpdatedAt = s.UpdatedAt
	} else {
		c.summaries = append(c.summaries, s)
	}

	sort.SliceStable(c.summaries, func(i, j int) bool {
		return c.summaries[i].UpdatedAt.After(c.summaries[j].UpdatedAt)
	})
	for i := range c.summaries {
		c.byThread[c.summaries[i].ThreadID] = i
	}
}

func (c *Cache) copySummariesLocked() []Summary {
	out := make([]Summary, len(c.summaries))
	copy(out, c.summaries)
	return out
}

// loadLocal seeds the cache from the sqlite store, once.
func (c *Cache) loadLocal(ctx context.Context) {
	c.mu.Lock()
	if c.loadedLocal || c.store == nil {
		c.mu.Unlock()
		return
	}
	c.loadedLocal = true
	c.mu.Unlock()

	cached, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to load local history cache", "error", err)
		return
	}

	c.mu.Lock()
	for _, s := range cached {
		c.upsertLocked(s)
	}
	c.mu.Unlock()
}

func (c *Cache) persist(ctx context.Context, summaries []Summary) {
	if c.store == nil {
		return
	}
	if err := c.store.UpsertAll(ctx, summaries); err != nil {
		c.logger.Warn("failed to persist history cache", "error", err)
	}
}
