package chatsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kwang-arcfusion/askchat/src/chatapi"
	"github.com/kwang-arcfusion/askchat/src/chatwire"
	"github.com/kwang-arcfusion/askchat/src/transcript"
)

const defaultIdleTimeout = 60 * time.Second

// errAborted marks an explicit cancellation (user navigated away, session
// closed). Aborts are not failures and never populate the error field.
var errAborted = errors.New("chatsession: stream aborted")

// errIdle marks the idle-between-chunks watchdog firing.
var errIdle = errors.New("chatsession: stream idle timeout")

// Config wires a session's collaborators.
type Config struct {
	API     API
	History HistoryNotifier // optional
	Logger  *slog.Logger    // optional

	// IdleTimeout bounds the silence between stream chunks before the turn
	// fails. Zero means the 60s default; negative disables the watchdog.
	IdleTimeout time.Duration
}

// Session orchestrates one conversation surface: it sends queries, drives
// the stream decoder, assembles the transcript, and keeps the shared history
// cache informed. Each consumer (tab, embedded widget) owns its own Session;
// instances share nothing but the injected history cache.
type Session struct {
	api         API
	history     HistoryNotifier
	logger      *slog.Logger
	idleTimeout time.Duration

	mu                sync.Mutex
	threadID          string
	streamingThreadID string
	title             string
	status            Status
	task              Task
	err               error
	transcript        *transcript.Transcript
	pending           *transcript.Accumulator
	loadingHistory    bool
	cancelStream      context.CancelCauseFunc

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates a session. Config.API is required.
func New(config Config) (*Session, error) {
	if config.API == nil {
		return nil, fmt.Errorf("chatsession: API is required")
	}
	history := config.History
	if history == nil {
		history = nopHistory{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := config.IdleTimeout
	switch {
	case idle == 0:
		idle = defaultIdleTimeout
	case idle < 0:
		idle = 0
	}

	return &Session{
		api:         config.API,
		history:     history,
		logger:      logger.With("component", "chatsession"),
		idleTimeout: idle,
		status:      StatusIdle,
		transcript:  transcript.New(),
		pending:     transcript.NewAccumulator(),
		subs:        make(map[int]func(Snapshot)),
	}, nil
}

// SendOptions carries the optional parameters of Send.
type SendOptions struct {
	// ThreadID continues an existing conversation; empty starts a new one.
	ThreadID string
	// StoryID ties the question to a story context.
	StoryID string
}

// Send issues a query and drives the streamed response to completion. It is
// single-flight per session: a second call while a turn is streaming is a
// no-op that returns the streaming thread's id unchanged. Otherwise it
// returns the thread id (newly generated when none was supplied, so a caller
// can update its route on the first message) and the turn's terminal error,
// which is also captured in the snapshot. Explicit cancellation is not an
// error.
func (s *Session) Send(ctx context.Context, query string, opts SendOptions) (string, error) {
	s.mu.Lock()
	if s.status == StatusStreaming {
		id := s.streamingThreadID
		if id == "" {
			id = s.threadID
		}
		s.mu.Unlock()
		s.logger.Debug("send rejected, already streaming", "thread_id", id)
		return id, nil
	}

	threadID := opts.ThreadID
	newThread := threadID == ""
	if newThread {
		threadID = uuid.New().String()
	}

	s.threadID = threadID
	s.streamingThreadID = threadID
	s.status = StatusStreaming
	s.task = TaskThinking
	s.err = nil
	s.pending = transcript.NewAccumulator()
	s.transcript.AppendText(transcript.SenderUser, query)

	streamCtx, cancel := context.WithCancelCause(ctx)
	s.cancelStream = cancel
	s.mu.Unlock()

	s.history.SetStreamingThread(threadID)
	s.history.SetStreamingTask(threadID, TaskThinking)
	if newThread {
		s.history.AddOptimistic(threadID, query, opts.StoryID)
	}
	s.notify()

	s.logger.Info("sending message", "thread_id", threadID, "new_thread", newThread)

	streamErr := s.stream(streamCtx, cancel, chatapi.AskRequest{
		Query:    query,
		ThreadID: threadID,
		StoryID:  opts.StoryID,
	})

	finalErr := s.finishTurn(streamCtx, threadID, streamErr)
	cancel(nil)

	if finalErr == nil && streamErr == nil {
		if err := s.ReconcileLastTurn(ctx, threadID); err != nil {
			s.logger.Warn("failed to reconcile message ids", "thread_id", threadID, "error", err)
		}
	}

	return threadID, finalErr
}

// stream drives the decoder over the response body, applying each event to
// the session state in arrival order.
func (s *Session) stream(ctx context.Context, cancel context.CancelCauseFunc, req chatapi.AskRequest) error {
	body, err := s.api.Ask(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	var watchdog *time.Timer
	if s.idleTimeout > 0 {
		watchdog = time.AfterFunc(s.idleTimeout, func() { cancel(errIdle) })
		defer watchdog.Stop()
	}

	dec := chatwire.NewDecoder(body, s.logger)
	for {
		ev, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if watchdog != nil {
			watchdog.Reset(s.idleTimeout)
		}
		s.apply(ev)
	}
}

// apply folds one decoded event into the transcript and pending accumulator.
// Mutations are applied synchronously per event, so two events from the same
// stream can never interleave their effects.
func (s *Session) apply(ev chatwire.Event) {
	s.mu.Lock()
	switch ev.Kind {
	case chatwire.EventSQLQuery:
		s.task = TaskCreatingSQL
		s.pending.PushSQL(sqlAssetTitle, ev.SQL)

	case chatwire.EventSQLResult:
		s.task = TaskCreatingTable
		s.pending.PushDataframe(dataframeAssetTitle, ev.Columns, ev.Rows)

	case chatwire.EventChart:
		s.task = TaskCreatingChart
		s.pending.PushChart(transcript.ChartAsset{Title: ev.ChartTitle, Config: ev.Chart})

	case chatwire.EventAnswerChunk, chatwire.EventAnswer:
		s.task = TaskAnswering
		// Buffered artifacts are flushed ahead of the text that references
		// them: evidence first, narrative second.
		if !s.pending.IsEmpty() {
			s.transcript.AppendAssets(s.pending.Flush())
		}
		if !s.transcript.AmendLastAIText(ev.Text) {
			s.transcript.AppendText(transcript.SenderAI, ev.Text)
		}
	}
	task := s.task
	threadID := s.streamingThreadID
	s.mu.Unlock()

	s.history.SetStreamingTask(threadID, task)
	s.notify()
}

// finishTurn closes out a turn: it flushes trailing assets, resolves the
// terminal status, and clears the streaming pointers here and in the history
// cache. It returns the error recorded in the session state, nil for success
// and for explicit aborts.
func (s *Session) finishTurn(ctx context.Context, threadID string, streamErr error) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, errIdle) {
		streamErr = errIdle
	}
	aborted := streamErr != nil &&
		(errors.Is(cause, errAborted) || errors.Is(cause, context.Canceled))

	s.mu.Lock()
	switch {
	case streamErr == nil:
		// Assets buffered after the final text would otherwise be lost;
		// flush them as a trailing block.
		if !s.pending.IsEmpty() {
			s.transcript.AppendAssets(s.pending.Flush())
		}
		s.status = StatusCompleted
	case aborted:
		s.status = StatusCompleted
		s.logger.Info("stream aborted", "thread_id", threadID)
	default:
		s.status = StatusError
		s.err = streamErr
		s.logger.Error("stream failed", "thread_id", threadID, "error", streamErr)
	}
	s.task = ""
	s.streamingThreadID = ""
	s.cancelStream = nil
	err := s.err
	s.mu.Unlock()

	s.history.ClearStreaming(threadID)
	s.notify()
	return err
}

// LoadConversation replaces the transcript wholesale with a persisted
// conversation. It is skipped while a turn is streaming (loading would
// clobber it) and while another load is in flight.
func (s *Session) LoadConversation(ctx context.Context, threadID string) error {
	s.mu.Lock()
	if s.status == StatusStreaming || s.loadingHistory {
		s.mu.Unlock()
		s.logger.Debug("load skipped", "thread_id", threadID)
		return nil
	}
	s.loadingHistory = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loadingHistory = false
		s.mu.Unlock()
	}()

	conv, err := s.api.GetConversation(ctx, threadID)
	if err != nil {
		s.mu.Lock()
		s.transcript = transcript.New()
		s.threadID = ""
		s.title = ErrorLoadingTitle
		s.err = err
		s.mu.Unlock()
		s.logger.Error("failed to load conversation", "thread_id", threadID, "error", err)
		s.notify()
		return err
	}

	s.mu.Lock()
	s.transcript = TransformConversation(conv)
	s.threadID = threadID
	s.title = conv.Title
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// ReconcileLastTurn re-fetches the conversation to learn the backend id of
// the newest bot message and stamps it onto every block created since the
// last user message. Until this succeeds those blocks have no backend id and
// feedback/export stay unavailable for them. Failures are logged by the
// caller and never alter visible content.
func (s *Session) ReconcileLastTurn(ctx context.Context, threadID string) error {
	conv, err := s.api.GetConversation(ctx, threadID)
	if err != nil {
		return err
	}

	var messageID string
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == chatapi.RoleBot {
			messageID = conv.Messages[i].ID
			break
		}
	}
	if messageID == "" {
		return fmt.Errorf("chatsession: conversation %s has no bot message to reconcile", threadID)
	}

	s.mu.Lock()
	s.transcript.StampMessageID(s.transcript.LastUserIndex(), messageID)
	s.mu.Unlock()
	s.notify()
	return nil
}

// Clear resets the session to a blank transcript, as when navigating to a
// new chat. It is a no-op while a turn is streaming.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.status == StatusStreaming {
		s.mu.Unlock()
		return
	}
	s.threadID = ""
	s.title = ""
	s.status = StatusIdle
	s.task = ""
	s.err = nil
	s.transcript = transcript.New()
	s.pending = transcript.NewAccumulator()
	s.mu.Unlock()
	s.notify()
}

// Abort cancels the in-flight stream, if any. The turn ends as completed,
// not as an error; partially streamed text stays visible. Safe to call from
// any goroutine, typically on consumer unmount.
func (s *Session) Abort() {
	s.mu.Lock()
	cancel := s.cancelStream
	s.mu.Unlock()
	if cancel != nil {
		cancel(errAborted)
	}
}

// Close aborts any in-flight stream and drops all subscribers.
func (s *Session) Close() {
	s.Abort()
	s.subMu.Lock()
	s.subs = make(map[int]func(Snapshot))
	s.subMu.Unlock()
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ThreadID:          s.threadID,
		StreamingThreadID: s.streamingThreadID,
		Title:             s.title,
		Status:            s.status,
		Task:              s.task,
		Blocks:            s.transcript.Blocks(),
		Err:               s.err,
	}
}

// Subscribe registers fn to receive a snapshot after every state change and
// returns its unsubscribe function.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
