package chatsession

import (
	"context"
	"io"

	"github.com/kwang-arcfusion/askchat/src/chatapi"
	"github.com/kwang-arcfusion/askchat/src/transcript"
)

// Status is the session's turn state machine: idle → streaming →
// completed | error; completed and error both allow the next send.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Task describes what step of generation is in progress during a turn. It is
// mirrored into the history cache so a history listing can show live
// progress next to the right thread.
type Task string

const (
	TaskThinking      Task = "thinking"
	TaskCreatingSQL   Task = "creating sql"
	TaskCreatingTable Task = "creating table"
	TaskCreatingChart Task = "creating chart"
	TaskAnswering     Task = "answering"
)

// API is the slice of the chat service the engine depends on.
type API interface {
	Ask(ctx context.Context, req chatapi.AskRequest) (io.ReadCloser, error)
	GetConversation(ctx context.Context, threadID string) (*chatapi.Conversation, error)
}

// HistoryNotifier is the handle a session uses to keep the shared history
// cache in step with its turn. It is injected at construction so the engine
// never reaches into ambient state, and tests can pass a fake.
type HistoryNotifier interface {
	// SetStreamingThread records which thread is actively receiving tokens.
	SetStreamingThread(threadID string)
	// SetStreamingTask mirrors the current generation step for that thread.
	SetStreamingTask(threadID string, task Task)
	// ClearStreaming marks the thread's stream as finished.
	ClearStreaming(threadID string)
	// AddOptimistic inserts a best-effort history entry for a brand-new
	// thread before the server has created the real record.
	AddOptimistic(threadID, title, storyID string)
}

// nopHistory stands in when no cache is wired up.
type nopHistory struct{}

func (nopHistory) SetStreamingThread(string)     {}
func (nopHistory) SetStreamingTask(string, Task) {}
func (nopHistory) ClearStreaming(string)         {}
func (nopHistory) AddOptimistic(_, _, _ string)  {}

// Snapshot is an observable copy of the session state, delivered to
// subscribers after every change. Blocks are shared references and must be
// treated as read-only.
type Snapshot struct {
	ThreadID          string
	StreamingThreadID string
	Title             string
	Status            Status
	Task              Task
	Blocks            []transcript.Block
	Err               error
}
