// Package controllers orchestrates the connection manager, the transcript
// reconciler and the content transformer behind one session-scoped API.
// The transcript and status are owned here exclusively; the presentation
// layer reads published snapshots and requests operations, never mutating
// session state directly.
package controllers

import (
	"context"
	"fmt"
	"sync"

	"github.com/stackpad/stackpad/pkg/chat"
	"github.com/stackpad/stackpad/pkg/events"
	"github.com/stackpad/stackpad/pkg/git"
	"github.com/stackpad/stackpad/pkg/logger"
	"github.com/stackpad/stackpad/pkg/socket"
	"github.com/stackpad/stackpad/pkg/transform"
	"github.com/stackpad/stackpad/pkg/uploads"
)

// NewSessionID is the sentinel id for a chat that does not exist
// server-side yet; no channel is attempted for it
const NewSessionID = "new"

// The app preview is served on the sandbox's web tunnel
const previewPort = 3000

// RenderedMessage pairs a transcript message with its transformed,
// renderable content
type RenderedMessage struct {
	chat.Message
	Rendered string
}

// Snapshot is the published read-only view of a session
type Snapshot struct {
	SessionID   string
	Status      chat.Status
	Messages    []RenderedMessage
	FollowUps   []string
	NavigateTo  string
	PreviewURL  string
	FilePaths   []string
	GitLog      []git.Entry
	Attachments []string
}

// SessionController owns one session's transcript, status and pending
// attachments
type SessionController struct {
	mu          sync.Mutex
	sessionID   string
	status      chat.Status
	transcript  chat.Transcript
	followUps   []string
	navigateTo  string
	previewURL  string
	filePaths   []string
	gitLog      []git.Entry
	attachments []string

	manager  *socket.Manager
	uploader *uploads.Client
	bus      *events.Bus
	log      *logger.Logger
}

// NewSessionController wires a controller to its connection manager,
// upload client and event bus
func NewSessionController(manager *socket.Manager, uploader *uploads.Client, bus *events.Bus) *SessionController {
	sc := &SessionController{
		status:     chat.StatusNewChat,
		transcript: chat.NewTranscript(),
		manager:    manager,
		uploader:   uploader,
		bus:        bus,
		log:        logger.WithComponent("session_controller"),
	}

	manager.OnFrame(sc.handleFrame)
	manager.OnTransport(sc.handleTransport)
	manager.OnClose(sc.handleChannelClose)
	return sc
}

// OpenSession resets session state for the given id and, unless the id is
// the new-chat sentinel, opens a channel for it
func (sc *SessionController) OpenSession(ctx context.Context, sessionID string) error {
	sc.mu.Lock()
	sc.sessionID = sessionID
	sc.transcript = chat.NewTranscript()
	sc.followUps = nil
	sc.navigateTo = ""
	sc.previewURL = ""
	sc.filePaths = nil
	sc.gitLog = nil
	sc.status = chat.StatusNewChat
	sc.mu.Unlock()

	if sessionID == "" || sessionID == NewSessionID {
		sc.publishTranscript()
		return nil
	}

	return sc.manager.Open(ctx, sessionID)
}

// CloseSession releases the channel; safe on teardown even when already
// disconnected
func (sc *SessionController) CloseSession() {
	sc.manager.Close()
}

// Reconnect reopens the channel for the current session after a
// non-transient disconnect
func (sc *SessionController) Reconnect(ctx context.Context) error {
	return sc.manager.Reconnect(ctx)
}

// Send transmits a user message carrying the pending attachments. Sending
// is only allowed in NEW_CHAT or READY; anything else is a caller
// contract violation surfaced as an error, and a closed channel surfaces
// socket.ErrNotConnected rather than dropping silently.
func (sc *SessionController) Send(content string) error {
	sc.mu.Lock()
	if !sc.status.CanSend() {
		status := sc.status
		sc.mu.Unlock()
		return fmt.Errorf("cannot send while session is %s", status)
	}
	images := append([]string{}, sc.attachments...)
	sc.mu.Unlock()

	msg := chat.NewUserMessage(content, images)
	if err := sc.manager.Send(msg); err != nil {
		return err
	}

	sc.mu.Lock()
	sc.attachments = nil
	sc.mu.Unlock()
	sc.publishAttachments()
	return nil
}

// Status returns the current session status
func (sc *SessionController) Status() chat.Status {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.status
}

// Snapshot returns the current published view of the session. The
// transformer runs per message here, treating the trailing assistant
// message as partial while the session is WORKING.
func (sc *SessionController) Snapshot() Snapshot {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.snapshotLocked()
}

func (sc *SessionController) snapshotLocked() Snapshot {
	messages := chat.GetMessages(sc.transcript)
	rendered := make([]RenderedMessage, len(messages))
	for i, msg := range messages {
		streaming := sc.status.IsStreaming() && i == len(messages)-1 && msg.IsAssistant()
		rendered[i] = RenderedMessage{
			Message:  msg,
			Rendered: transform.Render(msg.Content, streaming),
		}
	}

	return Snapshot{
		SessionID:   sc.sessionID,
		Status:      sc.status,
		Messages:    rendered,
		FollowUps:   append([]string{}, sc.followUps...),
		NavigateTo:  sc.navigateTo,
		PreviewURL:  sc.previewURL,
		FilePaths:   append([]string{}, sc.filePaths...),
		GitLog:      append([]git.Entry{}, sc.gitLog...),
		Attachments: append([]string{}, sc.attachments...),
	}
}

// handleFrame is the single entry point for inbound events, invoked by
// the channel's dispatcher one event at a time in arrival order
func (sc *SessionController) handleFrame(frame chat.Frame) {
	switch f := frame.(type) {
	case chat.StatusFrame:
		sc.applyStatus(f)
	case chat.ChatUpdateFrame:
		sc.applyUpdate(f)
	case chat.ChatChunkFrame:
		sc.applyChunk(f)
	default:
		sc.log.Debug("ignoring unknown frame", "type", frame.FrameType())
	}
}

func (sc *SessionController) applyStatus(frame chat.StatusFrame) {
	sc.mu.Lock()
	sc.status = frame.Status()
	if url, ok := frame.Tunnels[previewPort]; ok {
		sc.previewURL = url
	}
	if frame.FilePaths != nil {
		sc.filePaths = frame.FilePaths
	}
	if frame.GitLog != "" {
		sc.gitLog = git.ParseLog(frame.GitLog)
	}
	status := sc.status
	sc.mu.Unlock()

	sc.bus.Publish(events.EventStatusChanged,
		events.StatusPayload{Status: status.String()}, "session_controller")
	sc.bus.Publish(events.EventPreviewChanged, sc.Snapshot(), "session_controller")
}

func (sc *SessionController) applyUpdate(frame chat.ChatUpdateFrame) {
	sc.mu.Lock()
	sc.transcript = chat.ApplyUpdate(sc.transcript, frame.Message)
	if len(frame.FollowUps) > 0 {
		sc.followUps = frame.FollowUps
	}
	if frame.NavigateTo != "" {
		sc.navigateTo = frame.NavigateTo
	}
	sc.mu.Unlock()

	sc.publishTranscript()
	if len(frame.FollowUps) > 0 {
		sc.bus.Publish(events.EventSuggestionsChanged, frame.FollowUps, "session_controller")
	}
	if frame.NavigateTo != "" {
		sc.bus.Publish(events.EventNavigateRequested, frame.NavigateTo, "session_controller")
	}
}

func (sc *SessionController) applyChunk(frame chat.ChatChunkFrame) {
	sc.mu.Lock()
	sc.transcript = chat.ApplyChunk(sc.transcript, frame)
	sc.mu.Unlock()

	sc.publishTranscript()
}

func (sc *SessionController) handleTransport(status chat.Status) {
	sc.mu.Lock()
	sc.status = status
	sc.mu.Unlock()

	sc.bus.Publish(events.EventStatusChanged,
		events.StatusPayload{Status: status.String()}, "session_controller")
	if status == chat.StatusConnecting {
		sc.bus.Publish(events.EventConnected, nil, "session_controller")
	}
}

func (sc *SessionController) handleChannelClose(code int, reason string, reconnecting bool) {
	if !reconnecting {
		sc.log.Warn("channel closed, manual reconnect required",
			"code", code, "reason", reason)
	}
	sc.bus.Publish(events.EventDisconnected,
		events.DisconnectPayload{Code: code, Reason: reason}, "session_controller")
}

func (sc *SessionController) publishTranscript() {
	sc.bus.Publish(events.EventTranscriptUpdated, sc.Snapshot(), "session_controller")
}

func (sc *SessionController) publishAttachments() {
	sc.mu.Lock()
	attachments := append([]string{}, sc.attachments...)
	sc.mu.Unlock()
	sc.bus.Publish(events.EventAttachmentsChanged, attachments, "session_controller")
}
