package chat

import (
	"encoding/json"
	"fmt"
)

// Frame kind tags carried in the for_type field of every inbound frame
const (
	FrameStatus     = "status"
	FrameChatUpdate = "chat_update"
	FrameChatChunk  = "chat_chunk"
)

// Frame is one decoded inbound event. The concrete type is one of
// StatusFrame, ChatUpdateFrame or ChatChunkFrame.
type Frame interface {
	FrameType() string
}

// StatusFrame reports the session's sandbox state plus the tunnel and
// file side channels
type StatusFrame struct {
	ProjectID int64          `json:"project_id"`
	Sandbox   string         `json:"sandbox_status"`
	Tunnels   map[int]string `json:"tunnels"`
	FilePaths []string       `json:"file_paths,omitempty"`
	GitLog    string         `json:"git_log,omitempty"`
}

func (StatusFrame) FrameType() string { return FrameStatus }

// Status maps the frame's sandbox state onto the client enum
func (f StatusFrame) Status() Status {
	return StatusFromSandbox(f.Sandbox)
}

// ChatUpdateFrame carries one complete message, which may or may not
// already exist in the transcript by id
type ChatUpdateFrame struct {
	ChatID     int64    `json:"chat_id"`
	Message    Message  `json:"message"`
	FollowUps  []string `json:"follow_ups,omitempty"`
	NavigateTo string   `json:"navigate_to,omitempty"`
}

func (ChatUpdateFrame) FrameType() string { return FrameChatUpdate }

// ChatChunkFrame carries incremental deltas for the streaming assistant
// message
type ChatChunkFrame struct {
	Role            string `json:"role"`
	Content         string `json:"content"`
	ThinkingContent string `json:"thinking_content"`
}

func (ChatChunkFrame) FrameType() string { return FrameChatChunk }

// DecodeFrame parses one raw frame payload. Unknown for_type values
// decode to (nil, nil) so new server-side kinds pass through harmlessly;
// malformed payloads return an error and must be dropped by the caller.
func DecodeFrame(data []byte) (Frame, error) {
	var envelope struct {
		ForType string `json:"for_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse frame envelope: %w", err)
	}

	switch envelope.ForType {
	case FrameStatus:
		var frame StatusFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("failed to parse status frame: %w", err)
		}
		return frame, nil
	case FrameChatUpdate:
		var frame ChatUpdateFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("failed to parse chat_update frame: %w", err)
		}
		return frame, nil
	case FrameChatChunk:
		var frame ChatChunkFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("failed to parse chat_chunk frame: %w", err)
		}
		return frame, nil
	default:
		return nil, nil
	}
}

// EncodeOutbound serializes a user message for transmission
func EncodeOutbound(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbound message: %w", err)
	}
	return data, nil
}
