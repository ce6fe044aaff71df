package chat

// Transcript is the ordered sequence of messages reconciled so far for a
// session. Transcript values are immutable: every operation returns a new
// value and leaves the receiver's backing array untouched, so callers may
// hold old versions for comparison.
type Transcript struct {
	messages []Message
}

func NewTranscript() Transcript {
	return Transcript{messages: make([]Message, 0)}
}

// NewTranscriptFromMessages builds a transcript from messages already
// persisted server-side (session reload)
func NewTranscriptFromMessages(messages []Message) Transcript {
	copied := make([]Message, len(messages))
	copy(copied, messages)
	return Transcript{messages: copied}
}

func Append(t Transcript, msg Message) Transcript {
	messages := make([]Message, len(t.messages)+1)
	copy(messages, t.messages)
	messages[len(t.messages)] = msg
	return Transcript{messages: messages}
}

// ReplaceAt returns a transcript with the element at index i swapped for
// msg, preserving position. Out-of-range indices return t unchanged.
func ReplaceAt(t Transcript, i int, msg Message) Transcript {
	if i < 0 || i >= len(t.messages) {
		return t
	}
	messages := make([]Message, len(t.messages))
	copy(messages, t.messages)
	messages[i] = msg
	return Transcript{messages: messages}
}

// IndexByID finds the position of the persisted message with the given id
func IndexByID(t Transcript, id int64) (int, bool) {
	if id == 0 {
		return 0, false
	}
	for i, msg := range t.messages {
		if msg.ID == id {
			return i, true
		}
	}
	return 0, false
}

func GetMessages(t Transcript) []Message {
	result := make([]Message, len(t.messages))
	copy(result, t.messages)
	return result
}

func GetMessageCount(t Transcript) int {
	return len(t.messages)
}

func GetLastMessage(t Transcript) (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

func IsEmpty(t Transcript) bool {
	return len(t.messages) == 0
}
