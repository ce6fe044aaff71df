package chat

// ApplyUpdate folds a chat_update message into the transcript.
//
// A message whose id is already present replaces that element in place.
// Otherwise, when both the incoming message and the trailing transcript
// element are assistant messages, the update is taken to supersede the
// in-progress streamed content: only the trailing element's content is
// replaced, its other fields kept. This correlation is a heuristic: with
// no id there is no way to tell a finalizing update from an unrelated
// back-to-back assistant message. Anything else appends.
func ApplyUpdate(t Transcript, incoming Message) Transcript {
	if i, ok := IndexByID(t, incoming.ID); ok {
		return ReplaceAt(t, i, incoming)
	}

	if last, ok := GetLastMessage(t); ok && last.IsAssistant() && incoming.IsAssistant() {
		merged := last
		merged.Content = incoming.Content
		return ReplaceAt(t, GetMessageCount(t)-1, merged)
	}

	return Append(t, incoming)
}

// ApplyChunk folds a chat_chunk delta into the transcript. Deltas append
// to the trailing assistant message by plain concatenation; when no
// assistant message is trailing, one is synthesized to hold the delta.
func ApplyChunk(t Transcript, chunk ChatChunkFrame) Transcript {
	if last, ok := GetLastMessage(t); ok && last.IsAssistant() {
		grown := last
		grown.Content += chunk.Content
		grown.ThinkingContent += chunk.ThinkingContent
		return ReplaceAt(t, GetMessageCount(t)-1, grown)
	}

	return Append(t, Message{
		Role:            RoleAssistant,
		Content:         chunk.Content,
		ThinkingContent: chunk.ThinkingContent,
	})
}
