package chat_test

import (
	"fmt"

	"github.com/stackpad/stackpad/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reconciler", func() {
	Describe("ApplyChunk", func() {
		It("should concatenate deltas in arrival order", func() {
			deltas := []string{"Hel", "lo", ", ", "wor", "ld"}
			t := chat.NewTranscript()
			for _, d := range deltas {
				t = chat.ApplyChunk(t, chat.ChatChunkFrame{Role: chat.RoleAssistant, Content: d})
			}

			Expect(chat.GetMessageCount(t)).To(Equal(1))
			last, _ := chat.GetLastMessage(t)
			Expect(last.Content).To(Equal("Hello, world"))
		})

		It("should synthesize an assistant message when the transcript is empty", func() {
			t := chat.ApplyChunk(chat.NewTranscript(), chat.ChatChunkFrame{Content: "start"})

			last, found := chat.GetLastMessage(t)
			Expect(found).To(BeTrue())
			Expect(last.Role).To(Equal(chat.RoleAssistant))
			Expect(last.Content).To(Equal("start"))
			Expect(last.IsPersisted()).To(BeFalse())
		})

		It("should synthesize a new assistant message after a user message", func() {
			t := chat.Append(chat.NewTranscript(), chat.NewUserMessage("build me a page", nil))
			t = chat.ApplyChunk(t, chat.ChatChunkFrame{Content: "Sure"})

			Expect(chat.GetMessageCount(t)).To(Equal(2))
			last, _ := chat.GetLastMessage(t)
			Expect(last.Role).To(Equal(chat.RoleAssistant))
			Expect(last.Content).To(Equal("Sure"))
		})

		It("should accumulate thinking content alongside visible content", func() {
			t := chat.NewTranscript()
			t = chat.ApplyChunk(t, chat.ChatChunkFrame{Content: "a", ThinkingContent: "hmm "})
			t = chat.ApplyChunk(t, chat.ChatChunkFrame{Content: "b", ThinkingContent: "ok"})

			last, _ := chat.GetLastMessage(t)
			Expect(last.Content).To(Equal("ab"))
			Expect(last.ThinkingContent).To(Equal("hmm ok"))
		})

		It("should not mutate the previous transcript value", func() {
			before := chat.ApplyChunk(chat.NewTranscript(), chat.ChatChunkFrame{Content: "one"})
			after := chat.ApplyChunk(before, chat.ChatChunkFrame{Content: " two"})

			beforeLast, _ := chat.GetLastMessage(before)
			afterLast, _ := chat.GetLastMessage(after)
			Expect(beforeLast.Content).To(Equal("one"))
			Expect(afterLast.Content).To(Equal("one two"))
		})
	})

	Describe("ApplyUpdate", func() {
		It("should replace a known id in place without changing length", func() {
			t := chat.NewTranscript()
			for i := int64(1); i <= 3; i++ {
				t = chat.Append(t, chat.Message{ID: i, Role: chat.RoleUser, Content: fmt.Sprintf("m%d", i)})
			}

			updated := chat.ApplyUpdate(t, chat.Message{ID: 2, Role: chat.RoleUser, Content: "edited"})

			Expect(chat.GetMessageCount(updated)).To(Equal(3))
			messages := chat.GetMessages(updated)
			Expect(messages[0].Content).To(Equal("m1"))
			Expect(messages[1].Content).To(Equal("edited"))
			Expect(messages[2].Content).To(Equal("m3"))
		})

		It("should coalesce an id-less assistant update into the trailing assistant message", func() {
			t := chat.Append(chat.NewTranscript(), chat.NewUserMessage("go", nil))
			t = chat.ApplyChunk(t, chat.ChatChunkFrame{Content: "partial answ", ThinkingContent: "thought"})

			final := chat.Message{Role: chat.RoleAssistant, Content: "partial answer, finished."}
			t = chat.ApplyUpdate(t, final)

			Expect(chat.GetMessageCount(t)).To(Equal(2))
			last, _ := chat.GetLastMessage(t)
			Expect(last.Content).To(Equal("partial answer, finished."))
			// Only content is superseded; the streamed fields survive.
			Expect(last.ThinkingContent).To(Equal("thought"))
		})

		It("should append when the trailing message is not an assistant message", func() {
			t := chat.Append(chat.NewTranscript(), chat.NewUserMessage("hi", nil))
			t = chat.ApplyUpdate(t, chat.Message{ID: 5, Role: chat.RoleUser, Content: "hi"})

			Expect(chat.GetMessageCount(t)).To(Equal(2))
		})

		It("should append a user update even when an assistant message trails", func() {
			t := chat.Append(chat.NewTranscript(), chat.NewAssistantMessage("done"))
			t = chat.ApplyUpdate(t, chat.Message{ID: 8, Role: chat.RoleUser, Content: "next"})

			Expect(chat.GetMessageCount(t)).To(Equal(2))
			last, _ := chat.GetLastMessage(t)
			Expect(last.Role).To(Equal(chat.RoleUser))
		})

		It("should append to an empty transcript", func() {
			t := chat.ApplyUpdate(chat.NewTranscript(), chat.Message{ID: 1, Role: chat.RoleUser, Content: "first"})

			Expect(chat.GetMessageCount(t)).To(Equal(1))
		})
	})
})
