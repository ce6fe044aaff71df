package chat_test

import (
	"github.com/stackpad/stackpad/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Transcript", func() {
	Describe("Append", func() {
		It("should add a message immutably", func() {
			original := chat.NewTranscript()
			updated := chat.Append(original, chat.NewUserMessage("Hello", nil))

			Expect(chat.GetMessageCount(original)).To(Equal(0))
			Expect(chat.GetMessageCount(updated)).To(Equal(1))

			last, found := chat.GetLastMessage(updated)
			Expect(found).To(BeTrue())
			Expect(last.Content).To(Equal("Hello"))
		})

		It("should preserve insertion order", func() {
			t := chat.NewTranscript()
			t = chat.Append(t, chat.NewUserMessage("First", nil))
			t = chat.Append(t, chat.NewAssistantMessage("Second"))
			t = chat.Append(t, chat.NewUserMessage("Third", nil))

			messages := chat.GetMessages(t)
			Expect(messages).To(HaveLen(3))
			Expect(messages[0].Content).To(Equal("First"))
			Expect(messages[1].Content).To(Equal("Second"))
			Expect(messages[2].Content).To(Equal("Third"))
		})
	})

	Describe("ReplaceAt", func() {
		It("should swap one element and leave the old transcript intact", func() {
			before := chat.Append(chat.NewTranscript(), chat.NewAssistantMessage("draft"))
			after := chat.ReplaceAt(before, 0, chat.NewAssistantMessage("final"))

			beforeLast, _ := chat.GetLastMessage(before)
			afterLast, _ := chat.GetLastMessage(after)
			Expect(beforeLast.Content).To(Equal("draft"))
			Expect(afterLast.Content).To(Equal("final"))
		})

		It("should ignore out-of-range indices", func() {
			t := chat.Append(chat.NewTranscript(), chat.NewUserMessage("only", nil))

			Expect(chat.ReplaceAt(t, -1, chat.Message{})).To(Equal(t))
			Expect(chat.ReplaceAt(t, 1, chat.Message{})).To(Equal(t))
		})
	})

	Describe("IndexByID", func() {
		It("should find persisted messages by id", func() {
			t := chat.NewTranscript()
			t = chat.Append(t, chat.Message{ID: 7, Role: chat.RoleUser, Content: "a"})
			t = chat.Append(t, chat.Message{ID: 9, Role: chat.RoleAssistant, Content: "b"})

			i, found := chat.IndexByID(t, 9)
			Expect(found).To(BeTrue())
			Expect(i).To(Equal(1))
		})

		It("should never match the unpersisted sentinel", func() {
			t := chat.Append(chat.NewTranscript(), chat.NewAssistantMessage("local"))

			_, found := chat.IndexByID(t, 0)
			Expect(found).To(BeFalse())
		})
	})

	Describe("NewTranscriptFromMessages", func() {
		It("should copy the input slice", func() {
			source := []chat.Message{{Role: chat.RoleUser, Content: "seed"}}
			t := chat.NewTranscriptFromMessages(source)

			source[0].Content = "mutated"
			messages := chat.GetMessages(t)
			Expect(messages[0].Content).To(Equal("seed"))
		})
	})
})
