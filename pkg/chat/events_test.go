package chat_test

import (
	"encoding/json"

	"github.com/stackpad/stackpad/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Events", func() {
	Describe("DecodeFrame", func() {
		It("should decode a status frame with side channels", func() {
			raw := `{
				"for_type": "status",
				"project_id": 12,
				"sandbox_status": "READY",
				"tunnels": {"3000": "https://preview.example.dev"},
				"file_paths": ["app/page.tsx"],
				"git_log": "abc|init|Dev|dev@example.com|2024-01-01"
			}`

			frame, err := chat.DecodeFrame([]byte(raw))
			Expect(err).ToNot(HaveOccurred())

			status, ok := frame.(chat.StatusFrame)
			Expect(ok).To(BeTrue())
			Expect(status.Status()).To(Equal(chat.StatusReady))
			Expect(status.Tunnels[3000]).To(Equal("https://preview.example.dev"))
			Expect(status.FilePaths).To(Equal([]string{"app/page.tsx"}))
		})

		It("should decode a chat_update frame", func() {
			raw := `{
				"for_type": "chat_update",
				"chat_id": 3,
				"message": {"id": 44, "role": "assistant", "content": "done"},
				"follow_ups": ["Add tests", "Deploy it"]
			}`

			frame, err := chat.DecodeFrame([]byte(raw))
			Expect(err).ToNot(HaveOccurred())

			update, ok := frame.(chat.ChatUpdateFrame)
			Expect(ok).To(BeTrue())
			Expect(update.Message.ID).To(Equal(int64(44)))
			Expect(update.FollowUps).To(HaveLen(2))
		})

		It("should decode a chat_chunk frame", func() {
			raw := `{"for_type": "chat_chunk", "role": "assistant", "content": "de", "thinking_content": "t"}`

			frame, err := chat.DecodeFrame([]byte(raw))
			Expect(err).ToNot(HaveOccurred())

			chunk, ok := frame.(chat.ChatChunkFrame)
			Expect(ok).To(BeTrue())
			Expect(chunk.Content).To(Equal("de"))
			Expect(chunk.ThinkingContent).To(Equal("t"))
		})

		It("should ignore unknown frame kinds", func() {
			frame, err := chat.DecodeFrame([]byte(`{"for_type": "billing_update", "total": 3}`))

			Expect(err).ToNot(HaveOccurred())
			Expect(frame).To(BeNil())
		})

		It("should reject malformed payloads", func() {
			_, err := chat.DecodeFrame([]byte(`{"for_type": "chat_update", "message": "not an object"}`))
			Expect(err).To(HaveOccurred())

			_, err = chat.DecodeFrame([]byte(`not json at all`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EncodeOutbound", func() {
		It("should serialize a user message with images", func() {
			msg := chat.NewUserMessage("ship it", []string{"https://cdn.example/shot.png"})

			data, err := chat.EncodeOutbound(msg)
			Expect(err).ToNot(HaveOccurred())

			var decoded map[string]interface{}
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())
			Expect(decoded["role"]).To(Equal("user"))
			Expect(decoded["content"]).To(Equal("ship it"))
			Expect(decoded["images"]).To(HaveLen(1))
			// Unpersisted messages must not claim an id on the wire.
			Expect(decoded).ToNot(HaveKey("id"))
		})
	})

	Describe("StatusFromSandbox", func() {
		It("should map service states onto the client enum", func() {
			Expect(chat.StatusFromSandbox("OFFLINE")).To(Equal(chat.StatusOffline))
			Expect(chat.StatusFromSandbox("READY")).To(Equal(chat.StatusReady))
			Expect(chat.StatusFromSandbox("WORKING")).To(Equal(chat.StatusWorking))
			Expect(chat.StatusFromSandbox("BUILDING")).To(Equal(chat.StatusBuilding))
		})

		It("should fold intermediate service states into their client state", func() {
			Expect(chat.StatusFromSandbox("BUILDING_WAITING")).To(Equal(chat.StatusBuilding))
			Expect(chat.StatusFromSandbox("WORKING_APPLYING")).To(Equal(chat.StatusWorking))
		})
	})

	Describe("Status", func() {
		It("should gate sending on NEW_CHAT and READY only", func() {
			Expect(chat.StatusNewChat.CanSend()).To(BeTrue())
			Expect(chat.StatusReady.CanSend()).To(BeTrue())
			Expect(chat.StatusWorking.CanSend()).To(BeFalse())
			Expect(chat.StatusBuilding.CanSend()).To(BeFalse())
			Expect(chat.StatusDisconnected.CanSend()).To(BeFalse())
			Expect(chat.StatusConnecting.CanSend()).To(BeFalse())
			Expect(chat.StatusOffline.CanSend()).To(BeFalse())
		})

		It("should treat WORKING as the streaming state", func() {
			Expect(chat.StatusWorking.IsStreaming()).To(BeTrue())
			Expect(chat.StatusReady.IsStreaming()).To(BeFalse())
		})
	})
})
