package chat_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scribelabs/scribe/pkg/chat"
	"github.com/scribelabs/scribe/pkg/plan"
)

var _ = Describe("Store", func() {
	var store *chat.Store

	BeforeEach(func() {
		store = chat.NewStore()
	})

	Describe("Get", func() {
		It("returns an empty snapshot for a new store", func() {
			Expect(store.Get()).To(BeEmpty())
			Expect(store.Len()).To(Equal(0))
		})

		It("returns snapshots that do not observe later updates", func() {
			store.Update(func(d *chat.Draft) {
				d.Append(chat.NewUserMessage("hello"))
			})
			before := store.Get()

			store.Update(func(d *chat.Draft) {
				d.Append(chat.NewPendingAssistantMessage())
			})

			Expect(before).To(HaveLen(1))
			Expect(store.Get()).To(HaveLen(2))
		})

		It("is not aliased to the internal state", func() {
			store.Update(func(d *chat.Draft) {
				d.Append(chat.NewUserMessage("hello"))
			})
			snapshot := store.Get()
			snapshot[0].Content = "mutated"

			Expect(store.Get()[0].Content).To(Equal("hello"))
		})
	})

	Describe("Update", func() {
		It("commits draft mutations as the new snapshot", func() {
			store.Update(func(d *chat.Draft) {
				d.Append(chat.NewUserMessage("q"))
				d.Append(chat.NewPendingAssistantMessage())
			})
			store.Update(func(d *chat.Draft) {
				d.Last().Content = "partial answer"
			})

			messages := store.Get()
			Expect(messages).To(HaveLen(2))
			Expect(messages[1].Content).To(Equal("partial answer"))
			Expect(messages[1].Pending).To(BeTrue())
		})

		It("supports trimming the placeholder pair", func() {
			store.Update(func(d *chat.Draft) {
				d.Append(chat.NewUserMessage("q"))
				d.Append(chat.NewPendingAssistantMessage())
			})
			store.Update(func(d *chat.Draft) {
				d.TrimLast(2)
			})

			Expect(store.Get()).To(BeEmpty())
		})

		It("never trims past the start", func() {
			store.Update(func(d *chat.Draft) {
				d.Append(chat.NewUserMessage("q"))
				d.TrimLast(5)
			})
			Expect(store.Get()).To(BeEmpty())
		})
	})

	Describe("Message", func() {
		It("creates user messages with keys and attachments", func() {
			msg := chat.NewUserMessage("hi", "file_1", "file_2")
			Expect(msg.Key).NotTo(BeEmpty())
			Expect(msg.Role).To(Equal(chat.RoleUser))
			Expect(msg.IsUser()).To(BeTrue())
			Expect(msg.Attachments).To(Equal([]string{"file_1", "file_2"}))
		})

		It("creates pending assistant placeholders", func() {
			msg := chat.NewPendingAssistantMessage()
			Expect(msg.IsAssistant()).To(BeTrue())
			Expect(msg.Pending).To(BeTrue())
			Expect(msg.Content).To(BeEmpty())
		})

		It("treats content, plan, and error as non-empty markers", func() {
			Expect(chat.NewPendingAssistantMessage().Empty()).To(BeTrue())

			withContent := chat.NewPendingAssistantMessage()
			withContent.Content = "x"
			Expect(withContent.Empty()).To(BeFalse())

			withPlan := chat.NewPendingAssistantMessage()
			withPlan.Plan = &plan.Plan{Key: "k"}
			Expect(withPlan.Empty()).To(BeFalse())

			withErr := chat.NewPendingAssistantMessage()
			withErr.Err = errors.New("boom")
			Expect(withErr.Empty()).To(BeFalse())
		})
	})
})
