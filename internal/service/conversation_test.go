package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zeus0z/cloudhumans-takehome/internal/model"
	"github.com/zeus0z/cloudhumans-takehome/internal/queue"
	"github.com/zeus0z/cloudhumans-takehome/internal/service"
)

const fixedEscalation = "I've asked for clarification twice, but I still need more information. Let me transfer you to a specialist who can better assist you."

var _ = Describe("ConversationService", func() {
	var (
		svc           service.ConversationService
		mockEmbed     *mockEmbedder
		mockRetrieve  *mockRetriever
		mockComplete  *mockCompleter
		mockEscalator *mockProducer
		ctx           context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockEmbed = &mockEmbedder{}
		mockRetrieve = &mockRetriever{}
		mockComplete = &mockCompleter{}
		mockEscalator = &mockProducer{}

		svc = service.NewConversationService(mockEmbed, mockRetrieve, mockComplete, mockEscalator, 3)
	})

	userTurn := func(content string) model.Message {
		return model.Message{Role: model.RoleUser, Content: content}
	}
	agentTurn := func(content string, intent model.Intent) model.Message {
		return model.Message{Role: model.RoleAgent, Content: content, Intent: intent}
	}

	Describe("Complete", func() {
		It("runs the pipeline and appends exactly one agent message", func() {
			history := []model.Message{userTurn("What is the warranty period?")}

			mockEmbed.getEmbeddingFn = func(_ context.Context, text string) ([]float32, error) {
				Expect(text).To(Equal("What is the warranty period?"))
				return []float32{0.5, 0.5}, nil
			}
			mockRetrieve.searchFn = func(_ context.Context, projectName string, vector []float32, topK int) ([]model.RetrievedSection, error) {
				Expect(projectName).To(Equal("tesla_motors"))
				Expect(vector).To(Equal([]float32{0.5, 0.5}))
				Expect(topK).To(Equal(3))
				return []model.RetrievedSection{
					{Score: 0.9, Content: "Warranty lasts 12 months.", Type: "N2"},
				}, nil
			}
			mockComplete.completionFn = func(_ context.Context, _, _, _ string) (model.AgentReply, error) {
				return model.AgentReply{Content: "Your warranty lasts 12 months.", Intent: model.IntentAnswer}, nil
			}

			resp, err := svc.Complete(ctx, model.ConversationRequest{
				HelpDeskID:  123456,
				ProjectName: "tesla_motors",
				Messages:    history,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Messages).To(HaveLen(2))
			Expect(resp.Messages[0]).To(Equal(history[0]))
			Expect(resp.Messages[1]).To(Equal(agentTurn("Your warranty lasts 12 months.", model.IntentAnswer)))
			Expect(resp.HandOverToHumanNeeded).To(BeFalse())
			Expect(resp.SectionsRetrieved).To(HaveLen(1))
			Expect(resp.SectionsRetrieved[0].Content).To(Equal("Warranty lasts 12 months."))
		})

		It("uses the most recent USER message, not the last entry", func() {
			var embedded string
			mockEmbed.getEmbeddingFn = func(_ context.Context, text string) ([]float32, error) {
				embedded = text
				return []float32{1}, nil
			}

			_, err := svc.Complete(ctx, model.ConversationRequest{
				ProjectName: "tesla_motors",
				Messages: []model.Message{
					userTurn("first question"),
					agentTurn("Could you say more?", model.IntentClarification),
					userTurn("second question"),
					agentTurn("Here is an answer.", model.IntentAnswer),
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(embedded).To(Equal("second question"))
		})

		It("formats the context block as numbered sections joined by blank lines", func() {
			mockRetrieve.searchFn = func(_ context.Context, _ string, _ []float32, _ int) ([]model.RetrievedSection, error) {
				return []model.RetrievedSection{
					{Content: "first section"},
					{Content: "second section"},
					{Content: "third section"},
				}, nil
			}

			var gotContext string
			mockComplete.completionFn = func(_ context.Context, _, _, retrievedContext string) (model.AgentReply, error) {
				gotContext = retrievedContext
				return model.AgentReply{Content: "ok", Intent: model.IntentAnswer}, nil
			}

			_, err := svc.Complete(ctx, model.ConversationRequest{
				ProjectName: "tesla_motors",
				Messages:    []model.Message{userTurn("q")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(gotContext).To(Equal("[1] first section\n\n[2] second section\n\n[3] third section"))
		})

		It("passes an empty context block when retrieval finds nothing", func() {
			var gotContext string
			mockComplete.completionFn = func(_ context.Context, _, _, retrievedContext string) (model.AgentReply, error) {
				gotContext = retrievedContext
				return model.AgentReply{Content: "I couldn't find anything.", Intent: model.IntentEscalate}, nil
			}

			resp, err := svc.Complete(ctx, model.ConversationRequest{
				ProjectName: "tesla_motors",
				Messages:    []model.Message{userTurn("q")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(gotContext).To(Equal(""))
			Expect(resp.SectionsRetrieved).To(BeEmpty())
		})

		It("returns ErrNoUserMessage without calling any provider", func() {
			_, err := svc.Complete(ctx, model.ConversationRequest{
				ProjectName: "tesla_motors",
				Messages: []model.Message{
					agentTurn("Hello, how can I help?", model.IntentAnswer),
				},
			})

			Expect(err).To(MatchError(service.ErrNoUserMessage))
			Expect(mockEmbed.calls).To(BeZero())
			Expect(mockRetrieve.calls).To(BeZero())
			Expect(mockComplete.calls).To(BeZero())
		})

		It("returns ErrNoUserMessage for an empty history", func() {
			_, err := svc.Complete(ctx, model.ConversationRequest{ProjectName: "tesla_motors"})
			Expect(err).To(MatchError(service.ErrNoUserMessage))
		})

		Context("upstream failures", func() {
			It("fails whole when the embedding provider errors", func() {
				mockEmbed.getEmbeddingFn = func(context.Context, string) ([]float32, error) {
					return nil, errors.New("provider down")
				}

				_, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    []model.Message{userTurn("q")},
				})

				var upstreamErr *service.UpstreamError
				Expect(errors.As(err, &upstreamErr)).To(BeTrue())
				Expect(upstreamErr.Stage).To(Equal("embedding"))
				Expect(mockRetrieve.calls).To(BeZero())
				Expect(mockComplete.calls).To(BeZero())
			})

			It("fails whole when retrieval errors", func() {
				mockRetrieve.searchFn = func(context.Context, string, []float32, int) ([]model.RetrievedSection, error) {
					return nil, errors.New("index unavailable")
				}

				_, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    []model.Message{userTurn("q")},
				})

				var upstreamErr *service.UpstreamError
				Expect(errors.As(err, &upstreamErr)).To(BeTrue())
				Expect(upstreamErr.Stage).To(Equal("retrieval"))
				Expect(mockComplete.calls).To(BeZero())
			})

			It("fails whole when completion errors, with no retry", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{}, errors.New("rate limited")
				}

				_, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    []model.Message{userTurn("q")},
				})

				var upstreamErr *service.UpstreamError
				Expect(errors.As(err, &upstreamErr)).To(BeTrue())
				Expect(upstreamErr.Stage).To(Equal("completion"))
				Expect(mockComplete.calls).To(Equal(1))
			})
		})

		Context("escalation policy", func() {
			twoClarifications := []model.Message{
				userTurn("my car is broken"),
				agentTurn("Could you describe the issue?", model.IntentClarification),
				userTurn("it just is"),
				agentTurn("Which part is affected?", model.IntentClarification),
				userTurn("no idea"),
			}

			It("overrides a third clarification with the fixed escalation reply", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{Content: "Can you tell me more?", Intent: model.IntentClarification}, nil
				}

				resp, err := svc.Complete(ctx, model.ConversationRequest{
					HelpDeskID:  7,
					ProjectName: "tesla_motors",
					Messages:    twoClarifications,
				})

				Expect(err).NotTo(HaveOccurred())
				final := resp.Messages[len(resp.Messages)-1]
				Expect(final.Intent).To(Equal(model.IntentEscalate))
				Expect(final.Content).To(Equal(fixedEscalation))
				Expect(resp.HandOverToHumanNeeded).To(BeTrue())
			})

			It("passes through a model escalate reply unmodified at the threshold", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{Content: "Let me get a human for you.", Intent: model.IntentEscalate}, nil
				}

				resp, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    twoClarifications,
				})

				Expect(err).NotTo(HaveOccurred())
				final := resp.Messages[len(resp.Messages)-1]
				Expect(final.Content).To(Equal("Let me get a human for you."))
				Expect(final.Intent).To(Equal(model.IntentEscalate))
				Expect(resp.HandOverToHumanNeeded).To(BeTrue())
			})

			It("does not override below the threshold", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{Content: "Could you clarify?", Intent: model.IntentClarification}, nil
				}

				resp, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages: []model.Message{
						userTurn("help"),
						agentTurn("What do you need?", model.IntentClarification),
						userTurn("not sure"),
					},
				})

				Expect(err).NotTo(HaveOccurred())
				final := resp.Messages[len(resp.Messages)-1]
				Expect(final.Content).To(Equal("Could you clarify?"))
				Expect(final.Intent).To(Equal(model.IntentClarification))
				Expect(resp.HandOverToHumanNeeded).To(BeFalse())
			})

			It("includes the escalation directive in the prompt only at the threshold", func() {
				var prompts []string
				mockComplete.completionFn = func(_ context.Context, systemPrompt, _, _ string) (model.AgentReply, error) {
					prompts = append(prompts, systemPrompt)
					return model.AgentReply{Content: "ok", Intent: model.IntentAnswer}, nil
				}

				_, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    []model.Message{userTurn("q")},
				})
				Expect(err).NotTo(HaveOccurred())

				_, err = svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    twoClarifications,
				})
				Expect(err).NotTo(HaveOccurred())

				Expect(prompts[0]).NotTo(ContainSubstring("IMPORTANT"))
				Expect(prompts[1]).To(ContainSubstring(`You MUST use "escalate"`))
			})

			It("publishes a handover event when the reply escalates", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{Content: "bye", Intent: model.IntentEscalate}, nil
				}

				_, err := svc.Complete(ctx, model.ConversationRequest{
					HelpDeskID:  42,
					ProjectName: "tesla_motors",
					Messages:    []model.Message{userTurn("q")},
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(mockEscalator.events).To(HaveLen(1))
				Expect(mockEscalator.events[0].HelpDeskID).To(Equal(int64(42)))
				Expect(mockEscalator.events[0].ProjectName).To(Equal("tesla_motors"))
				Expect(mockEscalator.events[0].Reason).To(Equal("model"))
			})

			It("marks limit-forced handovers distinctly in the event", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{Content: "more info?", Intent: model.IntentClarification}, nil
				}

				_, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    twoClarifications,
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(mockEscalator.events).To(HaveLen(1))
				Expect(mockEscalator.events[0].Reason).To(Equal("clarification_limit"))
			})

			It("still answers when event publishing fails", func() {
				mockComplete.completionFn = func(context.Context, string, string, string) (model.AgentReply, error) {
					return model.AgentReply{Content: "bye", Intent: model.IntentEscalate}, nil
				}
				mockEscalator.publishFn = func(context.Context, queue.EscalationEvent) error {
					return errors.New("redis down")
				}

				resp, err := svc.Complete(ctx, model.ConversationRequest{
					ProjectName: "tesla_motors",
					Messages:    []model.Message{userTurn("q")},
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(resp.HandOverToHumanNeeded).To(BeTrue())
			})
		})
	})
})
