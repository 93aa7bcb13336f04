package simulate_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatch/internal/provider"
	"github.com/angeloszaimis/provider-dispatch/internal/simulate"
)

var _ = Describe("Provider", func() {
	ctx := context.Background()

	It("should succeed by default", func() {
		p := simulate.New("gemini")
		out, err := p.Transcribe(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(simulate.Transcript{Provider: "gemini", Text: "[gemini] hello"}))
		Expect(p.Calls()).To(Equal(1))
	})

	It("should play the script before succeeding", func() {
		boom := errors.New("overloaded")
		p := simulate.New("gemini", simulate.FailTimes(2, boom))

		_, err := p.Transcribe(ctx, "x")
		Expect(err).To(MatchError(boom))
		_, err = p.Transcribe(ctx, "x")
		Expect(err).To(MatchError(boom))
		_, err = p.Transcribe(ctx, "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Calls()).To(Equal(3))
	})

	It("should treat nil script entries as successes", func() {
		boom := errors.New("bad request")
		p := simulate.New("gemini", simulate.Script(nil, boom), simulate.AlwaysFail(boom))

		_, err := p.Transcribe(ctx, "x")
		Expect(err).NotTo(HaveOccurred())
		_, err = p.Transcribe(ctx, "x")
		Expect(err).To(MatchError(boom))
		_, err = p.Transcribe(ctx, "x")
		Expect(err).To(MatchError(boom))
	})

	It("should honour cancellation while simulating latency", func() {
		p := simulate.New("slow", simulate.WithLatency(time.Minute))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := p.Transcribe(cancelled, "x")
		Expect(err).To(MatchError(context.Canceled))
	})

	Describe("FromBehavior", func() {
		It("should fail with a status-carrying provider error", func() {
			p := simulate.FromBehavior("anthropic", simulate.Behavior{FailTimes: 1, Status: 529, Message: "overloaded"})

			_, err := p.Transcribe(ctx, "x")
			var perr *provider.Error
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Status).To(Equal(529))
			Expect(perr.Provider).To(Equal("anthropic"))

			_, err = p.Transcribe(ctx, "x")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep failing when AlwaysFail is set", func() {
			p := simulate.FromBehavior("anthropic", simulate.Behavior{AlwaysFail: true, Status: 400, Message: "bad"})
			for i := 0; i < 3; i++ {
				_, err := p.Transcribe(ctx, "x")
				Expect(err).To(HaveOccurred())
			}
		})
	})

	Describe("Set", func() {
		It("should route the operation by provider name", func() {
			set := simulate.NewSet(simulate.New("gemini"), simulate.New("anthropic"))
			op := set.TranscribeOperation("hi")

			out, err := op(ctx, provider.Config{Name: "anthropic"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Provider).To(Equal("anthropic"))
			Expect(set["anthropic"].Calls()).To(Equal(1))
			Expect(set["gemini"].Calls()).To(BeZero())
		})

		It("should fail fatally for providers without an endpoint", func() {
			op := simulate.NewSet().TranscribeOperation("hi")
			_, err := op(ctx, provider.Config{Name: "missing"})
			var perr *provider.Error
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Status).To(Equal(404))
		})
	})
})
