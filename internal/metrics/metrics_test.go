package metrics_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/metrics"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("RecordAttempt", func() {
		It("should count attempts by outcome", func() {
			m.RecordAttempt(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeRetryable, Delay: time.Second})
			m.RecordAttempt(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeRetryable, Delay: 2 * time.Second})
			m.RecordAttempt(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeSuccess})

			snap := m.Snapshot()
			gemini := snap.Providers["gemini"]
			Expect(gemini.Attempts).To(Equal(int64(3)))
			Expect(gemini.RetryableFailures).To(Equal(int64(2)))
			Expect(gemini.Successes).To(Equal(int64(1)))
			Expect(gemini.TotalBackoff).To(Equal(3 * time.Second))
			Expect(snap.TotalAttempts).To(Equal(int64(3)))
		})

		It("should not count skips as attempts", func() {
			m.RecordAttempt(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeSkipped})
			m.RecordAttempt(provider.Attempt{Provider: "anthropic", Outcome: provider.OutcomeFatal, Err: errors.New("bad key")})

			snap := m.Snapshot()
			Expect(snap.Providers["gemini"].Skips).To(Equal(int64(1)))
			Expect(snap.Providers["gemini"].Attempts).To(BeZero())
			Expect(snap.Providers["anthropic"].FatalFailures).To(Equal(int64(1)))
			Expect(snap.Providers["anthropic"].LastError).To(Equal("bad key"))
			Expect(snap.TotalAttempts).To(Equal(int64(1)))
		})
	})

	Describe("UpdateBreakerState", func() {
		It("should report the latest breaker state", func() {
			m.UpdateBreakerState("gemini", circuitbreaker.StateOpen)
			Expect(m.Snapshot().Providers["gemini"].Breaker).To(Equal("OPEN"))

			m.UpdateBreakerState("gemini", circuitbreaker.StateClosed)
			Expect(m.Snapshot().Providers["gemini"].Breaker).To(Equal("CLOSED"))
		})
	})

	Describe("Snapshot", func() {
		It("should handle empty metrics", func() {
			snap := m.Snapshot()
			Expect(snap.TotalAttempts).To(BeZero())
			Expect(snap.Providers).To(BeEmpty())
		})

		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)
			Expect(m.Snapshot().Uptime).To(BeNumerically(">", 0))
		})

		It("should return independent snapshots", func() {
			m.RecordAttempt(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeSuccess})
			snap1 := m.Snapshot()
			m.RecordAttempt(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeSuccess})
			snap2 := m.Snapshot()

			Expect(snap1.TotalAttempts).To(Equal(int64(1)))
			Expect(snap2.TotalAttempts).To(Equal(int64(2)))
		})
	})
})
