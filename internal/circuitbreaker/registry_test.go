package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/clock"
)

var _ = Describe("Registry", func() {
	var (
		registry *circuitbreaker.Registry
		fake     *clock.Fake
	)

	BeforeEach(func() {
		fake = clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
		registry = circuitbreaker.NewRegistry(fake)
	})

	Describe("Register", func() {
		It("should create a closed breaker", func() {
			cb, err := registry.Register("gemini", circuitbreaker.DefaultSettings())
			Expect(err).NotTo(HaveOccurred())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should reject duplicate names", func() {
			_, err := registry.Register("gemini", circuitbreaker.DefaultSettings())
			Expect(err).NotTo(HaveOccurred())

			_, err = registry.Register("gemini", circuitbreaker.DefaultSettings())
			Expect(err).To(MatchError(ContainSubstring("already registered")))
		})

		It("should apply per-provider settings and the registry clock", func() {
			cb, err := registry.Register("anthropic", circuitbreaker.Settings{FailureThreshold: 2, OpenTimeout: 50 * time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			fake.Advance(60 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
		})
	})

	Describe("Get", func() {
		It("should return the registered breaker", func() {
			cb, _ := registry.Register("gemini", circuitbreaker.DefaultSettings())
			got, ok := registry.Get("gemini")
			Expect(ok).To(BeTrue())
			Expect(got).To(BeIdenticalTo(cb))
		})

		It("should report unknown names", func() {
			got, ok := registry.Get("missing")
			Expect(ok).To(BeFalse())
			Expect(got).To(BeNil())
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent operations on the same breaker", func() {
			const goroutines = 50

			cb, _ := registry.Register("gemini", circuitbreaker.Settings{FailureThreshold: 3, OpenTimeout: time.Second})

			var wg sync.WaitGroup
			wg.Add(goroutines * 3)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					cb.RecordFailure()
				}()
				go func() {
					defer wg.Done()
					cb.RecordSuccess()
				}()
				go func() {
					defer wg.Done()
					cb.Allow()
				}()
			}

			wg.Wait()

			stats := cb.Stats()
			Expect(stats.TotalFailures).To(Equal(int64(goroutines)))
			Expect(stats.Successes).To(Equal(int64(goroutines)))
			Expect(stats.State).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
		})
	})

	Describe("Reset", func() {
		It("should close every breaker and keep the provider set", func() {
			cb, _ := registry.Register("gemini", circuitbreaker.Settings{FailureThreshold: 1, OpenTimeout: time.Minute})
			_, _ = registry.Register("anthropic", circuitbreaker.DefaultSettings())
			cb.RecordFailure()
			Expect(registry.Stats()["gemini"].State).To(Equal(circuitbreaker.StateOpen))

			registry.Reset()

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["gemini"].State).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["gemini"].TotalFailures).To(BeZero())
		})

		It("should reset breakers in place", func() {
			cb, _ := registry.Register("gemini", circuitbreaker.Settings{FailureThreshold: 1, OpenTimeout: time.Minute})
			cb.RecordFailure()

			registry.Reset()

			got, _ := registry.Get("gemini")
			Expect(got).To(BeIdenticalTo(cb))

			cb.RecordFailure()
			Expect(registry.Stats()["gemini"].TotalFailures).To(Equal(int64(1)))
			Expect(registry.Stats()["gemini"].State).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("Stats", func() {
		It("should return state of all breakers", func() {
			_, _ = registry.Register("gemini", circuitbreaker.DefaultSettings())
			cb2, _ := registry.Register("anthropic", circuitbreaker.DefaultSettings())

			for i := 0; i < 5; i++ {
				cb2.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["gemini"].State).To(Equal(circuitbreaker.StateClosed))
			Expect(stats["anthropic"].State).To(Equal(circuitbreaker.StateOpen))
			Expect(stats["anthropic"].Failures).To(Equal(5))
		})
	})
})
