package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/metrics"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, metrics.NewExporter(), log)
	})

	AfterEach(func() {
		cancel()
	})

	It("should satisfy provider.Observer", func() {
		var observer provider.Observer = collector
		Expect(observer).NotTo(BeNil())
	})

	It("should process attempt events", func() {
		go collector.Run(ctx)

		collector.Observe(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeSuccess, At: time.Now()})

		Eventually(func() int64 {
			return collector.Snapshot().Providers["gemini"].Successes
		}).Should(Equal(int64(1)))
	})

	It("should process breaker state events", func() {
		go collector.Run(ctx)

		collector.ObserveBreaker("anthropic", circuitbreaker.StateHalfOpen)

		Eventually(func() string {
			return collector.Snapshot().Providers["anthropic"].Breaker
		}).Should(Equal("HALF-OPEN"))
	})

	It("should drain buffered events on cancellation", func() {
		for i := 0; i < 5; i++ {
			collector.Observe(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeRetryable})
		}
		cancel()

		Expect(collector.Run(ctx)).To(Succeed())
		Expect(collector.Snapshot().Providers["gemini"].RetryableFailures).To(Equal(int64(5)))
	})

	It("should drop events instead of blocking when the buffer is full", func() {
		small := metrics.NewCollector(1, nil, log)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				small.Observe(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeSuccess})
			}
		}()
		Eventually(done).Should(BeClosed())

		cancel()
		Expect(small.Run(ctx)).To(Succeed())
		Expect(small.Snapshot().Providers["gemini"].Successes).To(Equal(int64(1)))
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Observe(provider.Attempt{Provider: "gemini", Outcome: provider.OutcomeFatal})
			cancel()
			Expect(collector.Run(ctx)).To(Succeed())

			rec := httptest.NewRecorder()
			collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Providers["gemini"].FatalFailures).To(Equal(int64(1)))
		})
	})
})
