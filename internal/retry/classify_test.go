package retry_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatch/internal/provider"
	"github.com/angeloszaimis/provider-dispatch/internal/retry"
)

var _ = Describe("IsRetryable", func() {
	DescribeTable("status codes",
		func(status int, expected bool) {
			Expect(retry.IsRetryable(&provider.Error{Status: status, Message: "upstream"})).To(Equal(expected))
		},
		Entry("503", 503, true),
		Entry("429", 429, true),
		Entry("502", 502, true),
		Entry("504", 504, true),
		Entry("400", 400, false),
		Entry("401", 401, false),
		Entry("404", 404, false),
		Entry("500", 500, false),
	)

	DescribeTable("message substrings",
		func(msg string, expected bool) {
			Expect(retry.IsRetryable(errors.New(msg))).To(Equal(expected))
		},
		Entry("overloaded", "Model is OVERLOADED right now", true),
		Entry("timeout", "request Timeout after 30s", true),
		Entry("network", "network unreachable", true),
		Entry("service unavailable", "Service Unavailable", true),
		Entry("503 in text", "upstream replied 503", true),
		Entry("invalid argument", "invalid argument: prompt too long", false),
		Entry("schema", "response did not match schema", false),
	)

	It("should find the status through wrapping", func() {
		err := fmt.Errorf("transcribe: %w", &provider.Error{Status: 429})
		Expect(retry.IsRetryable(err)).To(BeTrue())
	})

	It("should treat nil as not retryable", func() {
		Expect(retry.IsRetryable(nil)).To(BeFalse())
	})

	It("should not retry caller cancellation", func() {
		Expect(retry.IsRetryable(context.Canceled)).To(BeFalse())
	})
})

var _ = Describe("Backoff", func() {
	It("should double from the base delay and cap at the max delay", func() {
		var delays []time.Duration
		for i := 0; i < 5; i++ {
			delays = append(delays, retry.Backoff(i, 1000*time.Millisecond, 15000*time.Millisecond))
		}
		Expect(delays).To(Equal([]time.Duration{
			1000 * time.Millisecond,
			2000 * time.Millisecond,
			4000 * time.Millisecond,
			8000 * time.Millisecond,
			15000 * time.Millisecond,
		}))
	})

	It("should not overflow for large attempt indices", func() {
		Expect(retry.Backoff(62, time.Second, time.Minute)).To(Equal(time.Minute))
		Expect(retry.Backoff(1000, time.Second, time.Minute)).To(Equal(time.Minute))
	})

	It("should return zero for a zero base", func() {
		Expect(retry.Backoff(3, 0, time.Minute)).To(BeZero())
	})
})
