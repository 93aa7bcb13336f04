package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatch/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should default to info for invalid level", func() {
			log := logger.New("invalid", false, "dev", nil)
			Expect(log).NotTo(BeNil())
			Expect(log.Enabled(ctx, slog.LevelInfo)).To(BeTrue())
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeFalse())
		})

		It("should respect debug level", func() {
			log := logger.New("debug", false, "dev", nil)

			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeTrue())
			Expect(log.Enabled(ctx, slog.LevelInfo)).To(BeTrue())
		})

		It("should respect warn level", func() {
			log := logger.New("warn", false, "dev", nil)

			Expect(log.Enabled(ctx, slog.LevelInfo)).To(BeFalse())
			Expect(log.Enabled(ctx, slog.LevelWarn)).To(BeTrue())
		})

		It("should respect error level", func() {
			log := logger.New("ERROR", false, "dev", nil)

			Expect(log.Enabled(ctx, slog.LevelWarn)).To(BeFalse())
			Expect(log.Enabled(ctx, slog.LevelError)).To(BeTrue())
		})

		It("should write JSON with the environment attribute in prod", func() {
			var buf bytes.Buffer
			log := logger.New("info", false, "prod", &buf)

			log.Info("dispatch succeeded", slog.String("provider", "gemini"))

			var entry map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
			Expect(entry).To(HaveKeyWithValue("msg", "dispatch succeeded"))
			Expect(entry).To(HaveKeyWithValue("environment", "prod"))
			Expect(entry).To(HaveKeyWithValue("provider", "gemini"))
		})

		It("should write text outside prod", func() {
			var buf bytes.Buffer
			log := logger.New("info", true, "dev", &buf)

			log.Info("dispatch succeeded")

			Expect(buf.String()).To(ContainSubstring("msg=\"dispatch succeeded\""))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
			Expect(buf.String()).To(ContainSubstring("source="))
		})
	})

	Describe("Output", func() {
		It("should return stdout when no file is configured", func() {
			w, closer := logger.Output("", 0, 0)
			Expect(w).To(BeIdenticalTo(os.Stdout))
			Expect(closer.Close()).To(Succeed())
		})

		It("should also write into the rotated file", func() {
			dir, err := os.MkdirTemp("", "logger-test-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)

			path := filepath.Join(dir, "dispatch.log")
			w, closer := logger.Output(path, 1, 1)

			log := logger.New("info", false, "prod", w)
			log.Info("provider skipped", slog.String("provider", "anthropic"))
			Expect(closer.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("provider skipped"))
			Expect(string(data)).To(ContainSubstring("anthropic"))
		})
	})
})
