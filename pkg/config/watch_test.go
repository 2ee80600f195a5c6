package config_test

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/megaman333/Clover-Edition/pkg/config"
)

var _ = Describe("Watch", func() {
	It("fails for a missing file", func() {
		err := config.Watch(context.Background(), "/nonexistent/config.toml", zap.NewNop(), func(config.Settings) {})
		Expect(err).To(HaveOccurred())
	})

	It("hands valid edits to the callback and skips broken ones", func() {
		path := writeSettings("[generation]\ntemperature = 0.4\n")

		reloads := make(chan config.Settings, 4)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, zap.NewNop(), func(s config.Settings) {
				reloads <- s
			})
		}()

		// Give the watcher a moment to register before the first edit.
		time.Sleep(100 * time.Millisecond)

		Expect(os.WriteFile(path, []byte("[generation]\ntemperature = 0.7\n"), 0o644)).To(Succeed())

		var s config.Settings
		Eventually(reloads, "5s").Should(Receive(&s))
		Expect(s.Generation.Temperature).To(Equal(0.7))

		// An invalid edit is ignored; the next valid one still lands.
		Expect(os.WriteFile(path, []byte("[generation]\ntemperature = -3.0\n"), 0o644)).To(Succeed())
		Expect(os.WriteFile(path, []byte("[generation]\ntemperature = 0.9\n"), 0o644)).To(Succeed())

		Eventually(func() float64 {
			select {
			case got := <-reloads:
				s = got
			default:
			}
			return s.Generation.Temperature
		}, "5s").Should(Equal(0.9))

		cancel()
		Eventually(done, "5s").Should(Receive(MatchError(context.Canceled)))
	})
})
