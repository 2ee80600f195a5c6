package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/megaman333/Clover-Edition/pkg/config"
	"github.com/megaman333/Clover-Edition/pkg/dice"
)

func writeSettings(body string) string {
	path := filepath.Join(GinkgoT().TempDir(), "config.toml")
	Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
	return path
}

var _ = Describe("Load", func() {
	It("fills unset keys from the defaults", func() {
		path := writeSettings(`
[generation]
temperature = 0.7
`)

		s, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Generation.Temperature).To(Equal(0.7))
		Expect(s.Generation.TopK).To(Equal(40))
		Expect(s.Suggestions.Count).To(Equal(4))
		Expect(s.Model.UpstreamURL).To(Equal("http://localhost:6071"))
	})

	It("reads every section", func() {
		path := writeSettings(`
[generation]
temperature = 0.5
top-k = 20
top-p = 0.8
repetition-penalty = 1.2
repetition-window = 128
max-new-tokens = 80

[suggestions]
count = 6
max-tokens = 25
temperature = 0.9
min-length = 3

[dice]
enabled = false
critical-failure-max = 2
failure-max = 8
success-max = 18

[model]
upstream-url = "http://model:9000"
seed = 42

[console]
text-wrap-width = 100
console-bell = true
`)

		s, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())

		gen := s.GenerationConfig()
		Expect(gen.Temperature).To(Equal(0.5))
		Expect(gen.TopK).To(Equal(20))
		Expect(gen.TopP).To(Equal(0.8))
		Expect(gen.RepetitionPenalty).To(Equal(1.2))
		Expect(gen.RepetitionWindow).To(Equal(128))
		Expect(gen.MaxNewTokens).To(Equal(80))

		Expect(s.Dice.Enabled).To(BeFalse())
		Expect(s.DicePolicy()).To(Equal(dice.Policy{CriticalFailureMax: 2, FailureMax: 8, SuccessMax: 18}))
		Expect(s.Model.UpstreamURL).To(Equal("http://model:9000"))
		Expect(s.Model.Seed).To(Equal(int64(42)))
		Expect(s.Console.TextWrapWidth).To(Equal(100))
		Expect(s.Console.Bell).To(BeTrue())
	})

	It("fails for a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "absent.toml"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects out-of-range values naming the key", func() {
		path := writeSettings(`
[generation]
temperature = -1.0
`)

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("temperature"))
	})

	It("prefixes suggestion keys in validation errors", func() {
		path := writeSettings(`
[suggestions]
max-tokens = 0
`)

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("suggestions.max-new-tokens"))
	})

	It("rejects a broken dice partition", func() {
		path := writeSettings(`
[dice]
failure-max = 25
`)

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("dice"))
	})
})

var _ = Describe("Settings", func() {
	It("validates the defaults", func() {
		Expect(config.Default().Validate()).To(Succeed())
	})

	It("rejects an empty upstream URL", func() {
		s := config.Default()
		s.Model.UpstreamURL = ""
		Expect(s.Validate().Error()).To(ContainSubstring("model.upstream-url"))
	})

	It("rejects a negative suggestion count", func() {
		s := config.Default()
		s.Suggestions.Count = -1
		Expect(s.Validate().Error()).To(ContainSubstring("suggestions.count"))
	})

	It("shares repetition settings between generation and suggestions", func() {
		s := config.Default()
		s.Generation.RepetitionPenalty = 1.3
		s.Generation.RepetitionWindow = 64

		sug := s.SuggestionConfig()
		Expect(sug.RepetitionPenalty).To(Equal(1.3))
		Expect(sug.RepetitionWindow).To(Equal(64))
		Expect(sug.MaxNewTokens).To(Equal(s.Suggestions.MaxTokens))
	})
})
