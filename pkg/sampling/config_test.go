package sampling_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/megaman333/Clover-Edition/pkg/sampling"
)

func validConfig() sampling.Config {
	return sampling.Config{
		Temperature:       0.4,
		RepetitionPenalty: 1.1,
		RepetitionWindow:  256,
		TopK:              40,
		TopP:              0.9,
		MaxNewTokens:      60,
		MinLength:         2,
	}
}

var _ = Describe("Config", func() {
	It("accepts a sane configuration", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejects out-of-range values naming the key",
		func(mutate func(*sampling.Config), key string) {
			cfg := validConfig()
			mutate(&cfg)

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())

			var ice sampling.InvalidConfigError
			Expect(err).To(BeAssignableToTypeOf(ice))
			Expect(err.Error()).To(ContainSubstring(key))
		},
		Entry("zero temperature", func(c *sampling.Config) { c.Temperature = 0 }, "temperature"),
		Entry("negative temperature", func(c *sampling.Config) { c.Temperature = -0.5 }, "temperature"),
		Entry("negative repetition penalty", func(c *sampling.Config) { c.RepetitionPenalty = -1 }, "repetition-penalty"),
		Entry("negative repetition window", func(c *sampling.Config) { c.RepetitionWindow = -1 }, "repetition-window"),
		Entry("negative top-k", func(c *sampling.Config) { c.TopK = -1 }, "top-k"),
		Entry("zero top-p", func(c *sampling.Config) { c.TopP = 0 }, "top-p"),
		Entry("top-p above one", func(c *sampling.Config) { c.TopP = 1.1 }, "top-p"),
		Entry("zero max new tokens", func(c *sampling.Config) { c.MaxNewTokens = 0 }, "max-new-tokens"),
		Entry("negative min length", func(c *sampling.Config) { c.MinLength = -1 }, "min-length"),
	)
})
