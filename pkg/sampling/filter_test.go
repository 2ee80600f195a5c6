package sampling_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/megaman333/Clover-Edition/pkg/sampling"
	"github.com/megaman333/Clover-Edition/pkg/token"
)

var _ = Describe("Filter", func() {
	It("rejects a non-positive temperature", func() {
		_, err := sampling.Filter(token.Distribution{1, 1}, 0, 0, 1.0)

		var ice sampling.InvalidConfigError
		Expect(err).To(BeAssignableToTypeOf(ice))
		Expect(err.Error()).To(ContainSubstring("temperature"))
	})

	It("rejects a top-p outside (0, 1]", func() {
		_, err := sampling.Filter(token.Distribution{1, 1}, 1.0, 0, 0)
		Expect(err).To(HaveOccurred())

		_, err = sampling.Filter(token.Distribution{1, 1}, 1.0, 0, 1.5)
		Expect(err).To(HaveOccurred())
	})

	Context("with topK=0 and topP=1.0", func() {
		It("is a no-op up to renormalization", func() {
			dist := token.Distribution{2, 6, 2}

			out, err := sampling.Filter(dist, 1.0, 0, 1.0)
			Expect(err).NotTo(HaveOccurred())

			Expect(out[0]).To(BeNumerically("~", 0.2, 1e-9))
			Expect(out[1]).To(BeNumerically("~", 0.6, 1e-9))
			Expect(out[2]).To(BeNumerically("~", 0.2, 1e-9))
		})

		It("does not mutate the input distribution", func() {
			dist := token.Distribution{2, 6, 2}

			_, err := sampling.Filter(dist, 0.5, 0, 1.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(dist).To(Equal(token.Distribution{2, 6, 2}))
		})
	})

	Context("temperature", func() {
		It("sharpens toward the highest-scoring token as temperature falls", func() {
			dist := token.Distribution{1, 2, 1}

			cool, err := sampling.Filter(dist, 0.25, 0, 1.0)
			Expect(err).NotTo(HaveOccurred())
			warm, err := sampling.Filter(dist, 1.0, 0, 1.0)
			Expect(err).NotTo(HaveOccurred())

			Expect(cool[1]).To(BeNumerically(">", warm[1]))
		})

		It("flattens toward uniform as temperature grows", func() {
			dist := token.Distribution{1, 8, 1}

			hot, err := sampling.Filter(dist, 100, 0, 1.0)
			Expect(err).NotTo(HaveOccurred())

			Expect(hot[0]).To(BeNumerically("~", hot[1], 0.05))
			Expect(hot[1]).To(BeNumerically("~", hot[2], 0.05))
		})
	})

	Context("top-k", func() {
		It("keeps only the k highest-scoring tokens", func() {
			dist := token.Distribution{1, 5, 3, 2}

			out, err := sampling.Filter(dist, 1.0, 2, 1.0)
			Expect(err).NotTo(HaveOccurred())

			Expect(out[0]).To(BeZero())
			Expect(out[3]).To(BeZero())
			Expect(out[1]).To(BeNumerically(">", 0))
			Expect(out[2]).To(BeNumerically(">", 0))
		})

		It("breaks ties by vocabulary order", func() {
			dist := token.Distribution{2, 2, 2, 2}

			out, err := sampling.Filter(dist, 1.0, 2, 1.0)
			Expect(err).NotTo(HaveOccurred())

			Expect(out[0]).To(BeNumerically(">", 0))
			Expect(out[1]).To(BeNumerically(">", 0))
			Expect(out[2]).To(BeZero())
			Expect(out[3]).To(BeZero())
		})
	})

	Context("top-p", func() {
		It("keeps the smallest prefix whose cumulative mass reaches p", func() {
			dist := token.Distribution{0.5, 0.3, 0.1, 0.1}

			out, err := sampling.Filter(dist, 1.0, 0, 0.75)
			Expect(err).NotTo(HaveOccurred())

			Expect(out[0]).To(BeNumerically(">", 0))
			Expect(out[1]).To(BeNumerically(">", 0))
			Expect(out[2]).To(BeZero())
			Expect(out[3]).To(BeZero())
		})

		It("never widens the set top-k already narrowed", func() {
			dist := token.Distribution{5, 4, 3, 2, 1}

			out, err := sampling.Filter(dist, 1.0, 2, 0.99)
			Expect(err).NotTo(HaveOccurred())

			survivors := 0
			for _, s := range out {
				if s > 0 {
					survivors++
				}
			}
			Expect(survivors).To(BeNumerically("<=", 2))
		})
	})

	Context("with a degenerate all-zero distribution", func() {
		It("falls back to uniform over the full vocabulary", func() {
			dist := token.NewDistribution(4)

			out, err := sampling.Filter(dist, 1.0, 2, 0.5)
			Expect(err).NotTo(HaveOccurred())

			for _, s := range out {
				Expect(s).To(BeNumerically("~", 0.25, 1e-9))
			}
		})
	})

	It("always renormalizes the survivors to unit mass", func() {
		dist := token.Distribution{3, 1, 4, 1, 5}

		out, err := sampling.Filter(dist, 0.7, 3, 0.9)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Mass()).To(BeNumerically("~", 1.0, 1e-9))
	})
})
