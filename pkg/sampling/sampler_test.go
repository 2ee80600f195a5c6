package sampling_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/megaman333/Clover-Edition/pkg/random"
	"github.com/megaman333/Clover-Edition/pkg/sampling"
	"github.com/megaman333/Clover-Edition/pkg/token"
)

// fixedSource plays back a scripted Float64 sequence.
type fixedSource struct {
	values []float64
	next   int
}

func (f *fixedSource) Float64() float64 {
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}

func (f *fixedSource) Intn(n int) int { return int(f.Float64() * float64(n)) }

var _ = Describe("Sample", func() {
	It("fails on an empty candidate set", func() {
		_, err := sampling.Sample(token.NewDistribution(3), &fixedSource{values: []float64{0.5}})
		Expect(err).To(MatchError(sampling.ErrEmptyCandidateSet))
	})

	It("never returns a token with zero mass", func() {
		dist := token.Distribution{0, 1, 0, 1, 0}

		for _, v := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
			id, err := sampling.Sample(dist, &fixedSource{values: []float64{v}})
			Expect(err).NotTo(HaveOccurred())
			Expect(dist[id]).To(BeNumerically(">", 0))
		}
	})

	It("maps the uniform draw through the cumulative distribution", func() {
		dist := token.Distribution{0.5, 0.3, 0.2}

		id, err := sampling.Sample(dist, &fixedSource{values: []float64{0.1}})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(token.ID(0)))

		id, err = sampling.Sample(dist, &fixedSource{values: []float64{0.6}})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(token.ID(1)))

		id, err = sampling.Sample(dist, &fixedSource{values: []float64{0.95}})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(token.ID(2)))
	})

	It("is reproducible under a fixed seed", func() {
		dist := token.Distribution{1, 2, 3, 4}

		first := make([]token.ID, 10)
		for i := range first {
			id, err := sampling.Sample(dist, random.NewSource(42))
			Expect(err).NotTo(HaveOccurred())
			first[i] = id
		}

		for i := range first {
			id, err := sampling.Sample(dist, random.NewSource(42))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(first[i]))
		}
	})

	It("handles unnormalized score mass", func() {
		dist := token.Distribution{10, 30}

		id, err := sampling.Sample(dist, &fixedSource{values: []float64{0.5}})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(token.ID(1)))
	})
})
