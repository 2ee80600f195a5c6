package sqlite_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/megaman333/Clover-Edition/pkg/storage/sqlite"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *sqlite.Store
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		store, err = sqlite.NewStore(":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	record := func(id string) *sqlite.StoryRecord {
		return &sqlite.StoryRecord{
			ID:        id,
			Title:     "The Drowned Keep",
			Context:   "You are a knight errant in a flooded kingdom.",
			Opening:   "Rain hammers the battlements as you arrive.",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
			Turns: []sqlite.Turn{
				{Action: "\n> You draw your sword.\n", Result: "Steel rings in the dark."},
				{Action: "\n> You call out.\n", Result: "Only the rain answers."},
			},
		}
	}

	It("round-trips a story with its turns in order", func() {
		rec := record("s1")
		Expect(store.Save(ctx, rec)).To(Succeed())

		got, err := store.Load(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal(rec.Title))
		Expect(got.Context).To(Equal(rec.Context))
		Expect(got.Opening).To(Equal(rec.Opening))
		Expect(got.Turns).To(Equal(rec.Turns))
	})

	It("replaces a story saved under the same ID", func() {
		rec := record("s1")
		Expect(store.Save(ctx, rec)).To(Succeed())

		rec.Turns = rec.Turns[:1]
		rec.Title = "The Drowned Keep, Revised"
		Expect(store.Save(ctx, rec)).To(Succeed())

		got, err := store.Load(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("The Drowned Keep, Revised"))
		Expect(got.Turns).To(HaveLen(1))
	})

	It("reports a missing story", func() {
		_, err := store.Load(ctx, "absent")
		Expect(err).To(MatchError(sqlite.ErrNotFound{ID: "absent"}))
	})

	It("lists stories newest first without their turns", func() {
		older := record("s1")
		older.CreatedAt = older.CreatedAt.Add(-time.Hour)
		Expect(store.Save(ctx, older)).To(Succeed())
		Expect(store.Save(ctx, record("s2"))).To(Succeed())

		recs, err := store.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].ID).To(Equal("s2"))
		Expect(recs[1].ID).To(Equal("s1"))
		Expect(recs[0].Turns).To(BeEmpty())
	})

	It("deletes a story", func() {
		Expect(store.Save(ctx, record("s1"))).To(Succeed())
		Expect(store.Delete(ctx, "s1")).To(Succeed())

		_, err := store.Load(ctx, "s1")
		Expect(err).To(MatchError(sqlite.ErrNotFound{ID: "s1"}))
	})

	It("reports deleting a missing story", func() {
		Expect(store.Delete(ctx, "absent")).To(MatchError(sqlite.ErrNotFound{ID: "absent"}))
	})
})
