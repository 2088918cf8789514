package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/datarecording"
	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

var _ = Describe("Summarize", func() {
	It("should count the events of each channel", func() {
		k, bus, tx := newBus()
		Expect(bus.RegisterFaultModel(&dropType{msgType: 4})).To(Succeed())

		var records []MessageRecord
		bus.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if rec, ok := RecordFromHook(ctx); ok {
				records = append(records, rec)
			}
		}))

		send(tx, 4, 100)
		send(tx, 3, 100)
		send(tx, 3, 50)
		Expect(k.RunUntil(sim.Millisecond)).To(Succeed())

		summaries := Summarize(records)
		Expect(summaries).To(HaveLen(2))

		three := summaries[0]
		Expect(three.Bus).To(Equal("bus"))
		Expect(three.Channel).To(Equal(network.Channel{Type: 3}))
		Expect(three.Enqueued).To(Equal(2))
		Expect(three.Started).To(Equal(2))
		Expect(three.Delivered).To(Equal(2))
		Expect(three.Bits).To(Equal(150))
		Expect(three.First).To(Equal(sim.Zero))
		Expect(three.Last).To(Equal(150 * sim.Microsecond))

		four := summaries[1]
		Expect(four.Enqueued).To(Equal(1))
		Expect(four.Dropped).To(Equal(1))
		Expect(four.Delivered).To(BeZero())
	})

	It("should read back what a DBTracer stored", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		recorder, err := datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())

		tracer, err := NewDBTracer(recorder, nil)
		Expect(err).NotTo(HaveOccurred())

		k, bus, tx := newBus()
		CollectTrace(bus, tracer)

		send(tx, 3, 100)
		send(tx, 5, 100)
		Expect(k.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(recorder.Close()).To(Succeed())

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		tables, err := reader.StoredTables(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(ContainElement(DefaultTableName))

		records, err := ReadTrace(context.Background(), reader,
			datarecording.QueryParams{
				Where: "Type = ?",
				Args:  []any{5},
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))
		Expect(records[0].Event).To(Equal(EventEnqueue))
		Expect(records[2].Event).To(Equal(EventDeliver))
		Expect(records[2].At()).To(Equal(200 * sim.Microsecond))

		summaries := Summarize(records)
		Expect(summaries).To(HaveLen(1))
		Expect(summaries[0].Delivered).To(Equal(1))
	})
})
