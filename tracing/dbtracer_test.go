package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/datarecording"
	"github.com/sarchlab/elevsim/sim"
)

var _ = Describe("DBTracer", func() {
	var (
		path     string
		recorder datarecording.DataRecorder
		tracer   *DBTracer
	)

	BeforeEach(func() {
		var err error

		path = filepath.Join(GinkgoT().TempDir(), "trace")
		recorder, err = datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())

		tracer, err = NewDBTracer(recorder, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(recorder.Close()).To(Succeed())
	})

	readBack := func() []*MessageRecord {
		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(DefaultTableName, MessageRecord{})

		results, _, err := reader.Query(context.Background(),
			DefaultTableName, datarecording.QueryParams{OrderBy: "TimeNS"})
		Expect(err).NotTo(HaveOccurred())

		out := make([]*MessageRecord, 0, len(results))
		for _, r := range results {
			out = append(out, r.(*MessageRecord))
		}

		return out
	}

	It("should create the table", func() {
		Expect(recorder.ListTables()).To(ContainElement(DefaultTableName))
		Expect(tracer.Table()).To(Equal(DefaultTableName))
	})

	It("should store the records of a bus", func() {
		k, bus, tx := newBus()
		CollectTrace(bus, tracer)

		send(tx, 3, 100)
		Expect(k.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(tracer.Flush()).To(Succeed())

		records := readBack()
		Expect(records).To(HaveLen(3))
		Expect(tracer.Count()).To(Equal(uint64(3)))
		Expect(records[2].Event).To(Equal(EventDeliver))
		Expect(records[2].TimeNS).To(Equal(int64(100 * sim.Microsecond)))
		Expect(records[2].Bus).To(Equal("bus"))
	})

	It("should only store the records in the time range", func() {
		k, bus, tx := newBus()
		tracer.SetTimeRange(50*sim.Microsecond, sim.Forever)
		CollectTrace(bus, tracer)

		send(tx, 3, 100)
		Expect(k.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(tracer.Flush()).To(Succeed())

		records := readBack()
		Expect(records).To(HaveLen(1))
		Expect(records[0].Event).To(Equal(EventDeliver))
	})

	It("should only store the records the filter accepts", func() {
		k, bus, tx := newBus()
		tracer.SetFilter(func(rec MessageRecord) bool {
			return rec.Event == EventEnqueue
		})
		CollectTrace(bus, tracer)

		send(tx, 3, 100)
		send(tx, 4, 100)
		Expect(k.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(tracer.Flush()).To(Succeed())

		Expect(readBack()).To(HaveLen(2))
	})
})
