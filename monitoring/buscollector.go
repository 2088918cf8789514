package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

const namespace = "elevsim"

// A BusCollector exports the state of a bus as Prometheus metrics. The
// message counters are fed by a hook on the bus, the gauges are read from the
// bus when the metrics are collected.
type BusCollector struct {
	bus *network.Scheduler

	messages *prometheus.CounterVec
	bits     prometheus.Counter

	queueLen    *prometheus.Desc
	utilization *prometheus.Desc
	stats       *prometheus.Desc
	deadlines   *prometheus.Desc
}

// NewBusCollector creates a collector and hooks it to the bus.
func NewBusCollector(bus *network.Scheduler) *BusCollector {
	labels := prometheus.Labels{"bus": bus.Name()}

	c := &BusCollector{
		bus: bus,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bus_messages_total",
			Help:        "Payloads seen on the bus, by event and type.",
			ConstLabels: labels,
		}, []string{"event", "type"}),
		bits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bus_transmitted_bits_total",
			Help:        "Bits of the payloads that started a transmission.",
			ConstLabels: labels,
		}),
		queueLen: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "queue_length"),
			"Payloads waiting for the bus.",
			nil, labels),
		utilization: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "utilization_ratio"),
			"Fraction of the time the bus is busy.",
			[]string{"window"}, labels),
		stats: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "payloads"),
			"Payload counters of the scheduler.",
			[]string{"outcome"}, labels),
		deadlines: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "deadlines_missed"),
			"Periodic payloads that missed their deadline.",
			nil, labels),
	}

	bus.AcceptHook(c)

	return c
}

// Func counts the payloads as the bus handles them.
func (c *BusCollector) Func(ctx sim.HookCtx) {
	p, ok := ctx.Item.(network.Payload)
	if !ok {
		return
	}

	msgType := strconv.Itoa(p.Meta().Channel.Type)
	c.messages.WithLabelValues(ctx.Pos.Name, msgType).Inc()

	if d, ok := ctx.Detail.(network.TxStartDetail); ok {
		c.bits.Add(float64(d.Bits))
	}
}

// Describe sends the descriptors of the metrics.
func (c *BusCollector) Describe(ch chan<- *prometheus.Desc) {
	c.messages.Describe(ch)
	c.bits.Describe(ch)
	ch <- c.queueLen
	ch <- c.utilization
	ch <- c.stats
	ch <- c.deadlines
}

// Collect reads the bus. It waits for the kernel to finish the event being
// released.
func (c *BusCollector) Collect(ch chan<- prometheus.Metric) {
	k := c.bus.Kernel()
	k.InterleaveLock()
	stats := c.bus.Stats()
	queueLen := c.bus.QueueLen()
	util := c.bus.Utilization().Report()
	k.InterleaveUnlock()

	c.messages.Collect(ch)
	c.bits.Collect(ch)

	ch <- prometheus.MustNewConstMetric(c.queueLen,
		prometheus.GaugeValue, float64(queueLen))

	if util.Overall >= 0 {
		ch <- prometheus.MustNewConstMetric(c.utilization,
			prometheus.GaugeValue, util.Recent, "recent")
		ch <- prometheus.MustNewConstMetric(c.utilization,
			prometheus.GaugeValue, util.Max, "max")
		ch <- prometheus.MustNewConstMetric(c.utilization,
			prometheus.GaugeValue, util.Overall, "overall")
	}

	outcomes := []struct {
		name  string
		value uint64
	}{
		{"enqueued", stats.Enqueued},
		{"started", stats.Started},
		{"delivered", stats.Delivered},
		{"dropped_at_start", stats.DroppedAtStart},
		{"dropped_at_delivery", stats.DroppedAtDelivery},
		{"aborted", stats.Aborted},
	}
	for _, o := range outcomes {
		ch <- prometheus.MustNewConstMetric(c.stats,
			prometheus.CounterValue, float64(o.value), o.name)
	}

	ch <- prometheus.MustNewConstMetric(c.deadlines,
		prometheus.CounterValue, float64(stats.DeadlinesMissed))
}
