// Package monitoring turns a running simulation into an HTTP server, so that
// an external observer can inspect and control it.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/elevsim/monitoring/web"
	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	kernel     *sim.Kernel
	buses      []*network.Scheduler
	portNumber int
	log        *logrus.Entry
	registry   *prometheus.Registry

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor(log *logrus.Entry) *Monitor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Monitor{
		log:      log.WithField("component", "monitor"),
		registry: prometheus.NewRegistry(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.Warnf("Port number %d is assigned to the monitoring server, "+
			"which is not allowed. Using a random port instead.", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterKernel registers the kernel that is used in the simulation.
func (m *Monitor) RegisterKernel(k *sim.Kernel) {
	m.kernel = k
}

// RegisterBus registers a bus to be monitored and exports its metrics.
func (m *Monitor) RegisterBus(s *network.Scheduler) error {
	for _, b := range m.buses {
		if b.Name() == s.Name() {
			return fmt.Errorf("%w: bus %s is already monitored",
				sim.ErrInvalidArgument, s.Name())
		}
	}

	if err := m.registry.Register(NewBusCollector(s)); err != nil {
		return err
	}

	m.buses = append(m.buses, s)

	return nil
}

// Registry returns the registry that backs the metrics endpoint.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.resume).Methods(http.MethodPost)
	r.HandleFunc("/api/step", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/rate", m.rate).Methods(http.MethodGet)
	r.HandleFunc("/api/rate", m.setRate).Methods(http.MethodPost)
	r.HandleFunc("/api/breakpoint", m.listBreakpoints).Methods(http.MethodGet)
	r.HandleFunc("/api/breakpoint/{time}", m.addBreakpoint).
		Methods(http.MethodPost)
	r.HandleFunc("/api/breakpoint/{time}", m.removeBreakpoint).
		Methods(http.MethodDelete)
	r.HandleFunc("/api/bus", m.listBuses).Methods(http.MethodGet)
	r.HandleFunc("/api/bus/{name}", m.busDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/faultmodels", m.listFaultModels).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// Listen opens the port of the monitor and returns the address it listens on.
func (m *Monitor) Listen() (string, error) {
	if m.kernel == nil {
		return "", errors.New("monitoring: no kernel registered")
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitoring: %w", err)
	}

	m.listener = listener
	addr := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.log.WithField("url", addr).Info("monitoring simulation")

	return addr, nil
}

// Serve answers requests until the context is done. Listen must be called
// first.
func (m *Monitor) Serve(ctx context.Context) error {
	if m.listener == nil {
		return errors.New("monitoring: Serve called before Listen")
	}

	server := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Serve(m.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

// observe runs f while the kernel is not releasing events.
func (m *Monitor) observe(f func()) {
	m.kernel.InterleaveLock()
	defer m.kernel.InterleaveUnlock()

	f()
}

type nowRsp struct {
	Now     float64 `json:"now"`
	NowNS   int64   `json:"now_ns"`
	Paused  bool    `json:"paused"`
	Blocked bool    `json:"blocked"`
	Rate    string  `json:"rate"`
}

func formatRate(rate float64) string {
	if math.IsInf(rate, 1) {
		return "inf"
	}

	return strconv.FormatFloat(rate, 'g', -1, 64)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	var rsp nowRsp

	m.observe(func() {
		now := m.kernel.Now()
		rate := m.kernel.RealtimeRate()
		rsp = nowRsp{
			Now:     now.Seconds(),
			NowNS:   int64(now),
			Paused:  rate == 0,
			Blocked: m.kernel.IsPaused(),
			Rate:    formatRate(rate),
		}
	})

	m.writeJSON(w, rsp)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.kernel.Pause()
	m.log.Info("paused by monitor")
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) resume(w http.ResponseWriter, _ *http.Request) {
	m.kernel.Continue()
	m.log.Info("continued by monitor")
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	if m.kernel.RealtimeRate() != 0 {
		http.Error(w, "the simulation is not paused", http.StatusConflict)
		return
	}

	m.kernel.Proceed()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) rate(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, map[string]string{
		"rate": formatRate(m.kernel.RealtimeRate()),
	})
}

func (m *Monitor) setRate(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")

	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid rate %q", value),
			http.StatusBadRequest)

		return
	}

	if err := m.kernel.SetRealtimeRate(rate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.log.WithField("rate", formatRate(rate)).Info("rate set by monitor")
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) parseTime(w http.ResponseWriter, r *http.Request) (
	sim.VTime,
	bool,
) {
	t, err := sim.ParseVTime(mux.Vars(r)["time"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}

	return t, true
}

func (m *Monitor) listBreakpoints(w http.ResponseWriter, _ *http.Request) {
	bps := m.kernel.Breakpoints()

	out := make([]string, 0, len(bps))
	for _, t := range bps {
		out = append(out, t.String())
	}

	m.writeJSON(w, out)
}

func (m *Monitor) addBreakpoint(w http.ResponseWriter, r *http.Request) {
	t, ok := m.parseTime(w, r)
	if !ok {
		return
	}

	if !m.kernel.AddBreakpoint(t) {
		http.Error(w, fmt.Sprintf("cannot add a breakpoint at %s", t),
			http.StatusConflict)

		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (m *Monitor) removeBreakpoint(w http.ResponseWriter, r *http.Request) {
	t, ok := m.parseTime(w, r)
	if !ok {
		return
	}

	if !m.kernel.RemoveBreakpoint(t) {
		http.Error(w, fmt.Sprintf("no breakpoint at %s", t),
			http.StatusNotFound)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BusSummary is the state of a bus as the monitor reports it.
type BusSummary struct {
	Name        string                    `json:"name"`
	BitTimeNS   int64                     `json:"bit_time_ns"`
	QueueLen    int                       `json:"queue_len"`
	Sending     string                    `json:"sending,omitempty"`
	Stats       network.Stats             `json:"stats"`
	Utilization network.UtilizationReport `json:"utilization"`
}

func summarize(s *network.Scheduler) BusSummary {
	summary := BusSummary{
		Name:        s.Name(),
		BitTimeNS:   int64(s.BitTime()),
		QueueLen:    s.QueueLen(),
		Stats:       s.Stats(),
		Utilization: s.Utilization().Report(),
	}

	if p := s.Current(); p != nil {
		summary.Sending = describe(p)
	}

	return summary
}

func (m *Monitor) listBuses(w http.ResponseWriter, _ *http.Request) {
	var out []BusSummary

	m.observe(func() {
		out = make([]BusSummary, 0, len(m.buses))
		for _, b := range m.buses {
			out = append(out, summarize(b))
		}
	})

	m.writeJSON(w, out)
}

func (m *Monitor) findBusOr404(
	w http.ResponseWriter,
	name string,
) *network.Scheduler {
	for _, b := range m.buses {
		if b.Name() == name {
			return b
		}
	}

	http.Error(w, "Bus not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) busDetails(w http.ResponseWriter, r *http.Request) {
	bus := m.findBusOr404(w, mux.Vars(r)["name"])
	if bus == nil {
		return
	}

	buf := bytes.NewBuffer(nil)

	var err error

	m.observe(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(bus)
		serializer.SetMaxDepth(1)
		err = serializer.Serialize(buf)
	})

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(buf.Bytes())
	m.logOnErr(err)
}

// FaultModelSummary describes a fault model registered on a bus.
type FaultModelSummary struct {
	Bus    string `json:"bus"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Report string `json:"report,omitempty"`
}

func (m *Monitor) listFaultModels(w http.ResponseWriter, _ *http.Request) {
	var out []FaultModelSummary

	m.observe(func() {
		out = []FaultModelSummary{}

		for _, b := range m.buses {
			for _, fm := range b.FaultModels() {
				s := FaultModelSummary{
					Bus:  b.Name(),
					Name: fm.Name(),
					Kind: fm.Kind().String(),
				}

				if r, ok := fm.(network.Summarizer); ok {
					s.Report = r.Report()
				}

				out = append(out, s)
			}
		}
	})

	m.writeJSON(w, out)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBarSnapshot, 0, len(m.progressBars))

	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].StartTime.Before(bars[j].StartTime)
	})

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memorySize, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.log.WithError(err).Error("cannot encode response")
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	m.logOnErr(err)
}

func (m *Monitor) logOnErr(err error) {
	if err != nil {
		m.log.WithError(err).Warn("cannot write response")
	}
}

func describe(p network.Payload) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}

	return p.Meta().Channel.String()
}
