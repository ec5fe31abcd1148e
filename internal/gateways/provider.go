package gateway

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

const latencyWindow = 100

// ProviderMetrics tracks capture outcomes for one processor endpoint.
type ProviderMetrics struct {
	Captures         atomic.Int64
	Succeeded        atomic.Int64
	Errored          atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorAt      atomic.Int64
	LastSuccessAt    atomic.Int64

	mu        sync.Mutex
	latencies []int64
}

func NewProviderMetrics() *ProviderMetrics {
	return &ProviderMetrics{latencies: make([]int64, 0, latencyWindow)}
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.Captures.Add(1)
	m.Succeeded.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessAt.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencies) == latencyWindow {
		m.latencies = append(m.latencies[:0], m.latencies[1:]...)
	}
	m.latencies = append(m.latencies, latencyMs)
	m.mu.Unlock()
}

func (m *ProviderMetrics) RecordFailure() {
	m.Captures.Add(1)
	m.Errored.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorAt.Store(time.Now().Unix())
}

// AvgLatencyMs averages over successful captures only.
func (m *ProviderMetrics) AvgLatencyMs() int64 {
	ok := m.Succeeded.Load()
	if ok == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / ok
}

func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.Captures.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.Succeeded.Load()) / float64(total)
}

func (m *ProviderMetrics) P95LatencyMs() int64 {
	m.mu.Lock()
	sorted := append([]int64(nil), m.latencies...)
	m.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type ProviderState int32

const (
	StateHealthy ProviderState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

func (s ProviderState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Provider is one processor endpoint behind the capture client.
type Provider struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *ProviderMetrics
	state            atomic.Int32
	weight           int32
	lastHealthCheck  atomic.Int64
	circuitOpenUntil atomic.Int64
}

func NewProvider(name, url string, weight int, client *fasthttp.Client) *Provider {
	p := &Provider{
		name:    name,
		url:     url,
		client:  client,
		weight:  int32(weight),
		metrics: NewProviderMetrics(),
	}
	p.state.Store(int32(StateHealthy))
	return p
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) GetState() ProviderState {
	return ProviderState(p.state.Load())
}

func (p *Provider) SetState(state ProviderState) {
	p.state.Store(int32(state))
}

// IsAvailable half-opens an expired circuit as Degraded.
func (p *Provider) IsAvailable() bool {
	switch p.GetState() {
	case StateUnhealthy:
		return false
	case StateCircuitOpen:
		if time.Now().Unix() <= p.circuitOpenUntil.Load() {
			return false
		}
		p.SetState(StateDegraded)
	}
	return true
}

func (p *Provider) openCircuit(d time.Duration) {
	p.circuitOpenUntil.Store(time.Now().Add(d).Unix())
	p.SetState(StateCircuitOpen)
}

// Score ranks providers for selection, higher is better.
// Success rate and latency carry 40% each, the configured weight 20%.
func (p *Provider) Score() float64 {
	if !p.IsAvailable() {
		return 0
	}

	success := p.metrics.SuccessRate() * 100

	latency := 100.0
	if avg := p.metrics.AvgLatencyMs(); avg > 0 {
		latency = 100 * (1 - float64(avg)/5000)
		if latency < 0 {
			latency = 0
		}
	}

	penalty := 1 - float64(p.metrics.ConsecutiveFails.Load())*0.1
	if penalty < 0.1 {
		penalty = 0.1
	}
	if p.GetState() == StateDegraded {
		penalty *= 0.5
	}

	return (success*0.4 + latency*0.4 + float64(p.weight)*0.2) * penalty
}
