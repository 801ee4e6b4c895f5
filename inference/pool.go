package inference

import (
	"fmt"
	"sync/atomic"
)

// Pool fans Predict calls out across multiple Client sessions
// round-robin. Each client runs its own batching loop, so sessions can
// execute in parallel on the GPU.
type Pool struct {
	clients []*Client
	rr      atomic.Uint64
}

// NewClientPool creates sessions clients for the model at modelPath.
func NewClientPool(modelPath string, sessions int) (*Pool, error) {
	return NewClientPoolWithConfig(modelPath, sessions, ClientConfig{BatchSize: DefaultBatchSize, BatchTimeout: DefaultBatchTimeout})
}

func NewClientPoolWithConfig(modelPath string, sessions int, cfg ClientConfig) (*Pool, error) {
	if sessions <= 0 {
		sessions = 1
	}

	clients := make([]*Client, 0, sessions)
	for i := 0; i < sessions; i++ {
		c, err := NewClientWithConfig(modelPath, cfg)
		if err != nil {
			for _, created := range clients {
				_ = created.Close()
			}
			return nil, fmt.Errorf("create onnx client %d/%d: %w", i+1, sessions, err)
		}
		clients = append(clients, c)
	}
	return &Pool{clients: clients}, nil
}

func (p *Pool) Close() error {
	var firstErr error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pool) Predict(obs []float32) ([]float32, error) {
	if len(p.clients) == 0 {
		return nil, fmt.Errorf("pool has no clients")
	}
	idx := int(p.rr.Add(1)-1) % len(p.clients)
	return p.clients[idx].Predict(obs)
}

// Stats aggregates counters across all sessions.
func (p *Pool) Stats() RuntimeStats {
	var out RuntimeStats
	for _, c := range p.clients {
		st := c.Stats()
		out.TotalBatches += st.TotalBatches
		out.TotalItems += st.TotalItems
		out.TotalRunNanos += st.TotalRunNanos
		out.QueueLen += st.QueueLen
		if st.LastBatchSize > out.LastBatchSize {
			out.LastBatchSize = st.LastBatchSize
		}
	}
	if out.TotalBatches > 0 {
		out.AvgBatchSize = float64(out.TotalItems) / float64(out.TotalBatches)
		out.AvgRunMs = (float64(out.TotalRunNanos) / 1e6) / float64(out.TotalBatches)
	}
	return out
}
