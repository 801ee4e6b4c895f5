// Package inference runs the exported maze DQN through ONNX Runtime.
//
// The model contract matches the training-side export: input "obs" with
// shape [batch, 18], output "q" with shape [batch, 6] (one action-value
// per direction). Requests from concurrent rollout workers are batched
// to keep the runtime busy.
package inference

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/maze3d/env"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	InputSize  = env.ObsSize
	OutputSize = env.NumActions
)

const (
	DefaultBatchSize    = 64
	DefaultBatchTimeout = 1 * time.Millisecond
)

// ClientConfig tunes request batching.
type ClientConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
}

type request struct {
	obs      []float32
	respChan chan response
}

type response struct {
	q   []float32
	err error
}

// RuntimeStats is a snapshot of batching behavior, for dashboards.
type RuntimeStats struct {
	TotalBatches  int64
	TotalItems    int64
	TotalRunNanos int64
	LastBatchSize int64
	QueueLen      int
	AvgBatchSize  float64
	AvgRunMs      float64
}

// Client owns one ONNX Runtime session plus a batching loop.
type Client struct {
	session      *ort.DynamicAdvancedSession
	requestsChan chan request
	cfg          ClientConfig

	totalBatches  atomic.Int64
	totalItems    atomic.Int64
	totalRunNanos atomic.Int64
	lastBatchSize atomic.Int64
}

var ortInitOnce sync.Once
var ortInitErr error

// NewClient loads the model at modelPath with default batching config.
func NewClient(modelPath string) (*Client, error) {
	return NewClientWithConfig(modelPath, ClientConfig{BatchSize: DefaultBatchSize, BatchTimeout: DefaultBatchTimeout})
}

func NewClientWithConfig(modelPath string, cfg ClientConfig) (*Client, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			cwd, _ := os.Getwd()
			candidates := []string{
				"libonnxruntime.so",
				"libonnxruntime.so.1",
			}
			for _, name := range candidates {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}

	// ORT environment init is process-global.
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	// Workers provide the parallelism; keep the runtime single-threaded
	// per session to avoid contention.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	if os.Getenv("MAZE3D_ORT_DISABLE_CUDA") == "" {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err == nil {
			defer cudaOptions.Destroy()
			if err := options.AppendExecutionProviderCUDA(cudaOptions); err == nil {
				fmt.Println("CUDA provider enabled")
			}
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{"obs"}, []string{"q"}, options)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c := &Client{
		session:      session,
		cfg:          cfg,
		requestsChan: make(chan request, cfg.BatchSize*2),
	}
	go c.batchLoop()
	return c, nil
}

func (c *Client) Close() error {
	return c.session.Destroy()
}

// Predict returns the q-values for one observation. Safe for concurrent
// use; calls block until their batch completes.
func (c *Client) Predict(obs []float32) ([]float32, error) {
	if len(obs) != InputSize {
		return nil, fmt.Errorf("observation has %d values, want %d", len(obs), InputSize)
	}

	input := make([]float32, InputSize)
	copy(input, obs)

	respChan := make(chan response, 1)
	c.requestsChan <- request{obs: input, respChan: respChan}

	resp := <-respChan
	return resp.q, resp.err
}

// Stats returns a snapshot of batching counters.
func (c *Client) Stats() RuntimeStats {
	batches := c.totalBatches.Load()
	items := c.totalItems.Load()
	runNanos := c.totalRunNanos.Load()

	st := RuntimeStats{
		TotalBatches:  batches,
		TotalItems:    items,
		TotalRunNanos: runNanos,
		LastBatchSize: c.lastBatchSize.Load(),
		QueueLen:      len(c.requestsChan),
	}
	if batches > 0 {
		st.AvgBatchSize = float64(items) / float64(batches)
		st.AvgRunMs = (float64(runNanos) / 1e6) / float64(batches)
	}
	return st
}

func (c *Client) batchLoop() {
	batchInput := make([]float32, 0, c.cfg.BatchSize*InputSize)
	requests := make([]request, 0, c.cfg.BatchSize)

	ticker := time.NewTicker(c.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case req := <-c.requestsChan:
			requests = append(requests, req)
			batchInput = append(batchInput, req.obs...)

			if len(requests) >= c.cfg.BatchSize {
				c.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		case <-ticker.C:
			if len(requests) > 0 {
				c.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		}
	}
}

func (c *Client) runBatch(requests []request, batchInput []float32) {
	start := time.Now()
	n := int64(len(requests))

	inputTensor, err := ort.NewTensor(ort.NewShape(n, InputSize), batchInput)
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer inputTensor.Destroy()

	qTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, OutputSize))
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer qTensor.Destroy()

	if err := c.session.Run([]ort.Value{inputTensor}, []ort.Value{qTensor}); err != nil {
		c.failBatch(requests, err)
		return
	}

	qData := qTensor.GetData()
	for i, req := range requests {
		q := make([]float32, OutputSize)
		copy(q, qData[i*OutputSize:(i+1)*OutputSize])
		req.respChan <- response{q: q}
	}

	c.totalBatches.Add(1)
	c.totalItems.Add(n)
	c.totalRunNanos.Add(time.Since(start).Nanoseconds())
	c.lastBatchSize.Store(n)
}

func (c *Client) failBatch(requests []request, err error) {
	for _, req := range requests {
		req.respChan <- response{err: err}
	}
}
