// Command rollout plays maze episodes in parallel and archives them as
// parquet batches for training.
//
// Each worker owns an independent environment with its own seed stream.
// Actions come from a greedy ONNX policy when a model is supplied, or a
// random baseline otherwise. A bubbletea dashboard tracks throughput;
// pass -no-tui for plain periodic logging (e.g. under nohup).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/maze3d/env"
	"github.com/brensch/maze3d/inference"
	"github.com/brensch/maze3d/logging"
	"github.com/brensch/maze3d/rollout"
	"github.com/brensch/maze3d/store"
	tea "github.com/charmbracelet/bubbletea"
)

var totalSteps atomic.Int64
var totalEpisodes atomic.Int64
var totalSolved atomic.Int64
var totalInferences atomic.Int64

// instrumentedPredictor counts inferences for the dashboard.
type instrumentedPredictor struct {
	rollout.Predictor
}

func (p *instrumentedPredictor) Predict(obs []float32) ([]float32, error) {
	totalInferences.Add(1)
	return p.Predictor.Predict(obs)
}

type EpisodeUpdate struct {
	WorkerID int
	Result   rollout.EpisodeResult
}

type writeRequest struct {
	rows []store.EpisodeRow
}

func main() {
	outDir := flag.String("out-dir", "data/episodes", "Output directory for episode parquet batches")
	workers := flag.Int("workers", 16, "Number of rollout workers")
	episodesPerFlush := flag.Int("episodes-per-flush", 100, "Episodes to buffer per parquet flush")
	maxEpisodes := flag.Int64("max-episodes", 0, "If > 0, stop after this many episodes across all workers")
	modelPath := flag.String("model", "", "ONNX model path; empty plays the random baseline")
	sx := flag.Int("sx", 11, "Maze X dimension")
	sy := flag.Int("sy", 11, "Maze Y dimension")
	sz := flag.Int("sz", 5, "Maze Z dimension")
	maxSteps := flag.Int("max-steps", 400, "Episode step limit")
	baseSeed := flag.Int64("seed", -1, "Base maze seed; worker i uses seed+i. Negative plays unseeded")
	onnxSessions := flag.Int("onnx-sessions", 1, "Number of parallel ONNX Runtime sessions")
	onnxBatchSize := flag.Int("onnx-batch-size", inference.DefaultBatchSize, "ONNX inference batch size")
	onnxBatchTimeout := flag.Duration("onnx-batch-timeout", inference.DefaultBatchTimeout, "Max wait to fill an ONNX batch")
	noTUI := flag.Bool("no-tui", false, "Disable the dashboard and log periodically instead")
	flag.Parse()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// The TUI owns stdout; logs go to a file alongside the data.
	if !*noTUI {
		logFile, err := os.OpenFile("rollout.log", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer logFile.Close()
		slog.SetDefault(slog.New(logging.NewPrettyJSONHandler(logFile, nil)))
	} else {
		slog.SetDefault(slog.New(logging.NewPrettyJSONHandler(os.Stdout, nil)))
	}

	var predictor rollout.Predictor
	var closer interface{ Close() error }
	if *modelPath != "" {
		pool, err := inference.NewClientPoolWithConfig(*modelPath, *onnxSessions,
			inference.ClientConfig{BatchSize: *onnxBatchSize, BatchTimeout: *onnxBatchTimeout})
		if err != nil {
			log.Fatalf("create onnx pool: %v", err)
		}
		predictor = &instrumentedPredictor{Predictor: pool}
		closer = pool
	}
	defer func() {
		if closer != nil {
			_ = closer.Close()
		}
	}()

	updates := make(chan EpisodeUpdate, *workers)
	writeReqs := make(chan writeRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *episodesPerFlush, writeReqs)
		close(writerDone)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			runWorker(ctx, cancel, workerID, workerConfig{
				envCfg:      workerEnvConfig(*sx, *sy, *sz, *maxSteps, *baseSeed, workerID),
				predictor:   predictor,
				modelPath:   *modelPath,
				maxEpisodes: *maxEpisodes,
				updates:     updates,
				writeReqs:   writeReqs,
			})
		}(i)
	}

	if *noTUI {
		runPlainLoop(ctx, updates)
	} else {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Send(shutdownMsg{})
		}()
		if _, err := p.Run(); err != nil {
			log.Fatal(err)
		}
		cancel()
	}

	slog.Info("waiting for workers to finish current episodes")
	workerWG.Wait()
	close(writeReqs)
	<-writerDone
	slog.Info("shutdown complete", "episodes", totalEpisodes.Load(), "solved", totalSolved.Load())
}

func workerEnvConfig(sx, sy, sz, maxSteps int, baseSeed int64, workerID int) env.Config {
	cfg := env.Config{SX: sx, SY: sy, SZ: sz, MaxSteps: maxSteps}
	if baseSeed >= 0 {
		seed := baseSeed + int64(workerID)
		cfg.Seed = &seed
	}
	return cfg
}

type workerConfig struct {
	envCfg      env.Config
	predictor   rollout.Predictor
	modelPath   string
	maxEpisodes int64
	updates     chan<- EpisodeUpdate
	writeReqs   chan<- writeRequest
}

func runWorker(ctx context.Context, cancel context.CancelFunc, workerID int, cfg workerConfig) {
	e, err := env.New(cfg.envCfg)
	if err != nil {
		slog.Error("worker env construction failed", "worker", workerID, "err", err)
		return
	}

	var policy rollout.Policy
	source := "rollout-random"
	if cfg.predictor != nil {
		policy = &rollout.GreedyPolicy{Client: cfg.predictor}
		source = "rollout-greedy"
	} else {
		policy = rollout.NewRandomPolicy(time.Now().UnixNano() + int64(workerID))
	}

	opts := rollout.Options{
		Record: true,
		OnStep: func(rollout.Progress) { totalSteps.Add(1) },
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := rollout.PlayEpisode(ctx, e, policy, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("episode failed", "worker", workerID, "err", err)
			continue
		}

		total := totalEpisodes.Add(1)
		if result.ReachedGoal {
			totalSolved.Add(1)
		}
		if cfg.maxEpisodes > 0 && total >= cfg.maxEpisodes {
			cancel()
		}

		episodeID := fmt.Sprintf("rollout_%d_%d", time.Now().UnixNano(), workerID)
		rows := rollout.BuildRows(episodeID, cfg.envCfg, result, source, cfg.modelPath)
		cfg.writeReqs <- writeRequest{rows: rows}

		// Never block shutdown on a stalled UI.
		select {
		case cfg.updates <- EpisodeUpdate{WorkerID: workerID, Result: result}:
		default:
		}
	}
}

func parquetWriterLoop(outDir string, episodesPerFlush int, in <-chan writeRequest) {
	if episodesPerFlush <= 0 {
		episodesPerFlush = 100
	}

	var writer *store.BatchWriter

	flush := func() {
		if writer == nil {
			return
		}
		outPath, rows, episodes, err := writer.Finalize()
		if err != nil {
			slog.Error("parquet flush failed", "err", err)
		} else if rows > 0 {
			slog.Info("parquet flush ok", "path", outPath, "episodes", episodes, "rows", rows)
		}
		writer = nil
	}

	for req := range in {
		if len(req.rows) == 0 {
			continue
		}
		if writer == nil {
			w, err := store.NewBatchWriter(outDir)
			if err != nil {
				slog.Error("open parquet batch failed", "err", err)
				continue
			}
			writer = w
		}
		if err := writer.WriteEpisode(req.rows); err != nil {
			slog.Error("write episode failed", "err", err)
			continue
		}
		if writer.BufferedEpisodes() >= episodesPerFlush {
			flush()
		}
	}
	flush()
}

func runPlainLoop(ctx context.Context, updates <-chan EpisodeUpdate) {
	startTime := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			slog.Info("episode finished",
				"worker", u.WorkerID,
				"steps", u.Result.Steps,
				"reward", u.Result.TotalReward,
				"solved", u.Result.ReachedGoal)
		case <-ticker.C:
			elapsed := time.Since(startTime).Seconds()
			slog.Info("stats",
				"episodes", totalEpisodes.Load(),
				"solved", totalSolved.Load(),
				"steps_per_sec", float64(totalSteps.Load())/elapsed,
				"inferences_per_sec", float64(totalInferences.Load())/elapsed)
		}
	}
}
