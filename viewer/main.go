// Command viewer serves recorded maze episodes and live rollouts.
//
// Episode history comes from the parquet batches written by cmd/rollout,
// queried through DuckDB. The /ws/live websocket plays fresh episodes on
// demand, either with a loaded ONNX policy or a random baseline.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/brensch/maze3d/env"
	"github.com/brensch/maze3d/inference"
	"github.com/brensch/maze3d/logging"
	"github.com/brensch/maze3d/rollout"
)

func main() {
	addr := flag.String("addr", ":8090", "HTTP listen address")
	roots := flag.String("roots", "data/episodes", "Comma-separated parquet data roots")
	modelPath := flag.String("model", "", "Optional ONNX model for live rollouts; random policy when empty")
	sx := flag.Int("sx", 11, "Maze X dimension for live rollouts")
	sy := flag.Int("sy", 11, "Maze Y dimension for live rollouts")
	sz := flag.Int("sz", 5, "Maze Z dimension for live rollouts")
	maxSteps := flag.Int("max-steps", 400, "Episode step limit for live rollouts")
	flag.Parse()

	log := slog.New(logging.NewPrettyJSONHandler(os.Stdout, nil))

	envCfg := env.Config{SX: *sx, SY: *sy, SZ: *sz, MaxSteps: *maxSteps}

	// The ONNX pool is loaded lazily on the first live rollout so the
	// viewer starts even while the model file is still being exported.
	var poolOnce sync.Once
	var pool *inference.Pool
	policy := func() rollout.Policy {
		if *modelPath == "" {
			return rollout.NewRandomPolicy(1)
		}
		poolOnce.Do(func() {
			p, err := inference.NewClientPool(*modelPath, 1)
			if err != nil {
				log.Error("loading onnx model, falling back to random policy",
					"model", *modelPath, "err", err)
				return
			}
			pool = p
		})
		if pool == nil {
			return rollout.NewRandomPolicy(1)
		}
		return &rollout.GreedyPolicy{Client: pool}
	}

	var rootList []string
	for _, r := range strings.Split(*roots, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rootList = append(rootList, r)
		}
	}

	server := NewServer(rootList, envCfg, policy, log)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	log.Info("viewer listening", "addr", *addr, "roots", rootList, "model", *modelPath)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Error("http server stopped", "err", err)
		os.Exit(1)
	}
}
