// Command debugepisode plays a single episode verbosely, rendering the
// agent's Z-slice after every step, then archives it as a parquet file
// for the viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brensch/maze3d/env"
	"github.com/brensch/maze3d/inference"
	"github.com/brensch/maze3d/rollout"
	"github.com/brensch/maze3d/store"
)

var actionNames = []string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func main() {
	modelPath := flag.String("model", "", "ONNX model path; empty plays the random baseline")
	outDir := flag.String("out-dir", "debug_episodes", "Output directory for the episode parquet")
	sx := flag.Int("sx", 11, "Maze X dimension")
	sy := flag.Int("sy", 11, "Maze Y dimension")
	sz := flag.Int("sz", 5, "Maze Z dimension")
	maxSteps := flag.Int("max-steps", 400, "Episode step limit")
	seed := flag.Int64("seed", -1, "Maze seed; negative plays unseeded")
	cuda := flag.Bool("cuda", true, "Enable CUDA for inference")
	flag.Parse()

	if !*cuda {
		os.Setenv("MAZE3D_ORT_DISABLE_CUDA", "1")
	}

	cfg := env.Config{SX: *sx, SY: *sy, SZ: *sz, MaxSteps: *maxSteps}
	if *seed >= 0 {
		cfg.Seed = seed
	}

	e, err := env.New(cfg)
	if err != nil {
		log.Fatalf("create environment: %v", err)
	}

	var policy rollout.Policy
	source := "debug-random"
	if *modelPath != "" {
		log.Printf("Loading model: %s", *modelPath)
		pool, err := inference.NewClientPool(*modelPath, 1)
		if err != nil {
			log.Fatalf("load model: %v", err)
		}
		defer pool.Close()
		policy = &rollout.GreedyPolicy{Client: pool}
		source = "debug-greedy"
	} else {
		policy = rollout.NewRandomPolicy(time.Now().UnixNano())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	onStep := func(p rollout.Progress) {
		name := "?"
		if p.Action >= 0 && p.Action < len(actionNames) {
			name = actionNames[p.Action]
		}
		fmt.Printf("step %3d | action %s | reward %+.2f | agent %v\n",
			p.Step, name, p.Reward, e.Agent())
		fmt.Println(e.RenderSlice(e.Agent().Z))
	}

	result, err := rollout.PlayEpisode(ctx, e, policy, rollout.Options{Record: true, OnStep: onStep})
	if err != nil {
		log.Fatalf("play episode: %v", err)
	}

	log.Printf("Episode complete: %d steps, reward %.2f, solved: %v",
		result.Steps, result.TotalReward, result.ReachedGoal)

	episodeID := fmt.Sprintf("debug_%d", time.Now().UnixNano())
	writer, err := store.NewBatchWriter(*outDir)
	if err != nil {
		log.Fatalf("open parquet writer: %v", err)
	}
	if err := writer.WriteEpisode(rollout.BuildRows(episodeID, cfg, result, source, *modelPath)); err != nil {
		log.Fatalf("write episode: %v", err)
	}
	outPath, rows, _, err := writer.Finalize()
	if err != nil {
		log.Fatalf("finalize parquet: %v", err)
	}

	log.Printf("Episode written to %s (%d rows)", outPath, rows)
}
