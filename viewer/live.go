package main

import (
	"net/http"
	"time"

	"github.com/brensch/maze3d/env"
	"github.com/brensch/maze3d/maze"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The viewer frontend runs on a different port in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveFrame is one step of a streamed live episode.
type LiveFrame struct {
	Episode     int       `json:"episode"`
	Step        int       `json:"step"`
	Action      int       `json:"action"`
	Reward      float32   `json:"reward"`
	TotalReward float32   `json:"total_reward"`
	Done        bool      `json:"done"`
	ReachedGoal bool      `json:"reached_goal"`
	Agent       maze.Vec3 `json:"agent"`
	Goal        maze.Vec3 `json:"goal"`
	// Slices holds the rendered Z-slices, bottom to top.
	Slices []string `json:"slices"`
}

// handleLive upgrades to a websocket and streams freshly played
// episodes frame by frame until the client disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	cfg := s.envCfg
	if seed := parseInt64Query(r, "seed", -1); seed >= 0 {
		cfg.Seed = &seed
	}
	episodes := parseIntQuery(r, "episodes", 1)
	frameDelay := time.Duration(parseIntQuery(r, "frame_ms", 50)) * time.Millisecond

	e, err := env.New(cfg)
	if err != nil {
		s.log.Error("live env construction failed", "err", err)
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	policy := s.policy()

	for ep := 1; ep <= episodes; ep++ {
		obs := e.Reset()
		var total float32

		for {
			action, err := policy.SelectAction(obs)
			if err != nil {
				s.log.Error("live policy failed", "err", err)
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})
				return
			}

			res := e.Step(action)
			total += res.Reward

			slices := make([]string, e.Grid().SZ())
			for z := range slices {
				slices[z] = e.RenderSlice(z)
			}

			frame := LiveFrame{
				Episode:     ep,
				Step:        e.Steps(),
				Action:      action,
				Reward:      res.Reward,
				TotalReward: total,
				Done:        res.Done,
				ReachedGoal: res.Done && e.Agent() == e.Goal(),
				Agent:       e.Agent(),
				Goal:        e.Goal(),
				Slices:      slices,
			}
			if err := conn.WriteJSON(frame); err != nil {
				// Client went away; nothing to clean up beyond the conn.
				return
			}

			obs = res.Obs
			if res.Done {
				break
			}
			time.Sleep(frameDelay)
		}
	}
}
