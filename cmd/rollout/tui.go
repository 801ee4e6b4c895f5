package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type model struct {
	episodes      int
	solved        int
	totalRewards  float32
	steps         int64
	inferences    int64
	startTime     time.Time
	recentResults []string
	updates       chan EpisodeUpdate
}

func initialModel(updates chan EpisodeUpdate) model {
	return model{
		startTime: time.Now(),
		updates:   updates,
	}
}

type TickMsg time.Time

type shutdownMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates chan EpisodeUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case shutdownMsg:
		return m, tea.Quit
	case TickMsg:
		m.steps = totalSteps.Load()
		m.inferences = totalInferences.Load()
		return m, tickCmd()
	case EpisodeUpdate:
		m.episodes++
		if msg.Result.ReachedGoal {
			m.solved++
		}
		m.totalRewards += msg.Result.TotalReward
		line := fmt.Sprintf("Worker %d: steps %d, reward %.2f, solved %v",
			msg.WorkerID, msg.Result.Steps, msg.Result.TotalReward, msg.Result.ReachedGoal)
		m.recentResults = append([]string{line}, m.recentResults...)
		if len(m.recentResults) > 10 {
			m.recentResults = m.recentResults[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	episodesPerSec := float64(m.episodes) / duration.Seconds()
	stepsPerSec := float64(m.steps) / duration.Seconds()
	inferencesPerSec := float64(m.inferences) / duration.Seconds()
	if duration.Seconds() < 1 {
		episodesPerSec = 0
		stepsPerSec = 0
		inferencesPerSec = 0
	}
	solveRate := 0.0
	avgReward := float32(0)
	if m.episodes > 0 {
		solveRate = float64(m.solved) / float64(m.episodes) * 100
		avgReward = m.totalRewards / float32(m.episodes)
	}

	s := fmt.Sprintf("Episodes:       %d\n", m.episodes)
	s += fmt.Sprintf("Solved:         %d (%.1f%%)\n", m.solved, solveRate)
	s += fmt.Sprintf("Avg Reward:     %.2f\n", avgReward)
	s += fmt.Sprintf("Total Steps:    %d\n", m.steps)
	s += fmt.Sprintf("Inferences:     %d\n", m.inferences)
	s += fmt.Sprintf("Duration:       %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Episodes/Sec:   %.2f\n", episodesPerSec)
	s += fmt.Sprintf("Steps/Sec:      %.2f\n", stepsPerSec)
	s += fmt.Sprintf("Inferences/Sec: %.2f\n\n", inferencesPerSec)

	s += "Recent Episodes:\n"
	for _, r := range m.recentResults {
		s += r + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}
