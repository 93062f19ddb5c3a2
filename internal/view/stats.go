package view

import (
	"math"
	"time"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Urgent         int `json:"urgent"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completion_rate"`
}

// ComputeStats aggregates over the whole collection, never the filtered view.
func ComputeStats(tasks []model.Task, now time.Time) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			continue
		}
		if t.Priority == model.PriorityUrgent {
			s.Urgent++
		}
		if t.DueDate != nil && t.DueDate.Before(now) {
			s.Overdue++
		}
	}
	s.Pending = s.Total - s.Completed
	s.CompletionRate = CompletionRate(s.Completed, s.Total)
	return s
}

func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
