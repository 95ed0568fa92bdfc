package domain

import "math"

// TaskStats are the aggregates shown on every dashboard.
type TaskStats struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"` // Active and Pending
	Submitted       int     `json:"submitted"`
	Completed       int     `json:"completed"`
	PercentComplete float64 `json:"percentComplete"`
}

func ComputeTaskStats(tasks []Task) TaskStats {
	var s TaskStats
	for _, t := range tasks {
		s.Total++
		switch t.Status {
		case StatusSubmitted:
			s.Submitted++
		case StatusCompleted:
			s.Completed++
		default:
			s.Active++
		}
	}
	s.PercentComplete = Percent(s.Completed, s.Total)
	return s
}

// Percent returns part/total*100 rounded to one decimal, or 0 for no total.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

// Summary is the report served to admins and mentors.
type Summary struct {
	Accounts map[Role]int
	Tasks    TaskStats
}
