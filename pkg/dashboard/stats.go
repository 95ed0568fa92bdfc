package dashboard

import (
	"math"

	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

// Stats are the counters shown above a task list.
//
// Done is what the view treats as finished and Pending is Total-Done. Most
// views count only Completed as done; the leader view also counts Submitted.
type Stats struct {
	Total     int
	Active    int
	Submitted int
	Completed int

	Done    int
	Pending int

	// PercentDone is Done/Total*100 rounded to one decimal.
	PercentDone float64
}

// CountTasks counts tasks by status with Done = Completed.
func CountTasks(tasks []trackersdk.Task) Stats {
	s := tally(tasks)
	return s.finish(s.Completed)
}

// CountTeamTasks counts tasks by status with Done = Submitted + Completed.
func CountTeamTasks(tasks []trackersdk.Task) Stats {
	s := tally(tasks)
	return s.finish(s.Submitted + s.Completed)
}

func tally(tasks []trackersdk.Task) Stats {
	var s Stats
	for _, t := range tasks {
		s.Total++
		switch t.Status {
		case trackersdk.StatusSubmitted:
			s.Submitted++
		case trackersdk.StatusCompleted:
			s.Completed++
		default:
			// Active and Pending are the same state.
			s.Active++
		}
	}
	return s
}

func (s Stats) finish(done int) Stats {
	s.Done = done
	s.Pending = s.Total - done
	s.PercentDone = percent(done, s.Total)
	return s
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}
