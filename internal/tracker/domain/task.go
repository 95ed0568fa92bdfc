package domain

import (
	"errors"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusActive    TaskStatus = "Active"
	StatusPending   TaskStatus = "Pending"
	StatusSubmitted TaskStatus = "Submitted"
	StatusCompleted TaskStatus = "Completed"
)

var (
	ErrInvalidStatus     = errors.New("domain: invalid task status")
	ErrInvalidTransition = errors.New("domain: invalid status transition")
	ErrInvalidDeadline   = errors.New("domain: invalid deadline")
)

func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range []TaskStatus{StatusActive, StatusPending, StatusSubmitted, StatusCompleted} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// Submittable reports whether a member may (re)submit work.
func (s TaskStatus) Submittable() bool {
	return s == StatusActive || s == StatusPending || s == StatusSubmitted
}

// Reviewable reports whether a reviewer may complete the task.
func (s TaskStatus) Reviewable() bool {
	return s == StatusSubmitted
}

// Open is true for tasks not yet submitted.
func (s TaskStatus) Open() bool {
	return s == StatusActive || s == StatusPending
}

// SubmitTransition returns the status after a submission.
func (s TaskStatus) SubmitTransition() (TaskStatus, error) {
	if !s.Submittable() {
		return s, ErrInvalidTransition
	}
	return StatusSubmitted, nil
}

// FeedbackTransition returns the status after feedback is recorded. Feedback
// on a submitted task completes it; on a completed task it only edits the
// text. Open tasks have nothing to review.
func (s TaskStatus) FeedbackTransition() (TaskStatus, error) {
	switch s {
	case StatusSubmitted, StatusCompleted:
		return StatusCompleted, nil
	default:
		return s, ErrInvalidTransition
	}
}

// ApproveTransition returns the status after approval.
func (s TaskStatus) ApproveTransition() (TaskStatus, error) {
	if !s.Reviewable() {
		return s, ErrInvalidTransition
	}
	return StatusCompleted, nil
}

// DeadlineLayout is the wire and storage format of Task.Deadline.
const DeadlineLayout = "2006-01-02"

// ParseDeadline accepts a calendar date or an RFC 3339 timestamp and keeps
// only the date.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DeadlineLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, ErrInvalidDeadline
}

type Task struct {
	ID             string
	Title          string
	Description    string
	LeaderEmail    string
	AssignedTo     string
	Deadline       time.Time // date only, UTC midnight
	Status         TaskStatus
	SubmissionNote string
	FileURL        string
	Feedback       string
	SubmittedAt    *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTask is the input for creating a task. Status always starts Active.
type NewTask struct {
	Title       string
	Description string
	AssignedTo  string
	Deadline    time.Time
}
