package trackersdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// File is a work file picked by a member.
type File struct {
	Name string
	Body io.Reader
}

func (c *Client) listTasks(ctx context.Context, path string) ([]Task, error) {
	var out []Task
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// AllTasks returns every task. Admin and Mentor only.
func (c *Client) AllTasks(ctx context.Context) ([]Task, error) {
	return c.listTasks(ctx, "/api/tasks/all")
}

// LeaderTasks returns the tasks a leader assigned, newest first.
func (c *Client) LeaderTasks(ctx context.Context, leaderEmail string) ([]Task, error) {
	return c.listTasks(ctx, "/api/tasks/leader/"+url.PathEscape(leaderEmail))
}

// MemberTasks returns the tasks assigned to a member.
func (c *Client) MemberTasks(ctx context.Context, memberEmail string) ([]Task, error) {
	return c.listTasks(ctx, "/api/tasks/member/"+url.PathEscape(memberEmail))
}

// CreateTasks creates every task or none.
func (c *Client) CreateTasks(ctx context.Context, tasks []NewTask) ([]Task, error) {
	var out []Task
	req := CreateTasksRequest{Tasks: tasks}
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks/create-multiple", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignTask creates one task for req.Email.
func (c *Client) AssignTask(ctx context.Context, req AssignTaskRequest) (*Task, error) {
	var out Task
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks/assign", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitWork uploads a work file with an optional note. A nil file fails
// with ErrFileRequired without contacting the server.
func (c *Client) SubmitWork(ctx context.Context, taskID, note string, file *File) (*Task, error) {
	if file == nil || file.Body == nil {
		return nil, ErrFileRequired
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("submissionNote", note); err != nil {
		return nil, fmt.Errorf("failed to encode note: %w", err)
	}
	part, err := mw.CreateFormFile("workFile", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPut,
		"/api/tasks/submit-work/"+url.PathEscape(taskID), &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var out Task
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddFeedback records review feedback. On a submitted task this also
// completes it.
func (c *Client) AddFeedback(ctx context.Context, taskID, feedback string) (*Task, error) {
	var out Task
	path := "/api/tasks/add-feedback/" + url.PathEscape(taskID)
	if err := c.doJSON(ctx, http.MethodPut, path, FeedbackRequest{Feedback: feedback}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveTask completes a submitted task.
func (c *Client) ApproveTask(ctx context.Context, taskID string) (*Task, error) {
	var out Task
	path := "/api/tasks/approve/" + url.PathEscape(taskID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes one task. Leaders may delete their own tasks, Admins
// any task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(taskID), nil, nil, http.StatusOK)
}

// ClearAllTasks deletes every task. Admin only.
func (c *Client) ClearAllTasks(ctx context.Context) (int64, error) {
	var out DeletedResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/tasks/admin/clear-all-tasks", nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// RemoveMember deletes the caller's tasks for a member and releases them
// from the team.
func (c *Client) RemoveMember(ctx context.Context, memberEmail string) (int64, error) {
	var out DeletedResponse
	path := "/api/tasks/remove-member/" + url.PathEscape(memberEmail)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// CreateInvite mints a single-use signup link into the caller's team.
func (c *Client) CreateInvite(ctx context.Context, req InviteRequest) (*InviteResponse, error) {
	var out InviteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks/invite", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
