package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/service"
	"github.com/aussiebroadwan/progressiq/pkg/httpx"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
	"github.com/aussiebroadwan/progressiq/pkg/trackersdk"
)

const (
	// multipartOverhead is allowed on top of the file limit for form fields
	// and part headers.
	multipartOverhead = 1 << 20

	// multipartMemory is held in memory; larger files spill to temp files.
	multipartMemory = 8 << 20
)

// TaskHandler serves the task lifecycle and team management.
type TaskHandler struct {
	Tasks   *service.TaskService
	Invites *service.InviteService

	// MaxUploadBytes bounds submit-work bodies. Zero means unbounded.
	MaxUploadBytes int64
}

// HandleListAll handles GET /api/tasks/all
//
//	@Summary		List every task
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		trackersdk.Task
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/tasks/all [get].
func (h *TaskHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTasks(tasks))
}

// HandleListByLeader handles GET /api/tasks/leader/{email}
//
//	@Summary		List a leader's tasks
//	@Description	Newest first. Leaders may only list their own tasks.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			email	path		string	true	"Leader email"
//	@Success		200		{array}		trackersdk.Task
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Not this leader"
//	@Router			/api/tasks/leader/{email} [get].
func (h *TaskHandler) HandleListByLeader(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	tasks, err := h.Tasks.ListByLeader(r.Context(), p, r.PathValue("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTasks(tasks))
}

// HandleListByMember handles GET /api/tasks/member/{email}
//
//	@Summary		List a member's tasks
//	@Description	Members may only list their own tasks; leaders see the tasks they assigned to the member.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			email	path		string	true	"Member email"
//	@Success		200		{array}		trackersdk.Task
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Not this member"
//	@Router			/api/tasks/member/{email} [get].
func (h *TaskHandler) HandleListByMember(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	tasks, err := h.Tasks.ListByMember(r.Context(), p, r.PathValue("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTasks(tasks))
}

// HandleCreateMultiple handles POST /api/tasks/create-multiple
//
//	@Summary		Create tasks
//	@Description	Creates every task or none. Each assignee must be a Member.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		trackersdk.CreateTasksRequest	true	"Tasks"
//	@Success		201		{array}		trackersdk.Task
//	@Failure		400		{object}	trackersdk.ErrorResponse	"Invalid task"
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/tasks/create-multiple [post].
func (h *TaskHandler) HandleCreateMultiple(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req trackersdk.CreateTasksRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := make([]domain.NewTask, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		nt, err := toNewTask(t.Title, t.Description, t.AssignedTo, t.Deadline)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		in = append(in, nt)
	}

	tasks, err := h.Tasks.CreateMultiple(r.Context(), p, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTasks(tasks))
}

// HandleAssign handles POST /api/tasks/assign
//
//	@Summary		Assign a task
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		trackersdk.AssignTaskRequest	true	"Task"
//	@Success		201		{object}	trackersdk.Task
//	@Failure		400		{object}	trackersdk.ErrorResponse	"Invalid task"
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/tasks/assign [post].
func (h *TaskHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req trackersdk.AssignTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	nt, err := toNewTask(req.Title, req.Description, req.Email, req.Deadline)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	task, err := h.Tasks.Assign(r.Context(), p, nt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTask(task))
}

// HandleSubmitWork handles PUT /api/tasks/submit-work/{id}
//
//	@Summary		Submit work
//	@Description	Uploads the work file and moves the task to Submitted. Resubmitting replaces the file.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			mpfd
//	@Produce		json
//	@Param			id				path		string	true	"Task ID"
//	@Param			workFile		formData	file	true	"Work file"
//	@Param			submissionNote	formData	string	false	"Note for the reviewer"
//	@Success		200				{object}	trackersdk.Task
//	@Failure		400				{object}	trackersdk.ErrorResponse	"Missing file"
//	@Failure		403				{object}	trackersdk.ErrorResponse	"Not the assignee"
//	@Failure		404				{object}	trackersdk.ErrorResponse	"Task not found"
//	@Failure		409				{object}	trackersdk.ErrorResponse	"Task already completed"
//	@Failure		413				{object}	trackersdk.ErrorResponse	"File too large"
//	@Router			/api/tasks/submit-work/{id} [put].
func (h *TaskHandler) HandleSubmitWork(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	p, ok := principal(w, r)
	if !ok {
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "file too large")
			return
		}
		log.Warn("failed to parse submission", slog.Any("error", err))
		httpx.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "multipart/form-data body required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var file *service.Upload
	f, hdr, err := r.FormFile("workFile")
	switch {
	case err == nil:
		defer f.Close()
		file = &service.Upload{Name: hdr.Filename, Body: f}
	case !errors.Is(err, http.ErrMissingFile):
		log.Warn("failed to open work file", slog.Any("error", err))
		httpx.WriteError(w, http.StatusBadRequest, codeInvalidRequest, "invalid work file")
		return
	}

	task, err := h.Tasks.SubmitWork(r.Context(), p, r.PathValue("id"), r.FormValue("submissionNote"), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTask(task))
}

// HandleAddFeedback handles PUT /api/tasks/add-feedback/{id}
//
//	@Summary		Add feedback
//	@Description	Records reviewer feedback. Feedback on a Submitted task completes it; on a Completed task it only replaces the text.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Task ID"
//	@Param			request	body		trackersdk.FeedbackRequest	true	"Feedback"
//	@Success		200		{object}	trackersdk.Task
//	@Failure		400		{object}	trackersdk.ErrorResponse	"Empty feedback"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Not this task's reviewer"
//	@Failure		404		{object}	trackersdk.ErrorResponse	"Task not found"
//	@Failure		409		{object}	trackersdk.ErrorResponse	"Nothing submitted yet"
//	@Router			/api/tasks/add-feedback/{id} [put].
func (h *TaskHandler) HandleAddFeedback(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req trackersdk.FeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.Tasks.AddFeedback(r.Context(), p, r.PathValue("id"), req.Feedback)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTask(task))
}

// HandleApprove handles PUT /api/tasks/approve/{id}
//
//	@Summary		Approve submitted work
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Task ID"
//	@Success		200	{object}	trackersdk.Task
//	@Failure		403	{object}	trackersdk.ErrorResponse	"Not this task's reviewer"
//	@Failure		404	{object}	trackersdk.ErrorResponse	"Task not found"
//	@Failure		409	{object}	trackersdk.ErrorResponse	"Task not submitted"
//	@Router			/api/tasks/approve/{id} [put].
func (h *TaskHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	task, err := h.Tasks.Approve(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTask(task))
}

// HandleDelete handles DELETE /api/tasks/{id}
//
//	@Summary		Delete a task
//	@Description	Deletes one task and its submitted file. Leaders may delete their own tasks; Admins any task.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Task ID"
//	@Success		200	{object}	trackersdk.DeletedResponse
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	trackersdk.ErrorResponse	"Not this task's leader"
//	@Failure		404	{object}	trackersdk.ErrorResponse	"Task not found"
//	@Router			/api/tasks/{id} [delete].
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(r.Context(), p, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trackersdk.DeletedResponse{Deleted: 1})
}

// HandleClearAll handles DELETE /api/tasks/admin/clear-all-tasks
//
//	@Summary		Delete every task
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	trackersdk.DeletedResponse
//	@Failure		401	{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/tasks/admin/clear-all-tasks [delete].
func (h *TaskHandler) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	n, err := h.Tasks.ClearAll(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trackersdk.DeletedResponse{Deleted: n})
}

// HandleRemoveMember handles DELETE /api/tasks/remove-member/{email}
//
//	@Summary		Remove a member from the team
//	@Description	Deletes the caller's tasks for the member and releases the member from the caller's team.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			email	path		string	true	"Member email"
//	@Success		200		{object}	trackersdk.DeletedResponse
//	@Failure		401		{object}	trackersdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Insufficient scope"
//	@Router			/api/tasks/remove-member/{email} [delete].
func (h *TaskHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	n, err := h.Tasks.RemoveMember(r.Context(), p, r.PathValue("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trackersdk.DeletedResponse{Deleted: n})
}

// HandleInvite handles POST /api/tasks/invite
//
//	@Summary		Generate an invite link
//	@Description	Mints a single-use signup link that joins the invitee to the caller's team as a Member.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		trackersdk.InviteRequest	false	"Optional invitee"
//	@Success		201		{object}	trackersdk.InviteResponse
//	@Failure		400		{object}	trackersdk.ErrorResponse	"Invalid request"
//	@Failure		403		{object}	trackersdk.ErrorResponse	"Only member invites are allowed"
//	@Router			/api/tasks/invite [post].
func (h *TaskHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req trackersdk.InviteRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	var role domain.Role
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		role = parsed
	}

	minted, err := h.Invites.Mint(r.Context(), p, req.Email, role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, trackersdk.InviteResponse{
		Link:      minted.Link,
		ExpiresAt: minted.ExpiresAt,
	})
}
