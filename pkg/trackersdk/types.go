package trackersdk

import "time"

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a short machine readable code (e.g. "invalid_request", "not_found")
	Error string `json:"error"`

	// ErrorDescription is a human readable message
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Account Types
// ============================================================================

// Role names as they appear on the wire.
const (
	RoleAdmin  = "Admin"
	RoleMentor = "Mentor"
	RoleLeader = "Leader"
	RoleMember = "Member"
)

// RegisterRequest is the signup form.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`

	// Role defaults to Member. An invite overrides it.
	Role string `json:"role,omitempty" validate:"omitempty,oneof=Admin Mentor Leader Member"`

	// Invite is the token from an invite link.
	Invite string `json:"invite,omitempty" validate:"omitempty,max=128"`

	// AdminKey is required when Role is Admin.
	AdminKey string `json:"adminKey,omitempty" validate:"omitempty,max=256"`
}

// Account is the public view of an account. The password hash and MFA secret
// never leave the server.
type Account struct {
	ID          string    `json:"_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	LeaderEmail string    `json:"leaderEmail,omitempty"`
	MFAEnabled  bool      `json:"mfaEnabled"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LoginRequest carries credentials. OTP is required once MFA is enabled.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
	OTP      string `json:"otp,omitempty" validate:"omitempty,len=6,numeric"`
}

// LoginResponse is stored by the client as its session.
type LoginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DeleteUserResponse reports how many tasks were removed with the account.
type DeleteUserResponse struct {
	DeletedTasks int64 `json:"deletedTasks"`
}

// ============================================================================
// MFA Types
// ============================================================================

// MFAEnrollResponse contains the TOTP secret to load into an authenticator.
type MFAEnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

// MFACodeRequest carries a six digit TOTP code.
type MFACodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ============================================================================
// Task Types
// ============================================================================

// Task statuses as they appear on the wire.
const (
	StatusActive    = "Active"
	StatusPending   = "Pending"
	StatusSubmitted = "Submitted"
	StatusCompleted = "Completed"
)

// DeadlineLayout is the wire format of Task.Deadline.
const DeadlineLayout = "2006-01-02"

// Task is a unit of work assigned by a leader to a member.
type Task struct {
	ID             string     `json:"_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	LeaderEmail    string     `json:"leaderEmail"`
	AssignedTo     string     `json:"assignedTo"`
	Deadline       string     `json:"deadline"`
	Status         string     `json:"status"`
	SubmissionNote string     `json:"submissionNote,omitempty"`
	FileURL        string     `json:"fileUrl,omitempty"`
	Feedback       string     `json:"feedback,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewTask is one row of the leader's task builder.
type NewTask struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=4000"`
	AssignedTo  string `json:"assignedTo" validate:"required,email"`

	// Deadline is a date (2006-01-02) or an RFC 3339 timestamp.
	Deadline string `json:"deadline" validate:"required"`
}

// CreateTasksRequest creates every task or none.
type CreateTasksRequest struct {
	Tasks []NewTask `json:"tasks" validate:"required,min=1,max=100,dive"`
}

// AssignTaskRequest assigns a single task from the member detail view.
type AssignTaskRequest struct {
	// Email is the assignee.
	Email       string `json:"email" validate:"required,email"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=4000"`
	Deadline    string `json:"deadline" validate:"required"`
}

// FeedbackRequest carries reviewer feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,max=4000"`
}

// DeletedResponse reports the number of removed tasks.
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// ============================================================================
// Invite Types
// ============================================================================

// InviteRequest mints a signup link. Both fields are optional: Role defaults
// to Member and an empty Email accepts any address.
type InviteRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role,omitempty" validate:"omitempty,oneof=Admin Mentor Leader Member"`
}

// InviteResponse carries the link to share with the invitee.
type InviteResponse struct {
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ============================================================================
// Report Types
// ============================================================================

// TaskStats aggregates task counts by status.
type TaskStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Submitted int `json:"submitted"`
	Completed int `json:"completed"`

	// PercentComplete is Completed/Total*100 rounded to one decimal.
	PercentComplete float64 `json:"percentComplete"`
}

// SummaryResponse is the admin/mentor report.
type SummaryResponse struct {
	// Accounts counts accounts per role; every role is present.
	Accounts map[string]int `json:"accounts"`
	Tasks    TaskStats      `json:"tasks"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the per-dependency readiness result.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	Uploads  string `json:"uploads"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWK is a public Ed25519 key.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
}

// JWKSResponse is the JSON Web Key Set.
type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}
