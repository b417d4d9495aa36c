package fanout

// Priority is display metadata carried by a request. It never affects matching and
// any value is accepted; the constants are the conventional ones.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Request is one fan-out intent. The engine only reads it.
type Request struct {
	Type           string           `json:"type" validate:"required"`
	Title          string           `json:"title,omitempty"`
	Message        string           `json:"message,omitempty"`
	ModuleName     string           `json:"moduleName,omitempty"`
	Priority       Priority         `json:"priority,omitempty"`
	TargetUsers    []string         `json:"targetUsers,omitempty"`
	RequiredRoles  []string         `json:"requiredRoles,omitempty"`
	TargetTeams    []string         `json:"targetTeams,omitempty"`
	ProcessOwnerID string           `json:"processOwnerId,omitempty"`
	Data           map[string]any   `json:"data,omitempty"`
	Actions        []map[string]any `json:"actions,omitempty"`
	Timestamp      int64            `json:"timestamp"`
}

// Status summarizes a fan-out outcome.
type Status string

const (
	StatusSent         Status = "SENT"
	StatusFailed       Status = "FAILED"
	StatusNoRecipients Status = "NO_RECIPIENTS"
	// StatusPartial is part of the wire vocabulary but the aggregator never produces it:
	// partial success is reported as StatusSent with a non-zero Failed count.
	StatusPartial Status = "PARTIAL"
)

// Result is the aggregated outcome of one SendNotification call.
type Result struct {
	Status          Status `json:"status"`
	Sent            int    `json:"sent"`
	Failed          int    `json:"failed"`
	TotalRecipients int    `json:"totalRecipients"`
	Message         string `json:"message"`
}
