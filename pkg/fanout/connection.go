package fanout

import "slices"

// Attribute defaults applied to connections that arrive without them.
const (
	AnonymousUser     = "anonymous"
	DefaultRole       = "USER"
	DefaultTeam       = "DEFAULT"
	GeneralDepartment = "GENERAL"
)

// TopicAll is the wildcard subscription that matches every notification type.
const TopicAll = "ALL"

// DefaultTopics are the subscriptions a connection gets at connect time.
var DefaultTopics = []string{"PROCESS_COMPLETE", "SYSTEM_ALERTS", "ERROR_ALERTS"}

// Connection is one active real-time session as seen by the connection store.
type Connection struct {
	ConnectionID     string   `json:"connectionId" dynamodbav:"connectionId" bson:"_id"`
	UserID           string   `json:"userId" dynamodbav:"userId" bson:"user_id"`
	Roles            []string `json:"roles" dynamodbav:"roles,stringset,omitempty" bson:"roles"`
	Teams            []string `json:"teams" dynamodbav:"teams,stringset,omitempty" bson:"teams"`
	Department       string   `json:"department" dynamodbav:"department" bson:"department"`
	ConnectedAt      int64    `json:"connectedAt" dynamodbav:"connectedAt" bson:"connected_at"`
	LastSeen         int64    `json:"lastSeen" dynamodbav:"lastSeen" bson:"last_seen"`
	SubscribedTopics []string `json:"subscribedTopics" dynamodbav:"subscribedTopics,stringset,omitempty" bson:"subscribed_topics"`
}

// WithDefaults returns a copy of c with absent attributes replaced by their sentinels.
// Subscriptions are left untouched: an empty topic set is a valid state.
func (c Connection) WithDefaults() Connection {
	if c.UserID == "" {
		c.UserID = AnonymousUser
	}
	if len(c.Roles) == 0 {
		c.Roles = []string{DefaultRole}
	}
	if len(c.Teams) == 0 {
		c.Teams = []string{DefaultTeam}
	}
	if c.Department == "" {
		c.Department = GeneralDepartment
	}
	return c
}

// HasRole reports whether the connection carries the role tag.
func (c Connection) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// InTeam reports whether the connection belongs to the team.
func (c Connection) InTeam(team string) bool {
	return slices.Contains(c.Teams, team)
}

// SubscribedTo reports whether the connection opted into topic, directly or via TopicAll.
func (c Connection) SubscribedTo(topic string) bool {
	for _, t := range c.SubscribedTopics {
		if t == topic || t == TopicAll {
			return true
		}
	}
	return false
}
