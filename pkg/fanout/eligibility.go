package fanout

import "slices"

// IsEligible decides whether conn should receive req.
//
// Explicit targeting (users, process owner, roles, teams) wins first; topic subscription is
// the only path left when the request carries no targeting at all. Absent filters are skipped.
func IsEligible(conn Connection, req Request) bool {
	if len(req.TargetUsers) > 0 && slices.Contains(req.TargetUsers, conn.UserID) {
		return true
	}
	if req.ProcessOwnerID != "" && req.ProcessOwnerID == conn.UserID {
		return true
	}
	if slices.ContainsFunc(req.RequiredRoles, conn.HasRole) {
		return true
	}
	if slices.ContainsFunc(req.TargetTeams, conn.InTeam) {
		return true
	}
	return conn.SubscribedTo(req.Type)
}

// Eligible filters a snapshot down to the connections that should receive req.
func Eligible(conns []Connection, req Request) []Connection {
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		if IsEligible(c, req) {
			out = append(out, c)
		}
	}
	return out
}
