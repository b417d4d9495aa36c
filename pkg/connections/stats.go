package connections

import "github.com/dmitrymomot/notifyhub/pkg/fanout"

// Stats is the aggregate view served by the metrics endpoint.
type Stats struct {
	ActiveConnections       int            `json:"activeConnections"`
	ConnectionsByRole       map[string]int `json:"connectionsByRole"`
	ConnectionsByTeam       map[string]int `json:"connectionsByTeam"`
	ConnectionsByDepartment map[string]int `json:"connectionsByDepartment"`
}

// ComputeStats counts connections per role, team and department.
// A connection with several roles counts once for each.
func ComputeStats(conns []fanout.Connection) Stats {
	s := Stats{
		ActiveConnections:       len(conns),
		ConnectionsByRole:       make(map[string]int),
		ConnectionsByTeam:       make(map[string]int),
		ConnectionsByDepartment: make(map[string]int),
	}
	for _, c := range conns {
		c = c.WithDefaults()
		for _, r := range c.Roles {
			s.ConnectionsByRole[r]++
		}
		for _, t := range c.Teams {
			s.ConnectionsByTeam[t]++
		}
		s.ConnectionsByDepartment[c.Department]++
	}
	return s
}
