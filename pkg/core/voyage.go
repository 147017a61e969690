// pkg/core/voyage.go
package core

import "time"

// VoyageMeta identifies one configured voyage session for recording and
// streaming backends.
type VoyageMeta struct {
	SessionID  string     `json:"sessionId"`
	RouteID    string     `json:"routeId"`
	RouteName  string     `json:"routeName"`
	RiskTier   RiskTier   `json:"riskTier"`
	Waypoints  []Waypoint `json:"waypoints"`
	TotalSteps uint64     `json:"totalSteps"`
	StartedAt  time.Time  `json:"startedAt"`
}

// UploadMetadata accompanies a replay file upload to the web frontend.
type UploadMetadata struct {
	SessionID     string  `json:"sessionId"`
	RouteName     string  `json:"routeName"`
	RiskTier      string  `json:"riskTier"`
	DurationHours float64 `json:"durationHours"`
	Tag           string  `json:"tag"`
}
