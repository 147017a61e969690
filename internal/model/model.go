package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&OperatorInfo{},
	&Route{},
	&Voyage{},
	&PositionState{},
	&PhaseEvent{},
	&VoyageLogEvent{},
	&DeviationEvent{},
}

// DatabaseModelsSQLite mirrors DatabaseModels; SQLite gets the same schema
// minus server-side geometry types, which gorm maps to blobs there.
var DatabaseModelsSQLite = []interface{}{
	&OperatorInfo{},
	&Route{},
	&Voyage{},
	&PositionState{},
	&PhaseEvent{},
	&VoyageLogEvent{},
	&DeviationEvent{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// OperatorInfo contains identifying information about the operator running this instance
type OperatorInfo struct {
	gorm.Model
	OperatorName        string `json:"operatorName" gorm:"size:127"`
	OperatorDescription string `json:"operatorDescription" gorm:"size:255"`
	OperatorWebsite     string `json:"operatorURL" gorm:"size:255"`
}

func (*OperatorInfo) TableName() string {
	return "operator_infos"
}

////////////////////////
// ROUTE MODELS
////////////////////////

// Route is the stored form of a navigable route: an ordered waypoint chain
// plus its risk classification.
type Route struct {
	gorm.Model
	RouteID   string         `json:"routeId" gorm:"size:64;uniqueIndex"`
	Name      string         `json:"name" gorm:"size:200"`
	RiskTier  string         `json:"riskTier" gorm:"size:32"`
	Waypoints datatypes.JSON `json:"waypoints"` // ordered [{lat,lon},...] pairs

	Voyages []Voyage
}

func (*Route) TableName() string {
	return "routes"
}

// GetOrInsert looks up a route by its public identifier, inserting it if missing.
// If a record already exists, the receiver is overwritten with the stored row.
func (r *Route) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Route
	err = db.Where("route_id = ?", r.RouteID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(r).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*r = existing
	return false, nil
}

////////////////////////
// VOYAGE MODELS
////////////////////////

// Voyage is the main model for one simulated transit
type Voyage struct {
	gorm.Model
	SessionID  string       `json:"sessionId" gorm:"size:64;uniqueIndex"`
	RouteID    uint         `json:"-"`
	Route      Route        `gorm:"foreignkey:RouteID"`
	RouteName  string       `json:"routeName" gorm:"size:200"`
	RiskTier   string       `json:"riskTier" gorm:"size:32"`
	TotalSteps uint64       `json:"totalSteps"`
	StartTime  time.Time    `json:"startTime" gorm:"type:timestamptz;index:idx_voyage_start"`
	EndTime    sql.NullTime `json:"endTime" gorm:"type:timestamptz"`
	FinalPhase string       `json:"finalPhase" gorm:"size:32"`

	PositionStates  []PositionState
	PhaseEvents     []PhaseEvent
	LogEvents       []VoyageLogEvent
	DeviationEvents []DeviationEvent
}

func (*Voyage) TableName() string {
	return "voyages"
}

// PositionState is one interpolated fix along a voyage
type PositionState struct {
	ID           uint       `json:"-" gorm:"primarykey"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;index:idx_positionstate_time"`
	VoyageID     uint       `json:"voyageId" gorm:"index:idx_positionstate_voyage_id"`
	Voyage       Voyage     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:VoyageID;"`
	Step         uint64     `json:"step"`
	SegmentIndex int        `json:"segmentIndex"`
	Fraction     float64    `json:"fraction"`
	ProgressPct  float64    `json:"progressPct"`
	VoyageDay    int        `json:"voyageDay"`
	Position     geom.Point `json:"position"` // EPSG:3857 point
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
}

func (*PositionState) TableName() string {
	return "position_states"
}

// PhaseEvent records one lifecycle transition of a voyage
type PhaseEvent struct {
	ID        uint      `json:"-" gorm:"primarykey"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_phaseevent_time"`
	VoyageID  uint      `json:"voyageId" gorm:"index:idx_phaseevent_voyage_id"`
	Voyage    Voyage    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:VoyageID;"`
	Step      uint64    `json:"step"`
	FromPhase string    `json:"fromPhase" gorm:"size:32"`
	ToPhase   string    `json:"toPhase" gorm:"size:32"`
}

func (*PhaseEvent) TableName() string {
	return "phase_events"
}

// VoyageLogEvent is one human-readable log line attached to a voyage
type VoyageLogEvent struct {
	ID       uint      `json:"-" gorm:"primarykey"`
	Time     time.Time `json:"time" gorm:"type:timestamptz;index:idx_voyagelogevent_time"`
	VoyageID uint      `json:"voyageId" gorm:"index:idx_voyagelogevent_voyage_id"`
	Voyage   Voyage    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:VoyageID;"`
	Step     uint64    `json:"step"`
	Text     string    `json:"text" gorm:"size:512"`
}

func (*VoyageLogEvent) TableName() string {
	return "voyage_log_events"
}

// DeviationEvent records a detected departure from the planned track,
// expected and observed fixes included.
type DeviationEvent struct {
	ID       uint       `json:"-" gorm:"primarykey"`
	Time     time.Time  `json:"time" gorm:"type:timestamptz;index:idx_deviationevent_time"`
	VoyageID uint       `json:"voyageId" gorm:"index:idx_deviationevent_voyage_id"`
	Voyage   Voyage     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:VoyageID;"`
	Step     uint64     `json:"step"`
	Expected geom.Point `json:"expected"` // EPSG:3857 point
	Observed geom.Point `json:"observed"` // EPSG:3857 point
}

func (*DeviationEvent) TableName() string {
	return "deviation_events"
}
