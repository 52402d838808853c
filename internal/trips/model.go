package trips

import "time"

// Role describes a member's standing within a trip.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Trip models a planned group trip.
type Trip struct {
	TripID       string    `gorm:"column:trip_id;primaryKey;size:190;not null"`
	Name         string    `gorm:"column:name;size:320;not null"`
	Destination  string    `gorm:"column:destination;size:320"`
	Description  string    `gorm:"column:description;type:text"`
	StartDate    string    `gorm:"column:start_date;size:10"`
	DurationDays int       `gorm:"column:duration_days;not null"`
	CreatorID    string    `gorm:"column:creator_id;size:190;not null;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Trip) TableName() string {
	return "trips"
}

// Membership links a user to a trip with a role.
type Membership struct {
	TripID   string    `gorm:"column:trip_id;primaryKey;size:190;not null"`
	UserID   string    `gorm:"column:user_id;primaryKey;size:190;not null;index"`
	Role     Role      `gorm:"column:role;size:16;not null;default:'member'"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Membership) TableName() string {
	return "trip_memberships"
}
