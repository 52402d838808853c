package itinerary

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ItemType categorizes an itinerary entry.
type ItemType string

const (
	ItemTypeActivity       ItemType = "activity"
	ItemTypeAccommodation  ItemType = "accommodation"
	ItemTypeTransportation ItemType = "transportation"
	ItemTypeFood           ItemType = "food"
)

// Direction is a vote direction as clicked by the viewer.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// UserVote is the viewer's own recorded vote on an item.
type UserVote string

const (
	UserVoteNone UserVote = ""
	UserVoteUp   UserVote = "up"
	UserVoteDown UserVote = "down"
)

var (
	// ErrInvalidDirection indicates a vote direction outside up/down.
	ErrInvalidDirection = errors.New("itinerary: invalid vote direction")
	// ErrInvalidItemType indicates an unknown item category.
	ErrInvalidItemType = errors.New("itinerary: invalid item type")
)

// ParseDirection validates raw input and returns a Direction.
func ParseDirection(rawInput string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(DirectionUp):
		return DirectionUp, nil
	case string(DirectionDown):
		return DirectionDown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, rawInput)
	}
}

// ParseItemType validates raw input and returns an ItemType.
func ParseItemType(rawInput string) (ItemType, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(ItemTypeActivity):
		return ItemTypeActivity, nil
	case string(ItemTypeAccommodation):
		return ItemTypeAccommodation, nil
	case string(ItemTypeTransportation):
		return ItemTypeTransportation, nil
	case string(ItemTypeFood):
		return ItemTypeFood, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidItemType, rawInput)
	}
}

// Item models a persisted itinerary entry. DayNumber is nil for items the
// group has not scheduled onto a specific day yet.
type Item struct {
	ItemID    string    `gorm:"column:item_id;primaryKey;size:190;not null"`
	TripID    string    `gorm:"column:trip_id;size:190;not null;index:idx_items_trip_day,priority:1"`
	Title     string    `gorm:"column:title;size:320;not null"`
	Type      ItemType  `gorm:"column:item_type;size:32;not null;default:'activity'"`
	Location  string    `gorm:"column:location;size:320"`
	Notes     string    `gorm:"column:notes;type:text"`
	DayNumber *int      `gorm:"column:day_number;index:idx_items_trip_day,priority:2"`
	Position  int       `gorm:"column:position;not null;default:0"`
	StartTime string    `gorm:"column:start_time;size:5"`
	EndTime   string    `gorm:"column:end_time;size:5"`
	CreatedBy string    `gorm:"column:created_by;size:190;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Item) TableName() string {
	return "itinerary_items"
}

// VoteRecord tracks one user's current vote on one item. A user has at most
// one row per item; toggling a vote off deletes the row.
type VoteRecord struct {
	ItemID    string    `gorm:"column:item_id;primaryKey;size:190;not null"`
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Direction Direction `gorm:"column:direction;size:8;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (VoteRecord) TableName() string {
	return "itinerary_votes"
}

// ItemView is an Item enriched with the aggregate tally and the requesting
// viewer's own vote. Votes is the net count (up minus down); the per-user
// rows backing it never leave the service layer.
type ItemView struct {
	Item
	Votes    int      `json:"votes"`
	UserVote UserVote `json:"user_vote"`
}

// DayGroup is one display bucket of the schedule. Day is 1-based;
// DayUnscheduled collects items with no valid day assignment.
type DayGroup struct {
	Day   int        `json:"day"`
	Items []ItemView `json:"items"`
}

// DayUnscheduled is the sentinel day key for the unscheduled bucket.
const DayUnscheduled = 0
