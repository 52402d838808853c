package surveys

import "time"

// Survey is a single-question poll posed to a trip's members.
type Survey struct {
	SurveyID    string     `gorm:"column:survey_id;primaryKey;size:190;not null"`
	TripID      string     `gorm:"column:trip_id;size:190;not null;index"`
	CreatorID   string     `gorm:"column:creator_id;size:190;not null"`
	Question    string     `gorm:"column:question;size:500;not null"`
	OptionsJSON string     `gorm:"column:options_json;type:text;not null"`
	ClosedAt    *time.Time `gorm:"column:closed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Survey) TableName() string {
	return "trip_surveys"
}

// Response records one member's answer; a member has at most one row per
// survey and re-answering overwrites it.
type Response struct {
	SurveyID    string    `gorm:"column:survey_id;primaryKey;size:190;not null"`
	UserID      string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	OptionIndex int       `gorm:"column:option_index;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Response) TableName() string {
	return "trip_survey_responses"
}

// SurveyView is a survey with decoded options and per-option answer counts.
type SurveyView struct {
	Survey
	Options []string `json:"options"`
	Counts  []int    `json:"counts"`
}
