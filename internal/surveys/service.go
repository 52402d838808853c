package surveys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingTripID     = errors.New("trip identifier is required")
	errMissingSurveyID   = errors.New("survey identifier is required")
	errMissingUserID     = errors.New("user identifier is required")
	errMissingQuestion   = errors.New("survey question is required")
	errTooFewOptions     = errors.New("survey needs at least two options")
	noOpLogger           = zap.NewNop()
)

var (
	// ErrSurveyNotFound indicates the survey does not exist within the trip.
	ErrSurveyNotFound = errors.New("surveys: survey not found")
	// ErrSurveyClosed indicates the survey no longer accepts responses.
	ErrSurveyClosed = errors.New("surveys: survey is closed")
	// ErrNotCreator indicates the acting user may not close the survey.
	ErrNotCreator = errors.New("surveys: only the creator may close a survey")
	// ErrInvalidOption indicates the answer index is out of range.
	ErrInvalidOption = errors.New("surveys: option index out of range")
)

// ServiceError wraps a failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "surveys.service.new"
	opCreateSurvey   = "surveys.create_survey"
	opListSurveys    = "surveys.list_surveys"
	opSubmitResponse = "surveys.submit_response"
	opCloseSurvey    = "surveys.close_survey"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for new surveys.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig carries the dependencies for the surveys service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns survey persistence and response tallies.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider, logger: logger}, nil
}

// CreateSurvey opens a poll for a trip.
func (s *Service) CreateSurvey(ctx context.Context, tripID, creatorID, question string, options []string) (SurveyView, error) {
	if s.db == nil {
		return SurveyView{}, newServiceError(opCreateSurvey, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return SurveyView{}, newServiceError(opCreateSurvey, "missing_trip_id", errMissingTripID)
	}
	if creatorID == "" {
		return SurveyView{}, newServiceError(opCreateSurvey, "missing_creator_id", errMissingUserID)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return SurveyView{}, newServiceError(opCreateSurvey, "missing_question", errMissingQuestion)
	}
	cleaned := make([]string, 0, len(options))
	for _, option := range options {
		if trimmed := strings.TrimSpace(option); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) < 2 {
		return SurveyView{}, newServiceError(opCreateSurvey, "too_few_options", errTooFewOptions)
	}

	optionsJSON, err := json.Marshal(cleaned)
	if err != nil {
		return SurveyView{}, newServiceError(opCreateSurvey, "encode_failed", err)
	}

	surveyID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateSurvey, "id_generation_failed", err)
		return SurveyView{}, newServiceError(opCreateSurvey, "id_generation_failed", err)
	}

	survey := Survey{
		SurveyID:    surveyID,
		TripID:      tripID,
		CreatorID:   creatorID,
		Question:    question,
		OptionsJSON: string(optionsJSON),
	}
	if err := s.db.WithContext(ctx).Create(&survey).Error; err != nil {
		s.logError(opCreateSurvey, "insert_failed", err, zap.String("trip_id", tripID))
		return SurveyView{}, newServiceError(opCreateSurvey, "insert_failed", err)
	}

	return SurveyView{Survey: survey, Options: cleaned, Counts: make([]int, len(cleaned))}, nil
}

// ListSurveys returns a trip's surveys with per-option response counts,
// newest first.
func (s *Service) ListSurveys(ctx context.Context, tripID string) ([]SurveyView, error) {
	if s.db == nil {
		return nil, newServiceError(opListSurveys, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return nil, newServiceError(opListSurveys, "missing_trip_id", errMissingTripID)
	}

	var stored []Survey
	if err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at DESC").
		Find(&stored).Error; err != nil {
		s.logError(opListSurveys, "query_failed", err, zap.String("trip_id", tripID))
		return nil, newServiceError(opListSurveys, "query_failed", err)
	}

	views := make([]SurveyView, 0, len(stored))
	for _, survey := range stored {
		view, err := s.buildView(ctx, survey)
		if err != nil {
			s.logError(opListSurveys, "tally_failed", err, zap.String("survey_id", survey.SurveyID))
			return nil, newServiceError(opListSurveys, "tally_failed", err)
		}
		views = append(views, view)
	}
	return views, nil
}

// SubmitResponse records or replaces the user's answer.
func (s *Service) SubmitResponse(ctx context.Context, tripID, surveyID, userID string, optionIndex int) error {
	if s.db == nil {
		return newServiceError(opSubmitResponse, "missing_database", errMissingDatabase)
	}
	if surveyID == "" {
		return newServiceError(opSubmitResponse, "missing_survey_id", errMissingSurveyID)
	}
	if userID == "" {
		return newServiceError(opSubmitResponse, "missing_user_id", errMissingUserID)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey Survey
		err := tx.Where("trip_id = ? AND survey_id = ?", tripID, surveyID).Take(&survey).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyNotFound
		}
		if err != nil {
			return err
		}
		if survey.ClosedAt != nil {
			return ErrSurveyClosed
		}

		var options []string
		if err := json.Unmarshal([]byte(survey.OptionsJSON), &options); err != nil {
			return err
		}
		if optionIndex < 0 || optionIndex >= len(options) {
			return ErrInvalidOption
		}

		response := Response{SurveyID: surveyID, UserID: userID, OptionIndex: optionIndex}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "survey_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"option_index", "updated_at"}),
		}).Create(&response).Error
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, ErrSurveyNotFound):
			return newServiceError(opSubmitResponse, "survey_not_found", txErr)
		case errors.Is(txErr, ErrSurveyClosed):
			return newServiceError(opSubmitResponse, "survey_closed", txErr)
		case errors.Is(txErr, ErrInvalidOption):
			return newServiceError(opSubmitResponse, "invalid_option", txErr)
		}
		s.logError(opSubmitResponse, "save_failed", txErr, zap.String("survey_id", surveyID))
		return newServiceError(opSubmitResponse, "save_failed", txErr)
	}

	return nil
}

// CloseSurvey stops a survey from accepting responses. Creator only.
func (s *Service) CloseSurvey(ctx context.Context, tripID, surveyID, userID string) error {
	if s.db == nil {
		return newServiceError(opCloseSurvey, "missing_database", errMissingDatabase)
	}
	if surveyID == "" {
		return newServiceError(opCloseSurvey, "missing_survey_id", errMissingSurveyID)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey Survey
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("trip_id = ? AND survey_id = ?", tripID, surveyID).
			Take(&survey).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyNotFound
		}
		if err != nil {
			return err
		}
		if survey.CreatorID != userID {
			return ErrNotCreator
		}
		if survey.ClosedAt != nil {
			return nil
		}
		closedAt := s.clock().UTC()
		survey.ClosedAt = &closedAt
		return tx.Save(&survey).Error
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, ErrSurveyNotFound):
			return newServiceError(opCloseSurvey, "survey_not_found", txErr)
		case errors.Is(txErr, ErrNotCreator):
			return newServiceError(opCloseSurvey, "not_creator", txErr)
		}
		s.logError(opCloseSurvey, "save_failed", txErr, zap.String("survey_id", surveyID))
		return newServiceError(opCloseSurvey, "save_failed", txErr)
	}

	return nil
}

func (s *Service) buildView(ctx context.Context, survey Survey) (SurveyView, error) {
	var options []string
	if err := json.Unmarshal([]byte(survey.OptionsJSON), &options); err != nil {
		return SurveyView{}, err
	}

	var responses []Response
	if err := s.db.WithContext(ctx).Where("survey_id = ?", survey.SurveyID).Find(&responses).Error; err != nil {
		return SurveyView{}, err
	}

	counts := make([]int, len(options))
	for _, response := range responses {
		if response.OptionIndex >= 0 && response.OptionIndex < len(counts) {
			counts[response.OptionIndex]++
		}
	}

	return SurveyView{Survey: survey, Options: options, Counts: counts}, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("surveys service error", attrs...)
}
