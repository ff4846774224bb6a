package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/repositories"
	"github.com/aaroha-fest/sargam-portal/storage"
	"github.com/google/uuid"
)

// RegistrationFee is the per-team fee in INR, snapshotted onto every
// registration at creation time.
const RegistrationFee = 1200

type CreateRegistrationInput struct {
	TeamName               string              `json:"team_name"`
	CollegeName            string              `json:"college_name"`
	TeamLeaderName         string              `json:"team_leader_name"`
	TeamLeaderEmail        string              `json:"team_leader_email"`
	TeamLeaderPhone        string              `json:"team_leader_phone"`
	TeamMembers            []models.TeamMember `json:"team_members"`
	NumMicrophones         int                 `json:"num_microphones"`
	DrumSetup              string              `json:"drum_setup"`
	AdditionalRequirements string              `json:"additional_requirements"`
	InstagramHandle        string              `json:"instagram_handle"`
	TransactionID          string              `json:"transaction_id"`
}

// UpdateRegistrationInput is a partial update; nil fields are left
// untouched. registration_id and created_at cannot be expressed here,
// which is the whole defense against client tampering.
type UpdateRegistrationInput struct {
	TeamName               *string              `json:"team_name"`
	CollegeName            *string              `json:"college_name"`
	TeamLeaderName         *string              `json:"team_leader_name"`
	TeamLeaderEmail        *string              `json:"team_leader_email"`
	TeamLeaderPhone        *string              `json:"team_leader_phone"`
	TeamMembers            *[]models.TeamMember `json:"team_members"`
	NumMicrophones         *int                 `json:"num_microphones"`
	DrumSetup              *string              `json:"drum_setup"`
	AdditionalRequirements *string              `json:"additional_requirements"`
	InstagramHandle        *string              `json:"instagram_handle"`
	TransactionID          *string              `json:"transaction_id"`
}

type UpdatePaymentStatusInput struct {
	PaymentStatus string `json:"payment_status"`
	TransactionID string `json:"transaction_id"`
}

type RegistrationService interface {
	Create(ctx context.Context, userID string, input CreateRegistrationInput) (*models.Registration, *models.PaymentDetails, error)
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	UpdateFields(ctx context.Context, id string, input UpdateRegistrationInput) (*models.Registration, error)
	UpdatePaymentStatus(ctx context.Context, id string, input UpdatePaymentStatusInput) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.EventStats, error)
	AttachPaymentProof(ctx context.Context, id string, contentType string, file io.Reader) (*models.Registration, error)
}

type registrationService struct {
	repo     repositories.RegistrationRepository
	uploader storage.FileUploader
}

// NewRegistrationService builds the lifecycle engine. The uploader may
// be nil, in which case payment-proof uploads are rejected.
func NewRegistrationService(repo repositories.RegistrationRepository, uploader storage.FileUploader) RegistrationService {
	return &registrationService{repo: repo, uploader: uploader}
}

func (s *registrationService) Create(ctx context.Context, userID string, input CreateRegistrationInput) (*models.Registration, *models.PaymentDetails, error) {
	if errs := validateCreateInput(input); len(errs) > 0 {
		return nil, nil, errs
	}

	existing, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing registrations: %w", err)
	}
	for i := range existing {
		if existing[i].Active() {
			return nil, nil, ErrAlreadyRegistered
		}
	}

	reg := &models.Registration{
		RegistrationID:         uuid.NewString(),
		UserID:                 userID,
		TeamName:               strings.TrimSpace(input.TeamName),
		CollegeName:            strings.TrimSpace(input.CollegeName),
		TeamLeaderName:         strings.TrimSpace(input.TeamLeaderName),
		TeamLeaderEmail:        strings.TrimSpace(input.TeamLeaderEmail),
		TeamLeaderPhone:        strings.TrimSpace(input.TeamLeaderPhone),
		TeamMembers:            input.TeamMembers,
		NumMicrophones:         input.NumMicrophones,
		DrumSetup:              strings.TrimSpace(input.DrumSetup),
		AdditionalRequirements: strings.TrimSpace(input.AdditionalRequirements),
		InstagramHandle:        strings.TrimSpace(input.InstagramHandle),
		TransactionID:          strings.TrimSpace(input.TransactionID),
		RegistrationFee:        RegistrationFee,
		PaymentStatus:          models.PaymentPending,
		RegistrationStatus:     models.RegistrationPending,
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, nil, fmt.Errorf("failed to create registration: %w", err)
	}

	return reg, &models.PaymentDetails{Amount: RegistrationFee, Currency: "INR"}, nil
}

func (s *registrationService) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRegistrationRepoError(err)
	}
	return reg, nil
}

func (s *registrationService) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *registrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	return s.repo.List(ctx, filter)
}

func (s *registrationService) UpdateFields(ctx context.Context, id string, input UpdateRegistrationInput) (*models.Registration, error) {
	if errs := validateUpdateInput(input); len(errs) > 0 {
		return nil, errs
	}

	reg, err := s.repo.UpdateFields(ctx, id, repositories.RegistrationUpdate{
		TeamName:               input.TeamName,
		CollegeName:            input.CollegeName,
		TeamLeaderName:         input.TeamLeaderName,
		TeamLeaderEmail:        input.TeamLeaderEmail,
		TeamLeaderPhone:        input.TeamLeaderPhone,
		TeamMembers:            input.TeamMembers,
		NumMicrophones:         input.NumMicrophones,
		DrumSetup:              input.DrumSetup,
		AdditionalRequirements: input.AdditionalRequirements,
		InstagramHandle:        input.InstagramHandle,
		TransactionID:          input.TransactionID,
	})
	if err != nil {
		return nil, mapRegistrationRepoError(err)
	}
	return reg, nil
}

func (s *registrationService) UpdatePaymentStatus(ctx context.Context, id string, input UpdatePaymentStatusInput) (*models.Registration, error) {
	newStatus := models.PaymentStatus(strings.TrimSpace(input.PaymentStatus))
	if !newStatus.Valid() {
		return nil, ErrInvalidPaymentStatus
	}
	transactionID := strings.TrimSpace(input.TransactionID)
	if transactionID != "" && (len(transactionID) < 5 || len(transactionID) > 100) {
		return nil, ValidationErrors{"transaction_id": "Transaction ID must be between 5 and 100 characters"}
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRegistrationRepoError(err)
	}

	// A rejected registration is a dead end; it can never be approved
	// again. The user has to create a new one.
	if current.RegistrationStatus == models.RegistrationRejected && newStatus == models.PaymentCompleted {
		return nil, ErrRegistrationRejected
	}

	upd := repositories.PaymentStatusUpdate{
		PaymentStatus: newStatus,
		TransactionID: transactionID,
		// The observed status doubles as the write precondition so a
		// concurrent transition surfaces as a conflict instead of a
		// silent lost update.
		ExpectedStatus: current.RegistrationStatus,
	}
	switch newStatus {
	case models.PaymentCompleted:
		confirmed := models.RegistrationConfirmed
		upd.RegistrationStatus = &confirmed
	case models.PaymentFailed:
		rejected := models.RegistrationRejected
		upd.RegistrationStatus = &rejected
	}

	reg, err := s.repo.UpdatePaymentStatus(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repositories.ErrStatusPrecondition) {
			if _, getErr := s.repo.GetByID(ctx, id); errors.Is(getErr, repositories.ErrRegistrationNotFound) {
				return nil, ErrRegistrationNotFound
			}
			return nil, ErrRegistrationModified
		}
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	return reg, nil
}

func (s *registrationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRegistrationRepoError(err)
	}
	return nil
}

func (s *registrationService) Stats(ctx context.Context) (*models.EventStats, error) {
	pairs, err := s.repo.ListStatusPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registration statistics: %w", err)
	}

	stats := &models.EventStats{
		TotalRegistrations: len(pairs),
		EventDetails:       models.SargamEventDetails(RegistrationFee),
	}
	for _, p := range pairs {
		switch p.RegistrationStatus {
		case models.RegistrationConfirmed:
			stats.Confirmed++
		case models.RegistrationPending:
			stats.Pending++
		}
		switch p.PaymentStatus {
		case models.PaymentCompleted:
			stats.PaymentsCompleted++
		case models.PaymentPending:
			stats.PaymentsPending++
		}
	}
	stats.TotalRevenue = stats.PaymentsCompleted * RegistrationFee

	return stats, nil
}

func (s *registrationService) AttachPaymentProof(ctx context.Context, id string, contentType string, file io.Reader) (*models.Registration, error) {
	if s.uploader == nil {
		return nil, ErrUploaderUnavailable
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, mapRegistrationRepoError(err)
	}

	key := fmt.Sprintf("payment-proofs/%s%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload payment proof: %w", err)
	}

	reg, err := s.repo.UpdateFields(ctx, id, repositories.RegistrationUpdate{
		PaymentProofURL: &result.Location,
	})
	if err != nil {
		return nil, mapRegistrationRepoError(err)
	}
	return reg, nil
}

func mapRegistrationRepoError(err error) error {
	if errors.Is(err, repositories.ErrRegistrationNotFound) {
		return ErrRegistrationNotFound
	}
	return err
}

func validateCreateInput(input CreateRegistrationInput) ValidationErrors {
	errs := ValidationErrors{}

	validateLength(errs, "team_name", input.TeamName, 2, 100, "Team name")
	validateLength(errs, "college_name", input.CollegeName, 2, 200, "College name")
	validateLength(errs, "team_leader_name", input.TeamLeaderName, 2, 100, "Team leader name")

	if strings.TrimSpace(input.TeamLeaderEmail) == "" {
		errs["team_leader_email"] = "Team leader email is required"
	} else if !isValidEmail(strings.TrimSpace(input.TeamLeaderEmail)) {
		errs["team_leader_email"] = "Please provide a valid email address"
	}

	if !isValidPhone(strings.TrimSpace(input.TeamLeaderPhone)) {
		errs["team_leader_phone"] = "Please provide a valid 10-digit phone number"
	}

	validateTeamMembers(errs, input.TeamMembers)

	if input.NumMicrophones < 1 || input.NumMicrophones > 20 {
		errs["num_microphones"] = "Number of microphones must be between 1 and 20"
	}

	if strings.TrimSpace(input.DrumSetup) == "" {
		errs["drum_setup"] = `Drum setup requirement is required (specify "none" if not needed)`
	}

	if len(input.AdditionalRequirements) > 1000 {
		errs["additional_requirements"] = "Additional requirements must not exceed 1000 characters"
	}
	if len(input.InstagramHandle) > 50 {
		errs["instagram_handle"] = "Instagram handle must not exceed 50 characters"
	}

	return errs
}

func validateUpdateInput(input UpdateRegistrationInput) ValidationErrors {
	errs := ValidationErrors{}

	if input.TeamName != nil {
		validateLength(errs, "team_name", *input.TeamName, 2, 100, "Team name")
	}
	if input.CollegeName != nil {
		validateLength(errs, "college_name", *input.CollegeName, 2, 200, "College name")
	}
	if input.TeamLeaderName != nil {
		validateLength(errs, "team_leader_name", *input.TeamLeaderName, 2, 100, "Team leader name")
	}
	if input.TeamLeaderEmail != nil && !isValidEmail(strings.TrimSpace(*input.TeamLeaderEmail)) {
		errs["team_leader_email"] = "Please provide a valid email address"
	}
	if input.TeamLeaderPhone != nil && !isValidPhone(strings.TrimSpace(*input.TeamLeaderPhone)) {
		errs["team_leader_phone"] = "Please provide a valid 10-digit phone number"
	}
	if input.TeamMembers != nil {
		validateTeamMembers(errs, *input.TeamMembers)
	}
	if input.NumMicrophones != nil && (*input.NumMicrophones < 1 || *input.NumMicrophones > 20) {
		errs["num_microphones"] = "Number of microphones must be between 1 and 20"
	}
	if input.DrumSetup != nil && strings.TrimSpace(*input.DrumSetup) == "" {
		errs["drum_setup"] = `Drum setup requirement is required (specify "none" if not needed)`
	}
	if input.AdditionalRequirements != nil && len(*input.AdditionalRequirements) > 1000 {
		errs["additional_requirements"] = "Additional requirements must not exceed 1000 characters"
	}
	if input.InstagramHandle != nil && len(*input.InstagramHandle) > 50 {
		errs["instagram_handle"] = "Instagram handle must not exceed 50 characters"
	}

	return errs
}

func validateTeamMembers(errs ValidationErrors, members []models.TeamMember) {
	if len(members) == 0 {
		errs["team_members"] = "At least one team member is required"
		return
	}
	for i, m := range members {
		if strings.TrimSpace(m.Name) == "" {
			errs[fmt.Sprintf("team_members[%d].name", i)] = "Team member name is required"
		}
		if strings.TrimSpace(m.Role) == "" {
			errs[fmt.Sprintf("team_members[%d].role", i)] = "Team member role/instrument is required"
		}
	}
}

func validateLength(errs ValidationErrors, field, value string, min, max int, label string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		errs[field] = label + " is required"
		return
	}
	if len(trimmed) < min || len(trimmed) > max {
		errs[field] = fmt.Sprintf("%s must be between %d and %d characters", label, min, max)
	}
}
