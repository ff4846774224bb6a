package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/repositories"
	"github.com/aaroha-fest/sargam-portal/storage"
	"github.com/stretchr/testify/suite"
)

type RegistrationServiceSuite struct {
	suite.Suite
	ctx  context.Context
	repo *repositories.InMemoryRegistrationRepository
	svc  RegistrationService
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = repositories.NewInMemoryRegistrationRepository()
	s.svc = NewRegistrationService(s.repo, nil)
}

func validCreateInput() CreateRegistrationInput {
	return CreateRegistrationInput{
		TeamName:        "The Resonants",
		CollegeName:     "National Institute of Design",
		TeamLeaderName:  "Asha Pillai",
		TeamLeaderEmail: "asha@example.com",
		TeamLeaderPhone: "9876543210",
		TeamMembers: []models.TeamMember{
			{Name: "Asha Pillai", Role: "vocals"},
			{Name: "Rohan Das", Role: "drums"},
		},
		NumMicrophones: 4,
		DrumSetup:      "full acoustic kit",
	}
}

func (s *RegistrationServiceSuite) TestCreateDefaults() {
	reg, payment, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	s.NotEmpty(reg.RegistrationID)
	s.Equal("user-1", reg.UserID)
	s.Equal(models.PaymentPending, reg.PaymentStatus)
	s.Equal(models.RegistrationPending, reg.RegistrationStatus)
	s.Equal(RegistrationFee, reg.RegistrationFee)

	s.Require().NotNil(payment)
	s.Equal(RegistrationFee, payment.Amount)
	s.Equal("INR", payment.Currency)
}

func (s *RegistrationServiceSuite) TestCreateValidation() {
	s.Run("empty input", func() {
		_, _, err := s.svc.Create(s.ctx, "user-1", CreateRegistrationInput{})

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "team_name")
		s.Contains(errs, "team_leader_email")
		s.Contains(errs, "team_members")
		s.Contains(errs, "num_microphones")
		s.Contains(errs, "drum_setup")
	})

	s.Run("bad phone", func() {
		input := validCreateInput()
		input.TeamLeaderPhone = "12345"
		_, _, err := s.svc.Create(s.ctx, "user-1", input)

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "team_leader_phone")
	})

	s.Run("member missing role", func() {
		input := validCreateInput()
		input.TeamMembers = []models.TeamMember{{Name: "Solo", Role: ""}}
		_, _, err := s.svc.Create(s.ctx, "user-1", input)

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "team_members[0].role")
	})

	s.Run("too many microphones", func() {
		input := validCreateInput()
		input.NumMicrophones = 21
		_, _, err := s.svc.Create(s.ctx, "user-1", input)

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "num_microphones")
	})

	s.Run("oversized additional requirements", func() {
		input := validCreateInput()
		input.AdditionalRequirements = strings.Repeat("x", 1001)
		_, _, err := s.svc.Create(s.ctx, "user-1", input)

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "additional_requirements")
	})
}

func (s *RegistrationServiceSuite) TestCreateRejectsSecondActiveRegistration() {
	_, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	_, _, err = s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.ErrorIs(err, ErrAlreadyRegistered)

	// A different user is unaffected.
	_, _, err = s.svc.Create(s.ctx, "user-2", validCreateInput())
	s.NoError(err)
}

func (s *RegistrationServiceSuite) TestCreateAllowedAfterPaymentFailure() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	_, err = s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "failed"})
	s.Require().NoError(err)

	// The failed registration no longer occupies the slot.
	_, _, err = s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.NoError(err)
}

func (s *RegistrationServiceSuite) TestPaymentCompletedConfirms() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	updated, err := s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{
		PaymentStatus: "completed",
		TransactionID: "UPI-2026-001",
	})
	s.Require().NoError(err)
	s.Equal(models.PaymentCompleted, updated.PaymentStatus)
	s.Equal(models.RegistrationConfirmed, updated.RegistrationStatus)
	s.Equal("UPI-2026-001", updated.TransactionID)
}

func (s *RegistrationServiceSuite) TestPaymentFailedRejects() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	updated, err := s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "failed"})
	s.Require().NoError(err)
	s.Equal(models.PaymentFailed, updated.PaymentStatus)
	s.Equal(models.RegistrationRejected, updated.RegistrationStatus)
}

func (s *RegistrationServiceSuite) TestRejectedRegistrationIsADeadEnd() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	_, err = s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "failed"})
	s.Require().NoError(err)

	_, err = s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "completed"})
	s.ErrorIs(err, ErrRegistrationRejected)

	// The record is untouched by the refused transition.
	current, err := s.svc.GetByID(s.ctx, reg.RegistrationID)
	s.Require().NoError(err)
	s.Equal(models.PaymentFailed, current.PaymentStatus)
	s.Equal(models.RegistrationRejected, current.RegistrationStatus)
}

func (s *RegistrationServiceSuite) TestUpdatePaymentStatusValidation() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	s.Run("unknown status", func() {
		_, err := s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "paid"})
		s.ErrorIs(err, ErrInvalidPaymentStatus)
	})

	s.Run("short transaction id", func() {
		_, err := s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{
			PaymentStatus: "completed",
			TransactionID: "abc",
		})
		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "transaction_id")
	})

	s.Run("missing registration", func() {
		_, err := s.svc.UpdatePaymentStatus(s.ctx, "missing", UpdatePaymentStatusInput{PaymentStatus: "completed"})
		s.ErrorIs(err, ErrRegistrationNotFound)
	})
}

// conflictingRepo simulates a concurrent status transition between the
// service's read and its conditional write.
type conflictingRepo struct {
	*repositories.InMemoryRegistrationRepository
	flipTo models.RegistrationStatus
}

func (r *conflictingRepo) UpdatePaymentStatus(ctx context.Context, id string, upd repositories.PaymentStatusUpdate) (*models.Registration, error) {
	confirmed := r.flipTo
	_, _ = r.InMemoryRegistrationRepository.UpdatePaymentStatus(ctx, id, repositories.PaymentStatusUpdate{
		PaymentStatus:      models.PaymentCompleted,
		RegistrationStatus: &confirmed,
		ExpectedStatus:     upd.ExpectedStatus,
	})
	return r.InMemoryRegistrationRepository.UpdatePaymentStatus(ctx, id, upd)
}

func (s *RegistrationServiceSuite) TestConcurrentStatusChangeIsAConflict() {
	inner := repositories.NewInMemoryRegistrationRepository()
	svc := NewRegistrationService(&conflictingRepo{InMemoryRegistrationRepository: inner, flipTo: models.RegistrationConfirmed}, nil)

	reg, _, err := svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	_, err = svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "completed"})
	s.ErrorIs(err, ErrRegistrationModified)
}

func (s *RegistrationServiceSuite) TestUpdateFields() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	newName := "The Overtones"
	mics := 6
	updated, err := s.svc.UpdateFields(s.ctx, reg.RegistrationID, UpdateRegistrationInput{
		TeamName:       &newName,
		NumMicrophones: &mics,
	})
	s.Require().NoError(err)
	s.Equal("The Overtones", updated.TeamName)
	s.Equal(6, updated.NumMicrophones)
	// Untouched fields survive a partial update.
	s.Equal("National Institute of Design", updated.CollegeName)

	s.Run("invalid partial value", func() {
		short := "x"
		_, err := s.svc.UpdateFields(s.ctx, reg.RegistrationID, UpdateRegistrationInput{TeamName: &short})
		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "team_name")
	})

	s.Run("missing registration", func() {
		_, err := s.svc.UpdateFields(s.ctx, "missing", UpdateRegistrationInput{TeamName: &newName})
		s.ErrorIs(err, ErrRegistrationNotFound)
	})
}

func (s *RegistrationServiceSuite) TestDelete() {
	reg, _, err := s.svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, reg.RegistrationID))

	_, err = s.svc.GetByID(s.ctx, reg.RegistrationID)
	s.ErrorIs(err, ErrRegistrationNotFound)

	s.ErrorIs(s.svc.Delete(s.ctx, reg.RegistrationID), ErrRegistrationNotFound)
}

func (s *RegistrationServiceSuite) TestStats() {
	for i, userID := range []string{"u1", "u2", "u3", "u4"} {
		reg, _, err := s.svc.Create(s.ctx, userID, validCreateInput())
		s.Require().NoError(err)

		switch i {
		case 0, 1:
			_, err = s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "completed"})
		case 2:
			_, err = s.svc.UpdatePaymentStatus(s.ctx, reg.RegistrationID, UpdatePaymentStatusInput{PaymentStatus: "failed"})
		}
		s.Require().NoError(err)
	}

	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)

	s.Equal(4, stats.TotalRegistrations)
	s.Equal(2, stats.Confirmed)
	s.Equal(1, stats.Pending)
	s.Equal(2, stats.PaymentsCompleted)
	s.Equal(1, stats.PaymentsPending)
	s.Equal(2*RegistrationFee, stats.TotalRevenue)
	s.Equal(models.EventName, stats.EventDetails.Name)
}

type fakeUploader struct {
	lastKey         string
	lastContentType string
}

func (f *fakeUploader) Upload(_ context.Context, key string, contentType string, _ io.Reader) (*storage.UploadResult, error) {
	f.lastKey = key
	f.lastContentType = contentType
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (f *fakeUploader) Delete(context.Context, string) error { return nil }

func (f *fakeUploader) GetPublicURL(key string) string { return "https://cdn.example.com/" + key }

func (s *RegistrationServiceSuite) TestAttachPaymentProof() {
	uploader := &fakeUploader{}
	svc := NewRegistrationService(s.repo, uploader)

	reg, _, err := svc.Create(s.ctx, "user-1", validCreateInput())
	s.Require().NoError(err)

	updated, err := svc.AttachPaymentProof(s.ctx, reg.RegistrationID, "image/png", strings.NewReader("fake-bytes"))
	s.Require().NoError(err)
	s.Equal("payment-proofs/"+reg.RegistrationID+".png", uploader.lastKey)
	s.Equal("https://cdn.example.com/"+uploader.lastKey, updated.PaymentProofURL)

	s.Run("unsupported content type", func() {
		_, err := svc.AttachPaymentProof(s.ctx, reg.RegistrationID, "application/pdf", strings.NewReader("x"))
		s.ErrorIs(err, ErrUnsupportedFileType)
	})

	s.Run("missing registration", func() {
		_, err := svc.AttachPaymentProof(s.ctx, "missing", "image/png", strings.NewReader("x"))
		s.ErrorIs(err, ErrRegistrationNotFound)
	})

	s.Run("no uploader configured", func() {
		_, err := s.svc.AttachPaymentProof(s.ctx, reg.RegistrationID, "image/png", strings.NewReader("x"))
		s.ErrorIs(err, ErrUploaderUnavailable)
	})
}
