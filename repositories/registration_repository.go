package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aaroha-fest/sargam-portal/models"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrStatusPrecondition is returned when a conditional payment
	// update matched no row. The caller decides whether the row is
	// gone or was changed underneath it.
	ErrStatusPrecondition = errors.New("registration status precondition failed")
)

// RegistrationUpdate carries a partial update. Nil fields are left
// untouched. registration_id and created_at are deliberately not
// representable here.
type RegistrationUpdate struct {
	TeamName               *string
	CollegeName            *string
	TeamLeaderName         *string
	TeamLeaderEmail        *string
	TeamLeaderPhone        *string
	TeamMembers            *[]models.TeamMember
	NumMicrophones         *int
	DrumSetup              *string
	AdditionalRequirements *string
	InstagramHandle        *string
	TransactionID          *string
	PaymentProofURL        *string
}

// PaymentStatusUpdate is applied as a single conditional write: the
// row must still be in ExpectedStatus for the update to take effect.
type PaymentStatusUpdate struct {
	PaymentStatus      models.PaymentStatus
	RegistrationStatus *models.RegistrationStatus
	TransactionID      string
	ExpectedStatus     models.RegistrationStatus
}

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	ListByUserID(ctx context.Context, userID string) ([]models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	UpdateFields(ctx context.Context, id string, upd RegistrationUpdate) (*models.Registration, error)
	UpdatePaymentStatus(ctx context.Context, id string, upd PaymentStatusUpdate) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
	ListStatusPairs(ctx context.Context) ([]models.StatusPair, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `registration_id, user_id, team_name, college_name, team_leader_name, team_leader_email, team_leader_phone, team_members, num_microphones, drum_setup, additional_requirements, instagram_handle, transaction_id, payment_proof_url, registration_fee, payment_status, registration_status, created_at, updated_at`

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	members, err := json.Marshal(reg.TeamMembers)
	if err != nil {
		return fmt.Errorf("failed to encode team members: %w", err)
	}

	query := `
		INSERT INTO registrations (
			registration_id, user_id, team_name, college_name,
			team_leader_name, team_leader_email, team_leader_phone,
			team_members, num_microphones, drum_setup,
			additional_requirements, instagram_handle, transaction_id,
			registration_fee, payment_status, registration_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		reg.RegistrationID,
		reg.UserID,
		reg.TeamName,
		reg.CollegeName,
		reg.TeamLeaderName,
		reg.TeamLeaderEmail,
		reg.TeamLeaderPhone,
		members,
		reg.NumMicrophones,
		reg.DrumSetup,
		reg.AdditionalRequirements,
		reg.InstagramHandle,
		reg.TransactionID,
		reg.RegistrationFee,
		reg.PaymentStatus,
		reg.RegistrationStatus,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE registration_id = $1`
	return r.scanRegistration(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRegistrationRepository) ListByUserID(ctx context.Context, userID string) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`
	return r.listRegistrations(ctx, query, userID)
}

func (r *postgresRegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations`
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("registration_status = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		clauses = append(clauses, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return r.listRegistrations(ctx, query, args...)
}

func (r *postgresRegistrationRepository) UpdateFields(ctx context.Context, id string, upd RegistrationUpdate) (*models.Registration, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.TeamName != nil {
		set("team_name", *upd.TeamName)
	}
	if upd.CollegeName != nil {
		set("college_name", *upd.CollegeName)
	}
	if upd.TeamLeaderName != nil {
		set("team_leader_name", *upd.TeamLeaderName)
	}
	if upd.TeamLeaderEmail != nil {
		set("team_leader_email", *upd.TeamLeaderEmail)
	}
	if upd.TeamLeaderPhone != nil {
		set("team_leader_phone", *upd.TeamLeaderPhone)
	}
	if upd.TeamMembers != nil {
		members, err := json.Marshal(*upd.TeamMembers)
		if err != nil {
			return nil, fmt.Errorf("failed to encode team members: %w", err)
		}
		set("team_members", members)
	}
	if upd.NumMicrophones != nil {
		set("num_microphones", *upd.NumMicrophones)
	}
	if upd.DrumSetup != nil {
		set("drum_setup", *upd.DrumSetup)
	}
	if upd.AdditionalRequirements != nil {
		set("additional_requirements", *upd.AdditionalRequirements)
	}
	if upd.InstagramHandle != nil {
		set("instagram_handle", *upd.InstagramHandle)
	}
	if upd.TransactionID != nil {
		set("transaction_id", *upd.TransactionID)
	}
	if upd.PaymentProofURL != nil {
		set("payment_proof_url", *upd.PaymentProofURL)
	}

	if len(sets) == 0 {
		// Nothing to change; still verify the row exists.
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE registrations SET %s WHERE registration_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), registrationColumns,
	)

	return r.scanRegistration(r.db.QueryRowContext(ctx, query, args...))
}

func (r *postgresRegistrationRepository) UpdatePaymentStatus(ctx context.Context, id string, upd PaymentStatusUpdate) (*models.Registration, error) {
	query := `
		UPDATE registrations SET
			payment_status = $1,
			registration_status = COALESCE($2, registration_status),
			transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
			updated_at = now()
		WHERE registration_id = $4 AND registration_status = $5
		RETURNING ` + registrationColumns

	var regStatus interface{}
	if upd.RegistrationStatus != nil {
		regStatus = string(*upd.RegistrationStatus)
	}

	reg, err := r.scanRegistration(r.db.QueryRowContext(ctx, query,
		upd.PaymentStatus,
		regStatus,
		upd.TransactionID,
		id,
		upd.ExpectedStatus,
	))
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return nil, ErrStatusPrecondition
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE registration_id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) ListStatusPairs(ctx context.Context) ([]models.StatusPair, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT registration_status, payment_status FROM registrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]models.StatusPair, 0)
	for rows.Next() {
		var p models.StatusPair
		if err := rows.Scan(&p.RegistrationStatus, &p.PaymentStatus); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRegistrationRepository) scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	var (
		members                []byte
		additionalRequirements sql.NullString
		instagramHandle        sql.NullString
		transactionID          sql.NullString
		paymentProofURL        sql.NullString
	)
	err := row.Scan(
		&reg.RegistrationID,
		&reg.UserID,
		&reg.TeamName,
		&reg.CollegeName,
		&reg.TeamLeaderName,
		&reg.TeamLeaderEmail,
		&reg.TeamLeaderPhone,
		&members,
		&reg.NumMicrophones,
		&reg.DrumSetup,
		&additionalRequirements,
		&instagramHandle,
		&transactionID,
		&paymentProofURL,
		&reg.RegistrationFee,
		&reg.PaymentStatus,
		&reg.RegistrationStatus,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration: %w", err)
	}

	if len(members) > 0 {
		if err := json.Unmarshal(members, &reg.TeamMembers); err != nil {
			return nil, fmt.Errorf("failed to decode team members: %w", err)
		}
	}
	reg.AdditionalRequirements = additionalRequirements.String
	reg.InstagramHandle = instagramHandle.String
	reg.TransactionID = transactionID.String
	reg.PaymentProofURL = paymentProofURL.String

	return reg, nil
}

func (r *postgresRegistrationRepository) listRegistrations(ctx context.Context, query string, args ...interface{}) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		reg, scanErr := r.scanRegistration(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		regs = append(regs, *reg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}
