package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aaroha-fest/sargam-portal/models"
)

// In-memory implementations of both repositories. They back the
// service and handler test suites; the Postgres implementations are
// the production ones.

type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[string]models.User)}
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrUserEmailConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryUserRepository) Upsert(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		existing.Email = user.Email
		if user.Name != "" {
			existing.Name = user.Name
		}
		if user.Phone != "" {
			existing.Phone = user.Phone
		}
		if user.CollegeName != "" {
			existing.CollegeName = user.CollegeName
		}
		existing.UpdatedAt = now
		r.users[user.ID] = existing
		*user = existing
		return nil
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *InMemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryUserRepository) UpdateProfile(_ context.Context, id string, name, phone, collegeName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Name = name
	u.Phone = phone
	u.CollegeName = collegeName
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return &u, nil
}

func (r *InMemoryUserRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordResetToken = nil
	u.PasswordResetExpiresAt = nil
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *InMemoryUserRepository) SetPasswordResetToken(_ context.Context, id string, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpiresAt = &expiresAt
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *InMemoryUserRepository) GetByPasswordResetToken(_ context.Context, token string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryUserRepository) List(_ context.Context, role string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0)
	for _, u := range r.users {
		if role == "" || string(u.Role) == role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

type InMemoryRegistrationRepository struct {
	mu            sync.RWMutex
	registrations map[string]models.Registration
}

func NewInMemoryRegistrationRepository() *InMemoryRegistrationRepository {
	return &InMemoryRegistrationRepository{registrations: make(map[string]models.Registration)}
}

func (r *InMemoryRegistrationRepository) Create(_ context.Context, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	r.registrations[reg.RegistrationID] = *reg
	return nil
}

func (r *InMemoryRegistrationRepository) GetByID(_ context.Context, id string) (*models.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return &reg, nil
}

func (r *InMemoryRegistrationRepository) ListByUserID(_ context.Context, userID string) ([]models.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := make([]models.Registration, 0)
	for _, reg := range r.registrations {
		if reg.UserID == userID {
			regs = append(regs, reg)
		}
	}
	sortByCreatedAtDesc(regs)
	return regs, nil
}

func (r *InMemoryRegistrationRepository) List(_ context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := make([]models.Registration, 0)
	for _, reg := range r.registrations {
		if filter.Status != "" && string(reg.RegistrationStatus) != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && string(reg.PaymentStatus) != filter.PaymentStatus {
			continue
		}
		regs = append(regs, reg)
	}
	sortByCreatedAtDesc(regs)
	return regs, nil
}

func (r *InMemoryRegistrationRepository) UpdateFields(_ context.Context, id string, upd RegistrationUpdate) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	if upd.TeamName != nil {
		reg.TeamName = *upd.TeamName
	}
	if upd.CollegeName != nil {
		reg.CollegeName = *upd.CollegeName
	}
	if upd.TeamLeaderName != nil {
		reg.TeamLeaderName = *upd.TeamLeaderName
	}
	if upd.TeamLeaderEmail != nil {
		reg.TeamLeaderEmail = *upd.TeamLeaderEmail
	}
	if upd.TeamLeaderPhone != nil {
		reg.TeamLeaderPhone = *upd.TeamLeaderPhone
	}
	if upd.TeamMembers != nil {
		reg.TeamMembers = append([]models.TeamMember(nil), (*upd.TeamMembers)...)
	}
	if upd.NumMicrophones != nil {
		reg.NumMicrophones = *upd.NumMicrophones
	}
	if upd.DrumSetup != nil {
		reg.DrumSetup = *upd.DrumSetup
	}
	if upd.AdditionalRequirements != nil {
		reg.AdditionalRequirements = *upd.AdditionalRequirements
	}
	if upd.InstagramHandle != nil {
		reg.InstagramHandle = *upd.InstagramHandle
	}
	if upd.TransactionID != nil {
		reg.TransactionID = *upd.TransactionID
	}
	if upd.PaymentProofURL != nil {
		reg.PaymentProofURL = *upd.PaymentProofURL
	}
	reg.UpdatedAt = time.Now().UTC()
	r.registrations[id] = reg
	return &reg, nil
}

func (r *InMemoryRegistrationRepository) UpdatePaymentStatus(_ context.Context, id string, upd PaymentStatusUpdate) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok || reg.RegistrationStatus != upd.ExpectedStatus {
		return nil, ErrStatusPrecondition
	}
	reg.PaymentStatus = upd.PaymentStatus
	if upd.RegistrationStatus != nil {
		reg.RegistrationStatus = *upd.RegistrationStatus
	}
	if upd.TransactionID != "" {
		reg.TransactionID = upd.TransactionID
	}
	reg.UpdatedAt = time.Now().UTC()
	r.registrations[id] = reg
	return &reg, nil
}

func (r *InMemoryRegistrationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registrations[id]; !ok {
		return ErrRegistrationNotFound
	}
	delete(r.registrations, id)
	return nil
}

func (r *InMemoryRegistrationRepository) ListStatusPairs(_ context.Context) ([]models.StatusPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pairs := make([]models.StatusPair, 0, len(r.registrations))
	for _, reg := range r.registrations {
		pairs = append(pairs, models.StatusPair{
			RegistrationStatus: reg.RegistrationStatus,
			PaymentStatus:      reg.PaymentStatus,
		})
	}
	return pairs, nil
}

func sortByCreatedAtDesc(regs []models.Registration) {
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.After(regs[j].CreatedAt) })
}
