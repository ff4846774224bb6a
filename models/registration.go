package models

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationRejected  RegistrationStatus = "rejected"
)

type TeamMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type Registration struct {
	RegistrationID         string             `json:"registration_id"`
	UserID                 string             `json:"user_id"`
	TeamName               string             `json:"team_name"`
	CollegeName            string             `json:"college_name"`
	TeamLeaderName         string             `json:"team_leader_name"`
	TeamLeaderEmail        string             `json:"team_leader_email"`
	TeamLeaderPhone        string             `json:"team_leader_phone"`
	TeamMembers            []TeamMember       `json:"team_members"`
	NumMicrophones         int                `json:"num_microphones"`
	DrumSetup              string             `json:"drum_setup"`
	AdditionalRequirements string             `json:"additional_requirements,omitempty"`
	InstagramHandle        string             `json:"instagram_handle,omitempty"`
	TransactionID          string             `json:"transaction_id,omitempty"`
	PaymentProofURL        string             `json:"payment_proof_url,omitempty"`
	RegistrationFee        int                `json:"registration_fee"`
	PaymentStatus          PaymentStatus      `json:"payment_status"`
	RegistrationStatus     RegistrationStatus `json:"registration_status"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Active reports whether this registration still occupies the user's
// single registration slot. Rejected registrations and registrations
// whose payment failed do not block a new attempt.
func (r *Registration) Active() bool {
	return r.RegistrationStatus != RegistrationRejected && r.PaymentStatus != PaymentFailed
}

// PaymentDetails is returned alongside a freshly created registration
// so the client can render the manual UPI payment instructions.
type PaymentDetails struct {
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

type RegistrationFilter struct {
	Status        string
	PaymentStatus string
}

// StatusPair is the projection used by the stats overview scan.
type StatusPair struct {
	RegistrationStatus RegistrationStatus
	PaymentStatus      PaymentStatus
}

type EventStats struct {
	TotalRegistrations int          `json:"total_registrations"`
	Confirmed          int          `json:"confirmed"`
	Pending            int          `json:"pending"`
	PaymentsCompleted  int          `json:"payments_completed"`
	PaymentsPending    int          `json:"payments_pending"`
	TotalRevenue       int          `json:"total_revenue"`
	EventDetails       EventDetails `json:"event_details"`
}
