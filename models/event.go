package models

// Static details of the single event this portal serves.

const (
	EventName      = "AAROHA 2026 - Battle of Bands: SARGAM"
	EventPrizePool = 60000
)

type EventDetails struct {
	Name            string `json:"name"`
	PrizePool       int    `json:"prize_pool"`
	EventTime       string `json:"event_time"`
	ReportingTime   string `json:"reporting_time"`
	RegistrationFee int    `json:"registration_fee"`
}

// EventInfo is the public, human-readable variant served by the
// event-info endpoint.
type EventInfo struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	PrizePool       string   `json:"prize_pool"`
	EventTime       string   `json:"event_time"`
	ReportingTime   string   `json:"reporting_time"`
	RegistrationFee string   `json:"registration_fee"`
	Requirements    []string `json:"requirements"`
}

func SargamEventDetails(registrationFee int) EventDetails {
	return EventDetails{
		Name:            EventName,
		PrizePool:       EventPrizePool,
		EventTime:       "12:00 PM – 6:00 PM",
		ReportingTime:   "10:00 AM",
		RegistrationFee: registrationFee,
	}
}

func SargamEventInfo() EventInfo {
	return EventInfo{
		Name:            EventName,
		Description:     "A high-energy inter-college music showdown bringing together the most talented campus bands for an electrifying live performance experience.",
		PrizePool:       "₹60,000",
		EventTime:       "12:00 PM – 6:00 PM",
		ReportingTime:   "10:00 AM (2 hours prior - Mandatory)",
		RegistrationFee: "₹1200 per team",
		Requirements: []string{
			"Team must specify number of microphones",
			"Team must specify drum setup requirements",
			"Any additional technical requirements must be mentioned",
		},
	}
}
