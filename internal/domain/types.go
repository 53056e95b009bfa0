package domain

import "time"

// OTPNotFound is the placeholder stored when no code could be extracted.
const OTPNotFound = "N/A"

// Message is one normalized panel item as shown in the feed.
type Message struct {
	ID          string `json:"id"`
	OTP         string `json:"otp"`
	Phone       string `json:"phone"`
	PhoneMasked string `json:"phone_masked"`
	Service     string `json:"service"`
	Country     string `json:"country"`
	CountryFlag string `json:"country_flag"`
	Timestamp   string `json:"timestamp"`
	RawMessage  string `json:"raw_message"`
}

// Counters are the aggregate feed and poller statistics.
type Counters struct {
	StartTime    time.Time `json:"start_time"`
	TotalOTPs    int       `json:"total_otps"`
	LastCheck    string    `json:"last_check"`
	LastInserted int       `json:"last_inserted"`
	Running      bool      `json:"is_running"`
	Status       string    `json:"scraper_status"`
	LastError    string    `json:"last_error,omitempty"`
	APIResponse  string    `json:"api_response,omitempty"`
	Cycles       uint64    `json:"cycles"`
	Failures     uint64    `json:"failures"`
}

// Snapshot is a consistent copy of the feed for display.
type Snapshot struct {
	Messages []Message `json:"messages"`
	Stats    Counters  `json:"stats"`
	Debug    []string  `json:"debug"`
}

// Diagnostics is the full troubleshooting view of the pipeline.
type Diagnostics struct {
	Stats         Counters `json:"stats"`
	Logs          []string `json:"logs"`
	MessagesCount int      `json:"messages_count"`
	DedupSize     int      `json:"dedup_size"`
	Uptime        string   `json:"uptime"`
}

// SessionState describes the panel session. Token is empty when absent.
type SessionState struct {
	LoggedIn bool
	Token    string
}
