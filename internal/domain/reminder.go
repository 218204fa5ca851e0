package domain

import "github.com/shopspring/decimal"

// ReminderKind is the kind of email a reminder run sends for an obligation.
type ReminderKind string

const (
	ReminderNone     ReminderKind = ""
	ReminderUpcoming ReminderKind = "upcoming"
	ReminderOverdue  ReminderKind = "overdue"
)

// OwnedObligation is an obligation together with the user it belongs to.
// Used by batch jobs that read across all users.
type OwnedObligation struct {
	UserID     string
	Obligation RecurringObligation
	// Source is "subscription" or "debt".
	Source string
}

// UserContact is the subset of an auth user a reminder needs.
type UserContact struct {
	ID    string
	Email string
}

// Email is a single transactional email.
type Email struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Reminder is one obligation selected by a reminder run.
type Reminder struct {
	UserID        string
	Email         string
	Name          string
	Amount        decimal.Decimal
	DaysRemaining int
	Kind          ReminderKind
}

// ReminderRun summarizes one execution of the reminder job.
type ReminderRun struct {
	Success  bool   `json:"success"`
	Sent     int    `json:"sent"`
	Upcoming int    `json:"upcoming"`
	Overdue  int    `json:"overdue"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message,omitempty"`
}
