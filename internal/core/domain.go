package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Owned  OwnershipType = "Owned"
	Rented OwnershipType = "Rented"
	Vacant OwnershipType = "Vacant"

	FlatActive   FlatStatus = "Active"
	FlatInactive FlatStatus = "Inactive"

	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"

	DefaultFlatType    = "1BHK"
	DefaultPaymentMode = "Cash"

	// DateLayout is the wire and storage layout of calendar dates.
	DateLayout = "2006-01-02"
)

type (
	OwnershipType string
	FlatStatus    string
	Role          string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Flat struct {
		ID                int64         `json:"id"`
		FlatNumber        string        `json:"flat_number"`
		OwnerName         string        `json:"owner_name"`
		PhoneNumber       string        `json:"phone_number,omitempty"`
		Floor             string        `json:"floor,omitempty"`
		FlatType          string        `json:"flat_type"`
		MaintenanceAmount Money         `json:"maintenance_amount"`
		OwnershipType     OwnershipType `json:"ownership_type"`
		Status            FlatStatus    `json:"status"`
	}

	Payment struct {
		ID           int64     `json:"id"`
		FlatID       int64     `json:"flat_id"`
		AmountPaid   Money     `json:"amount_paid"`
		Mode         string    `json:"payment_mode"`
		PaymentDate  Date      `json:"payment_date"`
		BillingMonth int       `json:"month"`
		BillingYear  int       `json:"year"`
		Remarks      string    `json:"remarks,omitempty"`
		CreatedBy    *int64    `json:"created_by,omitempty"`
		UpdatedBy    *int64    `json:"updated_by,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	// PaymentView is a payment joined with its flat and audit user names.
	PaymentView struct {
		Payment
		FlatNumber    string `json:"flat_number"`
		OwnerName     string `json:"owner_name"`
		CreatedByName string `json:"created_by_name,omitempty"`
		UpdatedByName string `json:"updated_by_name,omitempty"`
	}

	Expense struct {
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		Amount      Money     `json:"amount"`
		Date        Date      `json:"date"`
		PaidBy      string    `json:"paid_by,omitempty"`
		CreatedBy   *int64    `json:"created_by,omitempty"`
		UpdatedBy   *int64    `json:"updated_by,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	User struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		Username     string `json:"username,omitempty"`
		Mobile       string `json:"mobile,omitempty"`
		PasswordHash string `json:"-"`
		Role         Role   `json:"role"`
		Status       string `json:"status"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyFlatNumber  = errors.New("empty flat number")
	ErrInvalidOwnership = errors.New("invalid ownership type")
	ErrInvalidRole      = errors.New("invalid role")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display formats the date as DD-MM-YYYY for printed reports.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02-01-2006")
}

// Period returns the calendar month containing the date.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		// A full timestamp keeps its own calendar day.
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Date{}, NewValidationError("date", "expected YYYY-MM-DD")
		}
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, NewValidationError("date", "expected YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return NewValidationError("date", "expected a string")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (o OwnershipType) Valid() bool {
	switch o {
	case Owned, Rented, Vacant:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may change ledger records.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleManager
}

func (f Flat) Validate() error {
	if strings.TrimSpace(f.FlatNumber) == "" {
		return NewValidationError("flat_number", ErrEmptyFlatNumber.Error())
	}
	if strings.TrimSpace(f.OwnerName) == "" {
		return NewValidationError("owner_name", "required")
	}
	if f.MaintenanceAmount.Cents < 0 {
		return NewValidationError("maintenance_amount", ErrInvalidAmount.Error())
	}
	if !f.OwnershipType.Valid() {
		return NewValidationError("ownership_type", ErrInvalidOwnership.Error())
	}
	if f.Status != FlatActive && f.Status != FlatInactive {
		return NewValidationError("status", "must be Active or Inactive")
	}
	return nil
}

// WithDefaults fills the optional flat fields the way the admin form does.
func (f Flat) WithDefaults() Flat {
	if f.FlatType == "" {
		f.FlatType = DefaultFlatType
	}
	if f.Status == "" {
		f.Status = FlatActive
	}
	return f
}

func (p Payment) Validate() error {
	if p.FlatID <= 0 {
		return NewValidationError("flat_id", "required")
	}
	if p.AmountPaid.Cents <= 0 {
		return NewValidationError("amount", ErrInvalidAmount.Error())
	}
	if err := p.PaymentDate.Validate(); err != nil {
		return NewValidationError("paid_date", err.Error())
	}
	if err := (Period{Year: p.BillingYear, Month: p.BillingMonth}).Validate(); err != nil {
		return err
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return NewValidationError("title", ErrEmptyTitle.Error())
	}
	if len(e.Title) > 200 {
		return NewValidationError("title", "too long (max 200 characters)")
	}
	if e.Amount.Cents <= 0 {
		return NewValidationError("amount", ErrInvalidAmount.Error())
	}
	if err := e.Date.Validate(); err != nil {
		return NewValidationError("date", err.Error())
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return NewValidationError("name", "required")
	}
	if strings.TrimSpace(u.Email) == "" && strings.TrimSpace(u.Username) == "" && strings.TrimSpace(u.Mobile) == "" {
		return NewValidationError("email", "one of email, username or mobile is required")
	}
	if !u.Role.Valid() {
		return NewValidationError("role", ErrInvalidRole.Error())
	}
	return nil
}
