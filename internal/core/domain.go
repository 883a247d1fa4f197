package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	FlowIncome  FlowType = "income"
	FlowExpense FlowType = "expense"
)

type (
	// FlowType classifies a transaction as income or expense. The sign of a
	// movement is carried here, never by the amount.
	FlowType string

	Date struct {
		time.Time
	}

	// MonthKey identifies a calendar month as "YYYY-MM".
	MonthKey string

	Money struct {
		Cents int64
	}

	// Transaction is a single dated ledger entry. Records are append-only:
	// corrections happen by entering a compensating record, never by edits.
	Transaction struct {
		ID       int64
		Date     Date
		Category string
		Flow     FlowType
		Amount   Money
		Note     string
	}

	// HeadcountRecord is the registered herd size for one month. At most one
	// record exists per month key; zero is a valid value (herd fully sold).
	HeadcountRecord struct {
		MonthKey  MonthKey
		Headcount int64
		Note      string
	}
)

// Categories mirrors the entry form of the original operation: feed,
// utilities, veterinary care, calf purchases, cattle sales, subsidies, land.
var Categories = []string{
	"feed",
	"electricity",
	"water",
	"veterinary",
	"calf_purchase",
	"cattle_sale",
	"subsidy",
	"land",
	"other",
}

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonthKey   = errors.New("invalid month key")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrUnknownFlowType   = errors.New("unknown flow type")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrNegativeHeadcount = errors.New("negative headcount")
)

func (f FlowType) Validate() error {
	switch f {
	case FlowIncome, FlowExpense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFlowType, string(f))
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthKey derives the "YYYY-MM" key of the date's calendar month.
func (d Date) MonthKey() MonthKey {
	return MonthKey(d.Format("2006-01"))
}

// NewMonthKey builds a key from numeric year and month.
func NewMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// Parse splits the key into numeric year and month.
func (k MonthKey) Parse() (year, month int, err error) {
	t, err := time.Parse("2006-01", string(k))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, string(k))
	}
	return t.Year(), int(t.Month()), nil
}

func (k MonthKey) Validate() error {
	_, _, err := k.Parse()
	return err
}

// Year returns the "YYYY" portion of the key.
func (k MonthKey) Year() string {
	if len(k) < 4 {
		return ""
	}
	return string(k[:4])
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Flow.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrUnknownCategory
	}
	known := false
	for _, c := range Categories {
		if c == t.Category {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, t.Category)
	}
	if len(t.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

func (h HeadcountRecord) Validate() error {
	if err := h.MonthKey.Validate(); err != nil {
		return err
	}
	if h.Headcount < 0 {
		return ErrNegativeHeadcount
	}
	if len(h.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}
