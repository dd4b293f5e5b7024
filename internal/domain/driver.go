package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// DriverKind distinguishes drivers with a persistent account from drivers
// known only by their contact details.
type DriverKind string

const (
	DriverKindAffiliated DriverKind = "AFFILIATED"
	DriverKindAdHoc      DriverKind = "AD_HOC"
)

// AdHocDriver holds the contact details and agreed fee of a one-off driver.
type AdHocDriver struct {
	Name        string
	Phone       string
	PlateNumber string
	FixedFee    decimal.Decimal
}

// DriverAssignment is the single typed answer to "who drives this trip".
// Exactly one of DriverID (affiliated) or AdHoc (ad-hoc) is set, according to Kind.
type DriverAssignment struct {
	Kind     DriverKind
	DriverID string
	AdHoc    *AdHocDriver
}

// Affiliated assigns a driver that already has an account.
func Affiliated(driverID string) *DriverAssignment {
	return &DriverAssignment{Kind: DriverKindAffiliated, DriverID: driverID}
}

// AdHoc assigns a driver identified only by contact details.
func AdHoc(driver AdHocDriver) *DriverAssignment {
	return &DriverAssignment{Kind: DriverKindAdHoc, AdHoc: &driver}
}

// Validate checks that the assignment is internally consistent.
func (a *DriverAssignment) Validate() error {
	if a == nil {
		return ErrInvalidAssignment
	}

	switch a.Kind {
	case DriverKindAffiliated:
		if strings.TrimSpace(a.DriverID) == "" || a.AdHoc != nil {
			return fmt.Errorf("%w: affiliated assignment needs a driver id only", ErrInvalidAssignment)
		}
		if strings.HasPrefix(a.DriverID, adHocKeyPrefix) {
			return fmt.Errorf("%w: driver id uses reserved prefix", ErrInvalidAssignment)
		}
	case DriverKindAdHoc:
		if a.AdHoc == nil || a.DriverID != "" {
			return fmt.Errorf("%w: ad-hoc assignment needs contact details only", ErrInvalidAssignment)
		}
		if strings.TrimSpace(a.AdHoc.Phone) == "" {
			return fmt.Errorf("%w: ad-hoc driver phone is required", ErrInvalidAssignment)
		}
		if a.AdHoc.FixedFee.IsNegative() {
			return fmt.Errorf("%w: fixed fee cannot be negative", ErrInvalidAssignment)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAssignment, a.Kind)
	}

	return nil
}

// Key resolves the ledger identity of the assigned driver. Ad-hoc phones are
// normalized with defaultRegion when they carry no country code.
func (a *DriverAssignment) Key(defaultRegion string) (DriverKey, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	if a.Kind == DriverKindAffiliated {
		return AffiliatedKey(a.DriverID), nil
	}
	return AdHocKey(a.AdHoc.Phone, defaultRegion)
}

const adHocKeyPrefix = "adhoc:"

// DriverKey identifies a driver ledger. Affiliated drivers use their driver id;
// ad-hoc drivers use "adhoc:" followed by their E.164 phone number.
type DriverKey string

// AffiliatedKey returns the ledger key of an affiliated driver.
func AffiliatedKey(driverID string) DriverKey {
	return DriverKey(driverID)
}

// AdHocKey returns the ledger key derived from an ad-hoc driver's phone number.
func AdHocKey(phone, defaultRegion string) (DriverKey, error) {
	normalized, err := NormalizePhone(phone, defaultRegion)
	if err != nil {
		return "", err
	}
	return DriverKey(adHocKeyPrefix + normalized), nil
}

// IsAdHoc reports whether the key belongs to an ad-hoc driver.
func (k DriverKey) IsAdHoc() bool {
	return strings.HasPrefix(string(k), adHocKeyPrefix)
}

// Phone returns the normalized phone number embedded in an ad-hoc key.
func (k DriverKey) Phone() string {
	return strings.TrimPrefix(string(k), adHocKeyPrefix)
}

func (k DriverKey) String() string {
	return string(k)
}

// NormalizePhone converts a phone number to E.164. Numbers written in national
// format are interpreted in defaultRegion (ISO 3166 alpha-2, e.g. "TR").
func NormalizePhone(phone, defaultRegion string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", ErrInvalidPhone
	}

	if strings.HasPrefix(trimmed, "00") {
		trimmed = "+" + strings.TrimPrefix(trimmed, "00")
	}

	parsed, err := libphonenumber.Parse(trimmed, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !libphonenumber.IsValidNumber(parsed) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPhone, phone)
	}

	return libphonenumber.Format(parsed, libphonenumber.E164), nil
}

// DriverAccount is the ledger projection for one driver. Balance is positive
// when the company owes the driver and negative when the driver owes the company.
type DriverAccount struct {
	Key            DriverKey
	Kind           DriverKind
	DriverID       string
	Name           string
	Phone          string
	PlateNumber    string
	CommissionRate decimal.Decimal // percent, affiliated drivers only

	Balance decimal.Decimal

	TripCount       int
	CashTrips       int
	CardTrips       int
	TransferTrips   int
	TotalCommission decimal.Decimal
	TotalPayout     decimal.Decimal

	// Version counts the ledger writes applied to the projection.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAdHocAccount builds the account created on an ad-hoc driver's first settlement.
func NewAdHocAccount(key DriverKey, driver AdHocDriver, now time.Time) *DriverAccount {
	return &DriverAccount{
		Key:         key,
		Kind:        DriverKindAdHoc,
		Name:        driver.Name,
		Phone:       key.Phone(),
		PlateNumber: driver.PlateNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
