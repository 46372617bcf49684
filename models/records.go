package models

import (
	"fmt"
	"time"
)

// Type tags used in global IDs. They double as the table's fixed partition
// keys for entity records (DEVICE, PLACE, ...).
const (
	TypeApiKey           = "ApiKey"
	TypeDevice           = "Device"
	TypeElectricity      = "Electricity"
	TypeFinalElectricity = "FinalElectricity"
	TypePlace            = "Place"
	TypePlaceCondition   = "PlaceCondition"
)

// Sort-key prefixes for time-series records. Distinct prefixes keep record
// kinds from colliding inside one device partition.
const (
	TimestampPrefix      = "TS#"
	FinalTimestampPrefix = "FIN#TS#"
)

// Item is implemented by every record persisted in the telemetry table. Each
// record derives its own partition key, sort-key prefix and the undecorated
// sort-key value; the stored sort key is always SKPrefix()+SKValue().
type Item interface {
	SKPrefix() string
	PK() string
	SKValue() string
}

// KeyedItem restores a record's identity fields from the raw table keys
// during decoding. SetKey receives the sort key with the prefix already
// stripped.
type KeyedItem interface {
	Item
	SetKey(pk, skValue string) error
}

// timestampLayout always prints nine fractional digits. The fixed width is
// what keeps lexicographic order of sort keys equal to chronological order;
// with a trimmed fraction "..00Z" would sort after "..00.000000001Z".
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders a timestamp the way it is stored in sort keys:
// RFC3339 UTC with a fixed-width nanosecond fraction.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// MinTimestamp and MaxTimestamp are the sentinel range bounds used when an
// open-ended time range needs a concrete sort-key value.
var (
	MinTimestamp = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxTimestamp = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// Device is a registered sensor or appliance.
type Device struct {
	ID    string `dynamodbav:"-" json:"id"`
	Place string `dynamodbav:"place" json:"place"`
}

func (Device) SKPrefix() string { return "" }
func (Device) PK() string { return "DEVICE" }
func (d Device) SKValue() string { return d.ID }
func (d *Device) SetKey(_, sk string) error {
	d.ID = sk
	return nil
}

// Place is a named location devices report for.
type Place struct {
	ID   string `dynamodbav:"-" json:"id"`
	Name string `dynamodbav:"name" json:"name"`
}

func (Place) SKPrefix() string { return "" }
func (Place) PK() string { return "PLACE" }
func (p Place) SKValue() string { return p.ID }
func (p *Place) SetKey(_, sk string) error {
	p.ID = sk
	return nil
}

// RawData keeps the unparsed body of an upstream API response for debugging
// and replay.
type RawData struct {
	ID   string `dynamodbav:"-" json:"id"`
	Body string `dynamodbav:"body" json:"body"`
}

func (RawData) SKPrefix() string { return "" }
func (RawData) PK() string { return "RAW_DATA" }
func (r RawData) SKValue() string { return r.ID }
func (r *RawData) SetKey(_, sk string) error {
	r.ID = sk
	return nil
}

// User marks an email address as allowed to use the API.
type User struct {
	Email string `dynamodbav:"-" json:"email"`
}

func (User) SKPrefix() string { return "" }
func (User) PK() string { return "USER" }
func (u User) SKValue() string { return u.Email }
func (u *User) SetKey(_, sk string) error {
	u.Email = sk
	return nil
}

// ApiKey is a static credential. Only the SHA-256 hex digest of the key is
// stored; the cleartext key exists once, at creation time.
type ApiKey struct {
	KeyHash    string     `dynamodbav:"-" json:"key_hash"`
	UserEmail  string     `dynamodbav:"user_email" json:"user_email"`
	Name       string     `dynamodbav:"name" json:"name"`
	CreatedAt  time.Time  `dynamodbav:"created_at" json:"created_at"`
	LastUsedAt *time.Time `dynamodbav:"last_used_at,omitempty" json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `dynamodbav:"expires_at,omitempty" json:"expires_at,omitempty"`
}

func (ApiKey) SKPrefix() string { return "" }
func (k ApiKey) PK() string { return k.KeyHash }
func (ApiKey) SKValue() string { return "APIKEY" }
func (k *ApiKey) SetKey(pk, _ string) error {
	k.KeyHash = pk
	return nil
}

// IsExpired reports whether the key's expiry, if any, has passed.
func (k ApiKey) IsExpired() bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now())
}

// Electricity is a live smart-meter reading.
type Electricity struct {
	Device         string    `dynamodbav:"-" json:"device"`
	Timestamp      time.Time `dynamodbav:"-" json:"timestamp"`
	Place          string    `dynamodbav:"place" json:"place"`
	CumulativeKWhP *string   `dynamodbav:"cumulative_kwh_p,omitempty" json:"cumulative_kwh_p,omitempty"`
	CumulativeKWhN *string   `dynamodbav:"cumulative_kwh_n,omitempty" json:"cumulative_kwh_n,omitempty"`
	CurrentW       *int32    `dynamodbav:"current_w,omitempty" json:"current_w,omitempty"`
}

func (Electricity) SKPrefix() string { return TimestampPrefix }
func (e Electricity) PK() string { return e.Device }
func (e Electricity) SKValue() string { return FormatTimestamp(e.Timestamp) }
func (e *Electricity) SetKey(pk, sk string) error {
	ts, err := ParseTimestamp(sk)
	if err != nil {
		return err
	}
	e.Device = pk
	e.Timestamp = ts
	return nil
}

// FinalElectricity is a settled (end-of-period) smart-meter reading.
type FinalElectricity struct {
	Device         string    `dynamodbav:"-" json:"device"`
	Timestamp      time.Time `dynamodbav:"-" json:"timestamp"`
	Place          string    `dynamodbav:"place" json:"place"`
	CumulativeKWhP string    `dynamodbav:"cumulative_kwh_p" json:"cumulative_kwh_p"`
	CumulativeKWhN string    `dynamodbav:"cumulative_kwh_n" json:"cumulative_kwh_n"`
}

func (FinalElectricity) SKPrefix() string { return FinalTimestampPrefix }
func (e FinalElectricity) PK() string { return e.Device }
func (e FinalElectricity) SKValue() string { return FormatTimestamp(e.Timestamp) }
func (e *FinalElectricity) SetKey(pk, sk string) error {
	ts, err := ParseTimestamp(sk)
	if err != nil {
		return err
	}
	e.Device = pk
	e.Timestamp = ts
	return nil
}

// PlaceCondition is an environmental reading (temperature, humidity,
// illuminance, motion) for the place a device sits in.
type PlaceCondition struct {
	Device      string    `dynamodbav:"-" json:"device"`
	Timestamp   time.Time `dynamodbav:"-" json:"timestamp"`
	Place       string    `dynamodbav:"place" json:"place"`
	Temperature *string   `dynamodbav:"temperature,omitempty" json:"temperature,omitempty"`
	Humidity    *int64    `dynamodbav:"humidity,omitempty" json:"humidity,omitempty"`
	Illuminance *int64    `dynamodbav:"illuminance,omitempty" json:"illuminance,omitempty"`
	Motion      *int64    `dynamodbav:"motion,omitempty" json:"motion,omitempty"`
}

func (PlaceCondition) SKPrefix() string { return TimestampPrefix }
func (c PlaceCondition) PK() string { return c.Device }
func (c PlaceCondition) SKValue() string { return FormatTimestamp(c.Timestamp) }
func (c *PlaceCondition) SetKey(pk, sk string) error {
	ts, err := ParseTimestamp(sk)
	if err != nil {
		return err
	}
	c.Device = pk
	c.Timestamp = ts
	return nil
}
