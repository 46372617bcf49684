package models

import "time"

// ElectricityInput carries one live meter reading submitted over the API.
// A missing place defaults to the empty string on write.
type ElectricityInput struct {
	Device         string    `json:"device" validate:"required"`
	Timestamp      time.Time `json:"timestamp" validate:"required"`
	Place          *string   `json:"place,omitempty"`
	CumulativeKWhP *string   `json:"cumulative_kwh_p,omitempty" validate:"omitempty,numeric"`
	CumulativeKWhN *string   `json:"cumulative_kwh_n,omitempty" validate:"omitempty,numeric"`
	CurrentW       *int32    `json:"current_w,omitempty"`
}

// Record converts the input to its stored form.
func (in ElectricityInput) Record() *Electricity {
	rec := &Electricity{
		Device:         in.Device,
		Timestamp:      in.Timestamp,
		CumulativeKWhP: in.CumulativeKWhP,
		CumulativeKWhN: in.CumulativeKWhN,
		CurrentW:       in.CurrentW,
	}
	if in.Place != nil {
		rec.Place = *in.Place
	}
	return rec
}

// FinalElectricityInput carries one settled meter reading. Missing
// cumulative values default to "0".
type FinalElectricityInput struct {
	Device         string    `json:"device" validate:"required"`
	Timestamp      time.Time `json:"timestamp" validate:"required"`
	Place          *string   `json:"place,omitempty"`
	CumulativeKWhP *string   `json:"cumulative_kwh_p,omitempty" validate:"omitempty,numeric"`
	CumulativeKWhN *string   `json:"cumulative_kwh_n,omitempty" validate:"omitempty,numeric"`
}

// Record converts the input to its stored form.
func (in FinalElectricityInput) Record() *FinalElectricity {
	rec := &FinalElectricity{
		Device:         in.Device,
		Timestamp:      in.Timestamp,
		CumulativeKWhP: "0",
		CumulativeKWhN: "0",
	}
	if in.Place != nil {
		rec.Place = *in.Place
	}
	if in.CumulativeKWhP != nil {
		rec.CumulativeKWhP = *in.CumulativeKWhP
	}
	if in.CumulativeKWhN != nil {
		rec.CumulativeKWhN = *in.CumulativeKWhN
	}
	return rec
}

// PlaceConditionInput carries one environmental reading.
type PlaceConditionInput struct {
	Device      string    `json:"device" validate:"required"`
	Timestamp   time.Time `json:"timestamp" validate:"required"`
	Place       *string   `json:"place,omitempty"`
	Temperature *string   `json:"temperature,omitempty" validate:"omitempty,numeric"`
	Humidity    *int64    `json:"humidity,omitempty"`
	Illuminance *int64    `json:"illuminance,omitempty"`
	Motion      *int64    `json:"motion,omitempty"`
}

// Record converts the input to its stored form.
func (in PlaceConditionInput) Record() *PlaceCondition {
	rec := &PlaceCondition{
		Device:      in.Device,
		Timestamp:   in.Timestamp,
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		Illuminance: in.Illuminance,
		Motion:      in.Motion,
	}
	if in.Place != nil {
		rec.Place = *in.Place
	}
	return rec
}

// CreateApiKeyInput names a new API key and optionally bounds its lifetime.
type CreateApiKeyInput struct {
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
