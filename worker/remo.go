package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"homeapi-backend/models"
	"homeapi-backend/utils/logger"

	"github.com/tidwall/gjson"
)

// RemoClient talks to the Nature Remo cloud API.
type RemoClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  logger.Logger
}

// NewRemoClient creates a new API client
func NewRemoClient(baseURL, token string, log logger.Logger) *RemoClient {
	return &RemoClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  log,
	}
}

// FetchDevices returns the raw body of the devices endpoint.
func (c *RemoClient) FetchDevices(ctx context.Context) (string, error) {
	return c.get(ctx, "/1/devices")
}

// FetchAppliances returns the raw body of the appliances endpoint.
func (c *RemoClient) FetchAppliances(ctx context.Context) (string, error) {
	return c.get(ctx, "/1/appliances")
}

func (c *RemoClient) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request to %s returned status %d", path, resp.StatusCode)
	}
	return string(body), nil
}

// DeviceReading is one environmental snapshot parsed from the devices
// endpoint. The timestamp is the newest event time across all sensors; a
// device that never reported an event yields no reading.
type DeviceReading struct {
	DeviceID    string
	Timestamp   time.Time
	Temperature *string
	Humidity    *int64
	Illuminance *int64
	Motion      *int64
}

// ParseDeviceReadings extracts sensor snapshots from a devices response.
func ParseDeviceReadings(body string) []DeviceReading {
	var readings []DeviceReading
	gjson.Parse(body).ForEach(func(_, device gjson.Result) bool {
		id := device.Get("id").String()
		if id == "" {
			return true
		}

		events := device.Get("newest_events")
		reading := DeviceReading{DeviceID: id}

		if te := events.Get("te"); te.Exists() {
			v := strconv.FormatFloat(te.Get("val").Float(), 'f', -1, 64)
			reading.Temperature = &v
			reading.Timestamp = laterOf(reading.Timestamp, eventTime(te))
		}
		if hu := events.Get("hu"); hu.Exists() {
			v := hu.Get("val").Int()
			reading.Humidity = &v
			reading.Timestamp = laterOf(reading.Timestamp, eventTime(hu))
		}
		if il := events.Get("il"); il.Exists() {
			v := il.Get("val").Int()
			reading.Illuminance = &v
			reading.Timestamp = laterOf(reading.Timestamp, eventTime(il))
		}
		if mo := events.Get("mo"); mo.Exists() {
			v := mo.Get("val").Int()
			reading.Motion = &v
			reading.Timestamp = laterOf(reading.Timestamp, eventTime(mo))
		}

		if !reading.Timestamp.IsZero() {
			readings = append(readings, reading)
		}
		return true
	})
	return readings
}

// MeterReading is one smart-meter snapshot parsed from the appliances
// endpoint.
type MeterReading struct {
	DeviceID       string
	Timestamp      time.Time
	CumulativeKWhP *string
	CumulativeKWhN *string
	CurrentW       *int32
}

// ParseMeterReadings extracts smart-meter snapshots from an appliances
// response. Cumulative registers are scaled by the meter's coefficient and
// unit before being rendered as decimal strings.
func ParseMeterReadings(body string) []MeterReading {
	var readings []MeterReading
	gjson.Parse(body).ForEach(func(_, appliance gjson.Result) bool {
		if appliance.Get("type").String() != "EL_SMART_METER" {
			return true
		}
		deviceID := appliance.Get("device.id").String()
		if deviceID == "" {
			return true
		}

		props := map[string]gjson.Result{}
		var newest time.Time
		appliance.Get("smart_meter.echonetlite_properties").ForEach(func(_, prop gjson.Result) bool {
			props[prop.Get("name").String()] = prop
			if t, err := models.ParseTimestamp(prop.Get("updated_at").String()); err == nil {
				newest = laterOf(newest, t)
			}
			return true
		})
		if newest.IsZero() {
			return true
		}

		scale := meterScale(props)
		reading := MeterReading{DeviceID: deviceID, Timestamp: newest}
		if p, ok := props["normal_direction_cumulative_electric_energy"]; ok {
			v := formatKWh(p.Get("val").Float() * scale)
			reading.CumulativeKWhP = &v
		}
		if p, ok := props["reverse_direction_cumulative_electric_energy"]; ok {
			v := formatKWh(p.Get("val").Float() * scale)
			reading.CumulativeKWhN = &v
		}
		if p, ok := props["measured_instantaneous"]; ok {
			w := int32(p.Get("val").Int())
			reading.CurrentW = &w
		}

		if reading.CumulativeKWhP != nil || reading.CumulativeKWhN != nil || reading.CurrentW != nil {
			readings = append(readings, reading)
		}
		return true
	})
	return readings
}

// meterScale combines the meter's coefficient with its cumulative-energy
// unit code. Unknown codes fall back to a scale of 1.
func meterScale(props map[string]gjson.Result) float64 {
	coefficient := 1.0
	if p, ok := props["coefficient"]; ok {
		if v := p.Get("val").Float(); v > 0 {
			coefficient = v
		}
	}

	unit := 1.0
	if p, ok := props["cumulative_electric_energy_unit"]; ok {
		switch p.Get("val").Int() {
		case 1:
			unit = 0.1
		case 2:
			unit = 0.01
		case 3:
			unit = 0.001
		case 4:
			unit = 0.0001
		case 10:
			unit = 10
		case 11:
			unit = 100
		case 12:
			unit = 1000
		case 13:
			unit = 10000
		}
	}
	return coefficient * unit
}

func formatKWh(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func eventTime(event gjson.Result) time.Time {
	t, err := models.ParseTimestamp(event.Get("created_at").String())
	if err != nil {
		return time.Time{}
	}
	return t
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
