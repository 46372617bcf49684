package worker

import (
	"context"
	"fmt"
	"sync"

	"homeapi-backend/models"
	"homeapi-backend/repository"
	"homeapi-backend/utils/logger"
)

// Importer pulls current readings from the device cloud into the table.
type Importer struct {
	records  *repository.RecordRepository
	remo     *RemoClient
	logger   logger.Logger
	rosterMu sync.Mutex
}

// NewImporter creates a new importer
func NewImporter(records *repository.RecordRepository, remo *RemoClient, log logger.Logger) *Importer {
	return &Importer{
		records: records,
		remo:    remo,
		logger:  log,
	}
}

// Run executes one import cycle. The device roster and the two outbound
// fetches run concurrently; the sub-pipelines then run concurrently against
// the shared roster. Any failure aborts the run, the next scheduled run
// starts fresh.
func (i *Importer) Run(ctx context.Context) error {
	var (
		wg             sync.WaitGroup
		roster         map[string]*models.Device
		devicesBody    string
		appliancesBody string
		rosterErr      error
		devicesErr     error
		appliancesErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		roster, rosterErr = i.fetchRoster(ctx)
	}()
	go func() {
		defer wg.Done()
		devicesBody, devicesErr = i.remo.FetchDevices(ctx)
	}()
	go func() {
		defer wg.Done()
		appliancesBody, appliancesErr = i.remo.FetchAppliances(ctx)
	}()
	wg.Wait()

	for _, err := range []error{rosterErr, devicesErr, appliancesErr} {
		if err != nil {
			return fmt.Errorf("import fetch failed: %w", err)
		}
	}

	// Raw bodies are stored before parsing so a parser bug never loses the
	// upstream data.
	if err := i.records.Put(ctx, &models.RawData{ID: "nature-devices", Body: devicesBody}); err != nil {
		return fmt.Errorf("failed to store raw devices body: %w", err)
	}
	if err := i.records.Put(ctx, &models.RawData{ID: "nature-appliances", Body: appliancesBody}); err != nil {
		return fmt.Errorf("failed to store raw appliances body: %w", err)
	}

	var (
		pipelines     sync.WaitGroup
		conditionsErr error
		meterErr      error
	)
	// Both pipelines read the roster and only register devices for their own
	// readings; writes go through the shared repository.
	pipelines.Add(2)
	go func() {
		defer pipelines.Done()
		conditionsErr = i.importConditions(ctx, devicesBody, roster)
	}()
	go func() {
		defer pipelines.Done()
		meterErr = i.importElectricity(ctx, appliancesBody, roster)
	}()
	pipelines.Wait()

	if conditionsErr != nil {
		return conditionsErr
	}
	return meterErr
}

// fetchRoster loads every registered device keyed by id.
func (i *Importer) fetchRoster(ctx context.Context) (map[string]*models.Device, error) {
	devices, err := repository.QueryAll[models.Device](ctx, i.records, "DEVICE", nil)
	if err != nil {
		return nil, err
	}
	roster := make(map[string]*models.Device, len(devices))
	for _, d := range devices {
		roster[d.ID] = d
	}
	return roster, nil
}

// importConditions converts device sensor snapshots into PlaceCondition
// records. A reading from a device missing in the roster registers it with
// place "unknown" first.
func (i *Importer) importConditions(ctx context.Context, body string, roster map[string]*models.Device) error {
	readings := ParseDeviceReadings(body)

	recs := make([]models.Item, 0, len(readings))
	for _, reading := range readings {
		device, err := i.lookupDevice(ctx, roster, reading.DeviceID)
		if err != nil {
			return err
		}
		recs = append(recs, &models.PlaceCondition{
			Device:      reading.DeviceID,
			Timestamp:   reading.Timestamp,
			Place:       device.Place,
			Temperature: reading.Temperature,
			Humidity:    reading.Humidity,
			Illuminance: reading.Illuminance,
			Motion:      reading.Motion,
		})
	}
	if len(recs) == 0 {
		return nil
	}

	i.logger.Infof("Importing %d place-condition readings", len(recs))
	return i.records.PutMany(ctx, recs)
}

// importElectricity converts smart-meter snapshots into Electricity records.
func (i *Importer) importElectricity(ctx context.Context, body string, roster map[string]*models.Device) error {
	readings := ParseMeterReadings(body)

	recs := make([]models.Item, 0, len(readings))
	for _, reading := range readings {
		device, err := i.lookupDevice(ctx, roster, reading.DeviceID)
		if err != nil {
			return err
		}
		recs = append(recs, &models.Electricity{
			Device:         reading.DeviceID,
			Timestamp:      reading.Timestamp,
			Place:          device.Place,
			CumulativeKWhP: reading.CumulativeKWhP,
			CumulativeKWhN: reading.CumulativeKWhN,
			CurrentW:       reading.CurrentW,
		})
	}
	if len(recs) == 0 {
		return nil
	}

	i.logger.Infof("Importing %d electricity readings", len(recs))
	return i.records.PutMany(ctx, recs)
}

// lookupDevice resolves a device from the roster, registering unknown ones
// with place "unknown". The roster map is shared by both pipelines.
func (i *Importer) lookupDevice(ctx context.Context, roster map[string]*models.Device, id string) (*models.Device, error) {
	i.rosterMu.Lock()
	defer i.rosterMu.Unlock()

	if device, ok := roster[id]; ok {
		return device, nil
	}

	device := &models.Device{ID: id, Place: "unknown"}
	if err := i.records.Put(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to register device %s: %w", id, err)
	}
	i.logger.Infof("Registered new device %s", id)
	roster[id] = device
	return device, nil
}
