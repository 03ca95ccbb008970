package geometry

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dargueta/cikada"
	"github.com/gocarina/gocsv"
)

// DeviceModel describes the capacity of a known ECKD device type.
type DeviceModel struct {
	Slug      string `csv:"slug"`
	Name      string `csv:"name"`
	Cylinders uint   `csv:"cylinders"`
	Notes     string `csv:"notes"`
}

// TotalTracks gives the number of tracks on a device of this model.
func (m *DeviceModel) TotalTracks() TrackNumber {
	return TotalTracks(m.Cylinders)
}

//go:embed device-models.csv
var deviceModelsRawCSV string
var deviceModels map[string]DeviceModel

// GetDeviceModel looks up a predefined device model by its slug, e.g. "3390-9".
// The lookup is case-insensitive.
func GetDeviceModel(slug string) (DeviceModel, error) {
	model, ok := deviceModels[strings.ToUpper(slug)]
	if ok {
		return model, nil
	}
	return DeviceModel{}, cikada.ErrUnknownDeviceModel.WithMessage(
		fmt.Sprintf("no predefined device model exists with slug %q", slug))
}

// DeviceModels returns all predefined models, ordered by capacity.
func DeviceModels() []DeviceModel {
	models := make([]DeviceModel, 0, len(deviceModels))
	for _, model := range deviceModels {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Cylinders < models[j].Cylinders
	})
	return models
}

// ParseCylinders interprets a device size given either as a decimal number of
// cylinders or as the slug of a predefined device model.
func ParseCylinders(size string) (uint, error) {
	cylinders, err := strconv.ParseUint(size, 10, 32)
	if err == nil {
		if cylinders == 0 {
			return 0, cikada.ErrInvalidArgument.WithMessage(
				"device size must be at least one cylinder")
		}
		if cylinders > MaxCylinders {
			return 0, cikada.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"device size of %d cylinders can't be addressed, limit is %d",
					cylinders,
					MaxCylinders,
				),
			)
		}
		return uint(cylinders), nil
	}

	model, err := GetDeviceModel(size)
	if err != nil {
		return 0, err
	}
	return model.Cylinders, nil
}

func init() {
	var rows []DeviceModel
	err := gocsv.UnmarshalString(deviceModelsRawCSV, &rows)
	if err != nil {
		panic(fmt.Errorf("failed to decode device model table: %w", err))
	}

	deviceModels = make(map[string]DeviceModel, len(rows))
	for i, row := range rows {
		key := strings.ToUpper(row.Slug)
		_, exists := deviceModels[key]
		if exists {
			panic(fmt.Errorf("duplicate definition for device %q found on row %d", row.Slug, i+1))
		}
		deviceModels[key] = row
	}
}
