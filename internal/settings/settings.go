// Package settings owns the user preferences document.
package settings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KarimYounus/jobbies/internal/status"
	"github.com/KarimYounus/jobbies/pkg/models"
)

// Setting keys, as stored in the settings bucket.
const (
	KeyAutoUpdateEnabled        = "autoUpdateEnabled"
	KeyAutoUpdateInterval       = "autoUpdateInterval"
	KeyDataBackupEnabled        = "dataBackupEnabled"
	KeyConfirmDeleteActions     = "confirmDeleteActions"
	KeyDefaultApplicationStatus = "defaultApplicationStatus"
	KeyDefaultSortPreference    = "defaultSortPreference"
	KeyTheme                    = "theme"
)

// Keys lists every setting in display order.
var Keys = []string{
	KeyAutoUpdateEnabled,
	KeyAutoUpdateInterval,
	KeyDataBackupEnabled,
	KeyConfirmDeleteActions,
	KeyDefaultApplicationStatus,
	KeyDefaultSortPreference,
	KeyTheme,
}

const (
	MinInterval = 1
	MaxInterval = 365
)

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidValue   = errors.New("invalid setting value")
)

// Defaults returns the settings of a fresh install.
func Defaults() models.SettingsConfig {
	return models.SettingsConfig{
		AutoUpdateEnabled:        true,
		AutoUpdateInterval:       30,
		DataBackupEnabled:        true,
		ConfirmDeleteActions:     true,
		DefaultApplicationStatus: status.Applied,
		DefaultSortPreference:    models.SortPreference{Field: "appliedDate", Order: models.SortDesc},
		Theme:                    models.ThemeLight,
	}
}

// PartialSettings is a settings document in which any field may be missing.
type PartialSettings struct {
	AutoUpdateEnabled        *bool                  `json:"autoUpdateEnabled,omitempty"`
	AutoUpdateInterval       *int                   `json:"autoUpdateInterval,omitempty"`
	DataBackupEnabled        *bool                  `json:"dataBackupEnabled,omitempty"`
	ConfirmDeleteActions     *bool                  `json:"confirmDeleteActions,omitempty"`
	DefaultApplicationStatus *string                `json:"defaultApplicationStatus,omitempty"`
	DefaultSortPreference    *models.SortPreference `json:"defaultSortPreference,omitempty"`
	Theme                    *string                `json:"theme,omitempty"`
}

// Partial converts a full config into a partial with every field set.
func Partial(c models.SettingsConfig) PartialSettings {
	sort := c.DefaultSortPreference
	return PartialSettings{
		AutoUpdateEnabled:        &c.AutoUpdateEnabled,
		AutoUpdateInterval:       &c.AutoUpdateInterval,
		DataBackupEnabled:        &c.DataBackupEnabled,
		ConfirmDeleteActions:     &c.ConfirmDeleteActions,
		DefaultApplicationStatus: &c.DefaultApplicationStatus,
		DefaultSortPreference:    &sort,
		Theme:                    &c.Theme,
	}
}

// Merge overlays the fields set in p onto base and validates the result.
func Merge(base models.SettingsConfig, p PartialSettings) models.SettingsConfig {
	full := Partial(base)
	if p.AutoUpdateEnabled != nil {
		full.AutoUpdateEnabled = p.AutoUpdateEnabled
	}
	if p.AutoUpdateInterval != nil {
		full.AutoUpdateInterval = p.AutoUpdateInterval
	}
	if p.DataBackupEnabled != nil {
		full.DataBackupEnabled = p.DataBackupEnabled
	}
	if p.ConfirmDeleteActions != nil {
		full.ConfirmDeleteActions = p.ConfirmDeleteActions
	}
	if p.DefaultApplicationStatus != nil {
		full.DefaultApplicationStatus = p.DefaultApplicationStatus
	}
	if p.DefaultSortPreference != nil {
		full.DefaultSortPreference = p.DefaultSortPreference
	}
	if p.Theme != nil {
		full.Theme = p.Theme
	}
	return Validate(full)
}

// Validate fills missing fields with defaults, clamps the interval to
// [MinInterval, MaxInterval] and replaces invalid enum values with their
// defaults. The result is always fully populated.
func Validate(p PartialSettings) models.SettingsConfig {
	c := Defaults()
	if p.AutoUpdateEnabled != nil {
		c.AutoUpdateEnabled = *p.AutoUpdateEnabled
	}
	if p.AutoUpdateInterval != nil {
		c.AutoUpdateInterval = min(max(*p.AutoUpdateInterval, MinInterval), MaxInterval)
	}
	if p.DataBackupEnabled != nil {
		c.DataBackupEnabled = *p.DataBackupEnabled
	}
	if p.ConfirmDeleteActions != nil {
		c.ConfirmDeleteActions = *p.ConfirmDeleteActions
	}
	if p.DefaultApplicationStatus != nil && status.Exists(*p.DefaultApplicationStatus) {
		c.DefaultApplicationStatus = *p.DefaultApplicationStatus
	}
	if p.DefaultSortPreference != nil {
		if validSortField(p.DefaultSortPreference.Field) {
			c.DefaultSortPreference.Field = p.DefaultSortPreference.Field
		}
		if o := p.DefaultSortPreference.Order; o == models.SortAsc || o == models.SortDesc {
			c.DefaultSortPreference.Order = o
		}
	}
	if p.Theme != nil && (*p.Theme == models.ThemeLight || *p.Theme == models.ThemeDark) {
		c.Theme = *p.Theme
	}
	return c
}

func validSortField(f string) bool {
	return f == "appliedDate" || f == "company" || f == "position"
}

// Value returns the setting stored under key.
func Value(c models.SettingsConfig, key string) (any, error) {
	switch key {
	case KeyAutoUpdateEnabled:
		return c.AutoUpdateEnabled, nil
	case KeyAutoUpdateInterval:
		return c.AutoUpdateInterval, nil
	case KeyDataBackupEnabled:
		return c.DataBackupEnabled, nil
	case KeyConfirmDeleteActions:
		return c.ConfirmDeleteActions, nil
	case KeyDefaultApplicationStatus:
		return c.DefaultApplicationStatus, nil
	case KeyDefaultSortPreference:
		return c.DefaultSortPreference, nil
	case KeyTheme:
		return c.Theme, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
}

// partialFor builds a partial that sets only key. The value must have the
// setting's Go type; integral floats are accepted for the interval.
func partialFor(key string, value any) (PartialSettings, error) {
	var p PartialSettings
	bad := func() (PartialSettings, error) {
		return PartialSettings{}, fmt.Errorf("%w: %s cannot be %v (%T)", ErrInvalidValue, key, value, value)
	}

	switch key {
	case KeyAutoUpdateEnabled, KeyDataBackupEnabled, KeyConfirmDeleteActions:
		b, ok := value.(bool)
		if !ok {
			return bad()
		}
		switch key {
		case KeyAutoUpdateEnabled:
			p.AutoUpdateEnabled = &b
		case KeyDataBackupEnabled:
			p.DataBackupEnabled = &b
		default:
			p.ConfirmDeleteActions = &b
		}
	case KeyAutoUpdateInterval:
		var n int
		switch v := value.(type) {
		case int:
			n = v
		case int64:
			n = int(v)
		case float64:
			if v != math.Trunc(v) {
				return bad()
			}
			n = int(v)
		default:
			return bad()
		}
		p.AutoUpdateInterval = &n
	case KeyDefaultApplicationStatus, KeyTheme:
		s, ok := value.(string)
		if !ok {
			return bad()
		}
		if key == KeyTheme {
			p.Theme = &s
		} else {
			p.DefaultApplicationStatus = &s
		}
	case KeyDefaultSortPreference:
		sp, ok := value.(models.SortPreference)
		if !ok {
			return bad()
		}
		p.DefaultSortPreference = &sp
	default:
		return PartialSettings{}, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return p, nil
}

// ParseValue converts command line text into the Go type of key. The sort
// preference is written as "<field>:<order>", e.g. "company:asc".
func ParseValue(key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case KeyAutoUpdateEnabled, KeyDataBackupEnabled, KeyConfirmDeleteActions:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", ErrInvalidValue, key)
		}
		return b, nil
	case KeyAutoUpdateInterval:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects a number of days", ErrInvalidValue, key)
		}
		return n, nil
	case KeyDefaultApplicationStatus, KeyTheme:
		return raw, nil
	case KeyDefaultSortPreference:
		field, order, _ := strings.Cut(raw, ":")
		if order == "" {
			order = string(models.SortDesc)
		}
		return models.SortPreference{Field: field, Order: models.SortOrder(order)}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
}

// ChangedKeys lists the settings that differ between a and b, in Keys order.
func ChangedKeys(a, b models.SettingsConfig) []string {
	var changed []string
	for _, k := range Keys {
		va, _ := Value(a, k)
		vb, _ := Value(b, k)
		if va != vb {
			changed = append(changed, k)
		}
	}
	return changed
}
