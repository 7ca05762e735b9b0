package mapping

import (
	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"reflect"
	"time"
)

// IReviver turns a raw decoded value (maps, slices, json.Number, strings) into a
// typed result. typeHint names the target type for implementations that keep per
// type rules, it may be empty.
type IReviver interface {
	Revive(raw any, typeHint string, target any) error
}

// dateLayouts are tried in order for every string decoded into a time.Time.
// The server writes up to seven fractional digits and may omit the zone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NewReviver creates the default reviver. Field names are matched case-insensitively
// against the struct field name or its json tag, dates are parsed from strings.
func NewReviver() IReviver {
	return &reviverImpl{}
}

type reviverImpl struct{}

func (r *reviverImpl) Revive(raw any, typeHint string, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(stringToTimeHook, numberToDurationHook),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           target,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		if typeHint != "" {
			return errors.Wrapf(err, "failed to revive %s", typeHint)
		}
		return errors.Wrap(err, "failed to revive result")
	}
	return nil
}

// --------------------------------------------------------------------------
// Decode Hooks
// --------------------------------------------------------------------------

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// stringToTimeHook parses date strings for time.Time targets
func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return ParseDate(s)
}

// numberToDurationHook reads durations as milliseconds (e.g. DurationInMs)
func numberToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case interface{ Int64() (int64, error) }:
		ms, err := v.Int64()
		if err != nil {
			return data, nil
		}
		return time.Duration(ms) * time.Millisecond, nil
	default:
		return data, nil
	}
}

// ParseDate parses a date in one of the formats written by the server.
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, errors.Wrapf(lastErr, "invalid date %q", s)
}
