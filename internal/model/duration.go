package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Duration is a duration as the clinic app sends it: "30 minutes", "30" or a
// bare JSON number. It is stored verbatim; the minute value is extracted when
// slots are generated.
type Duration string

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = ""
	case string:
		*d = Duration(strings.TrimSpace(v))
	case float64:
		*d = Duration(fmt.Sprintf("%d minutes", int(v)))
	default:
		return fmt.Errorf("duration must be a string or a number")
	}
	return nil
}

// Durations accepts a list, a single value, or a comma separated string.
type Durations []Duration

func (ds *Durations) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Durations
	add := func(item interface{}) error {
		b, _ := json.Marshal(item)
		var d Duration
		if err := d.UnmarshalJSON(b); err != nil {
			return err
		}
		if d != "" {
			out = append(out, d)
		}
		return nil
	}

	switch v := raw.(type) {
	case nil:
	case []interface{}:
		for _, item := range v {
			if err := add(item); err != nil {
				return err
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if err := add(part); err != nil {
				return err
			}
		}
	default:
		if err := add(v); err != nil {
			return err
		}
	}
	*ds = out
	return nil
}

func (ds Durations) Strings() []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, string(d))
	}
	return out
}
