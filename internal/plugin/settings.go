package plugin

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// settingsBag flattens the two payload shapes the host is known to emit:
// a plain map under "settings" and a list of {key, value} objects under
// either "settings" or "pluginSettings".
type settingsBag struct {
	values   map[string]string
	taskName string
}

func parseSettings(blocks ...json.RawMessage) settingsBag {
	bag := settingsBag{values: map[string]string{}}
	for _, block := range blocks {
		if len(block) == 0 {
			continue
		}
		if parsed, ok := parseSettingsMap(block); ok {
			merge(bag.values, parsed)
			continue
		}
		if parsed, ok := parseSettingsList(block); ok {
			merge(bag.values, parsed)
		}
	}
	return bag
}

func parseSettingsMap(block json.RawMessage) (map[string]string, bool) {
	var m map[string]any
	if err := json.Unmarshal(block, &m); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for key, value := range m {
		out[key] = stringify(value)
	}
	return out, true
}

func parseSettingsList(block json.RawMessage) (map[string]string, bool) {
	var list []struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(block, &list); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(list))
	for _, item := range list {
		if item.Key == "" {
			continue
		}
		var value any
		if err := json.Unmarshal(item.Value, &value); err != nil {
			continue
		}
		out[item.Key] = stringify(value)
	}
	return out, true
}

// lookup returns the stored value. Earlier blocks win on key conflicts.
func (b settingsBag) lookup(name string) (string, bool) {
	value, ok := b.values[name]
	return value, ok
}

func merge(dst, src map[string]string) {
	for key, value := range src {
		if _, exists := dst[key]; !exists {
			dst[key] = value
		}
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
