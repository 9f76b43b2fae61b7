package upstream

import "encoding/json"

// listKeys are the envelope keys a listing response may wrap its payload
// under. Responses also arrive as bare arrays.
var listKeys = []string{
	"data", "items", "results", "records",
	"products", "inventory", "inventories", "stocks", "stock",
}

// UnwrapList extracts the list payload from a listing response body. It
// accepts a bare JSON array or an object wrapping the array under one of the
// conventional keys (one level of nesting allowed, e.g. {"data":{"items":[...]}}).
// An unrecognized shape returns ok=false; callers degrade to an empty list
// so a partial backend outage never crashes the order flow.
func UnwrapList(body []byte) ([]json.RawMessage, bool) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, true
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}
	for _, key := range listKeys {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &list); err == nil {
			return list, true
		}
		// The key may wrap another envelope.
		if nested, ok := UnwrapList(inner); ok {
			return nested, true
		}
	}
	return nil, false
}
