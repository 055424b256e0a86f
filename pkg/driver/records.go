package driver

// envelopeKeys are the list-payload wrappers used across the supported
// vendors, checked in order.
var envelopeKeys = []string{"data", "items", "results", "records", "Data", "Items", "Results"}

// DecodeRecords extracts a record list from a decoded JSON response body.
// Vendors wrap lists in different envelopes; a bare array decodes as []any.
func DecodeRecords(body any) []Record {
	switch payload := body.(type) {
	case []any:
		return toRecords(payload)
	case map[string]any:
		for _, key := range envelopeKeys {
			if inner, ok := payload[key]; ok {
				if list, ok := inner.([]any); ok {
					return toRecords(list)
				}
			}
		}
		// A single object response counts as one record.
		return []Record{Record(payload)}
	default:
		return nil
	}
}

func toRecords(list []any) []Record {
	records := make([]Record, 0, len(list))

	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, Record(obj))
		}
	}

	return records
}
