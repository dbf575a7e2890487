package dto

import (
	"bytes"
	"encoding/json"
)

// ResourceID accepts the notified id as a JSON string or number.
type ResourceID string

func (id *ResourceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ResourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ResourceID(n.String())
	return nil
}

// WebhookNotification is the gateway notification envelope. Only the resource
// id and kind are read; state is always fetched again.
type WebhookNotification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID ResourceID `json:"id"`
	} `json:"data"`
}

// AckResponse reports what a notification did.
type AckResponse struct {
	Ignored bool   `json:"ignored"`
	Reason  string `json:"reason,omitempty"`
	OrderID int64  `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Changed bool   `json:"changed"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
