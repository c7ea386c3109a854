package bus

import "encoding/json"

func marshalEvent(evt NotificationEvent) ([]byte, error) {
	return json.Marshal(evt)
}

// DecodeEvent decodes a notifications-exchange message body.
func DecodeEvent(body []byte) (NotificationEvent, error) {
	var evt NotificationEvent
	err := json.Unmarshal(body, &evt)
	return evt, err
}

func marshalConfirmation(c Confirmation) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeConfirmation decodes a confirmations-queue message body.
func DecodeConfirmation(body []byte) (Confirmation, error) {
	var c Confirmation
	err := json.Unmarshal(body, &c)
	return c, err
}
