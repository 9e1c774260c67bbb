package eventlistener

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const logsNotificationMethod = "logsNotification"

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Dispatch turns one websocket frame into creation events. Frames that are
// not create notifications yield nothing. Lines that fail to decode are
// returned as *DecodeError and do not stop the remaining lines.
func Dispatch(msg []byte) ([]CreationEvent, []error) {
	var n logsNotification
	if err := json.Unmarshal(msg, &n); err != nil {
		return nil, []error{&DecodeError{Err: fmt.Errorf("malformed frame: %w", err)}}
	}
	if n.Method != logsNotificationMethod {
		return nil, nil
	}

	value := n.Params.Result.Value
	if !containsCreate(value.Logs) {
		return nil, nil
	}

	var (
		events []CreationEvent
		errs   []error
	)
	for _, line := range value.Logs {
		_, payload, ok := strings.Cut(line, programDataPrefix)
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			errs = append(errs, &DecodeError{Signature: value.Signature, Line: line, Err: err})
			continue
		}
		ev, err := DecodeCreateEvent(data)
		if err != nil {
			errs = append(errs, &DecodeError{Signature: value.Signature, Line: line, Err: err})
			continue
		}
		if ev.Name == "" {
			continue
		}
		ev.Signature = value.Signature
		events = append(events, ev)
	}
	return events, errs
}

func containsCreate(logs []string) bool {
	for _, l := range logs {
		if strings.Contains(l, createInstructionMarker) {
			return true
		}
	}
	return false
}
