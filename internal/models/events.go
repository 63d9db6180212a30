package models

import "time"

// StatusChange is emitted whenever a tracked service's status is updated by a
// probe, a supervisor action, or an external push notification. Previous and
// Current are copies; listeners may hold them freely.
type StatusChange struct {
	Name     string        `json:"name"`
	Previous ServiceStatus `json:"previous"`
	Current  ServiceStatus `json:"current"`
	At       time.Time     `json:"at"`
}
