package models

import "time"

type Notification struct {
	ID        int64     `json:"nId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Recipient *User     `json:"recipient"`
	Document  Document  `json:"document"`
}
