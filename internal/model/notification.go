package model

import (
	"time"
)

// Notification is an in-app inbox entry for one user.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdTime"`
}

type NotificationList struct {
	Count int             `json:"count"`
	Items []*Notification `json:"items"`
}

type NotificationFilters struct {
	Skip       int
	Take       int
	OnlyUnread bool
}

// NotificationEvent is published on the broker whenever a notification is stored.
type NotificationEvent struct {
	EventID        string    `json:"eventId"`
	NotificationID int64     `json:"notificationId"`
	UserID         string    `json:"userId"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}
