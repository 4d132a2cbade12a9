package domain

import "time"

// Style selects how the notification body is laid out.
type Style int

const (
	StyleNone    Style = 0
	StyleBigText Style = 2
)

// Request describes one notification the caller wants delivered later.
// ID is caller-assigned and doubles as the alarm request code.
type Request struct {
	ID              int           `json:"id"`
	FireTime        time.Time     `json:"fire_time"`
	RepeatInterval  time.Duration `json:"repeat_interval,omitempty"`
	ChannelID       string        `json:"channel_id"`
	Title           string        `json:"title"`
	Body            string        `json:"body"`
	SmallIcon       string        `json:"small_icon"`
	LargeIcon       string        `json:"large_icon,omitempty"`
	Color           int32         `json:"color,omitempty"`
	Number          int           `json:"number,omitempty"`
	Style           Style         `json:"style,omitempty"`
	ShowTimestamp   bool          `json:"show_timestamp,omitempty"`
	Timestamp       time.Time     `json:"timestamp,omitempty"`
	UsesChronometer bool          `json:"uses_chronometer,omitempty"`
	AutoCancel      *bool         `json:"auto_cancel,omitempty"`
	IntentData      string        `json:"intent_data,omitempty"`
	Group           string        `json:"group,omitempty"`
}

// IsRepeating reports whether the notification stays scheduled after it fires.
func (r *Request) IsRepeating() bool {
	return r.RepeatInterval > 0
}

// ShouldAutoCancel defaults to true when the caller did not say otherwise.
func (r *Request) ShouldAutoCancel() bool {
	return r.AutoCancel == nil || *r.AutoCancel
}

func (r *Request) Validate() error {
	if r.ID < 0 {
		return ErrInvalidID
	}
	if r.ChannelID == "" {
		return ErrInvalidChannel
	}
	if r.SmallIcon == "" {
		return ErrInvalidIcon
	}
	if r.FireTime.IsZero() {
		return ErrInvalidFireTime
	}
	if r.RepeatInterval < 0 {
		return ErrInvalidInterval
	}
	return nil
}

// Status is the answer to "what happened to notification N".
// The numeric values are part of the caller contract.
type Status int

const (
	StatusUnsupported Status = -1
	StatusUnknown     Status = 0
	StatusScheduled   Status = 1
	StatusDelivered   Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusUnsupported:
		return "unsupported"
	case StatusScheduled:
		return "scheduled"
	case StatusDelivered:
		return "delivered"
	}
	return "unknown"
}

// Defaults mirrors the platform's notification default flags.
type Defaults int

const (
	DefaultSound   Defaults = 1
	DefaultVibrate Defaults = 2
	DefaultLights  Defaults = 4
	DefaultAll     Defaults = DefaultSound | DefaultVibrate | DefaultLights
)

// TapAction is what the platform launches when the user taps the notification.
type TapAction struct {
	NotificationID int    `json:"notification_id"`
	Data           string `json:"data,omitempty"`
	NewTask        bool   `json:"new_task"`
	ClearTask      bool   `json:"clear_task"`
}

// Rendered is the concrete attribute set handed to the host renderer.
// Priority, Defaults, Vibrate and Visibility are only filled on pre-channel platforms.
type Rendered struct {
	ID              int         `json:"id"`
	ChannelID       string      `json:"channel_id,omitempty"`
	Title           string      `json:"title"`
	Body            string      `json:"body"`
	SmallIcon       int         `json:"small_icon"`
	LargeIcon       int         `json:"large_icon,omitempty"`
	Color           int32       `json:"color,omitempty"`
	Colorized       bool        `json:"colorized,omitempty"`
	Number          int         `json:"number,omitempty"`
	BigText         string      `json:"big_text,omitempty"`
	BigTitle        string      `json:"big_title,omitempty"`
	When            time.Time   `json:"when"`
	ShowWhen        bool        `json:"show_when"`
	UsesChronometer bool        `json:"uses_chronometer,omitempty"`
	AutoCancel      bool        `json:"auto_cancel"`
	Group           string      `json:"group,omitempty"`
	Tap             TapAction   `json:"tap"`
	Priority        *Priority   `json:"priority,omitempty"`
	Defaults        Defaults    `json:"defaults,omitempty"`
	Vibrate         []int64     `json:"vibrate,omitempty"`
	Visibility      *Visibility `json:"visibility,omitempty"`
}
