package domain

// Importance is the channel-level interruption level.
type Importance int

const (
	ImportanceUnspecified Importance = -1000
	ImportanceNone        Importance = 0
	ImportanceMin         Importance = 1
	ImportanceLow         Importance = 2
	ImportanceDefault     Importance = 3
	ImportanceHigh        Importance = 4
)

// Priority is the per-notification level used before channels existed.
type Priority int

const (
	PriorityMin     Priority = -2
	PriorityLow     Priority = -1
	PriorityDefault Priority = 0
	PriorityHigh    Priority = 1
	PriorityMax     Priority = 2
)

// PriorityFor maps a channel importance onto the legacy priority scale.
func PriorityFor(i Importance) Priority {
	switch i {
	case ImportanceHigh:
		return PriorityMax
	case ImportanceDefault:
		return PriorityDefault
	case ImportanceLow:
		return PriorityLow
	case ImportanceNone:
		return PriorityMin
	}
	return PriorityDefault
}

// Visibility controls what the lock screen shows.
type Visibility int

const (
	VisibilitySecret  Visibility = -1
	VisibilityPrivate Visibility = 0
	VisibilityPublic  Visibility = 1
)

// Channel is a notification category with shared display, sound and priority attributes.
type Channel struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Importance           Importance `json:"importance"`
	Description          string     `json:"description"`
	EnableLights         bool       `json:"enable_lights"`
	EnableVibration      bool       `json:"enable_vibration"`
	CanBypassDnd         bool       `json:"can_bypass_dnd"`
	CanShowBadge         bool       `json:"can_show_badge"`
	VibrationPattern     []int64    `json:"vibration_pattern,omitempty"`
	LockscreenVisibility Visibility `json:"lockscreen_visibility"`
}

func (c *Channel) Validate() error {
	if c.ID == "" {
		return ErrInvalidChannel
	}
	if c.Name == "" {
		return ErrInvalidName
	}
	return nil
}
