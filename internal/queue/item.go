package queue

import "time"

// Item is one fired alarm waiting for delivery. Payload is the encoded
// request exactly as it was registered; ChannelID is only used for throttling.
type Item struct {
	NotificationID int
	ChannelID      string
	FireAt         time.Time
	Payload        []byte
}
