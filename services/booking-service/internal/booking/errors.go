package booking

import "errors"

// Rejections. Every one leaves storage untouched.
var (
	ErrSlotTaken       = errors.New("slot already taken")
	ErrInPast          = errors.New("start time is in the past")
	ErrOutsideHours    = errors.New("start time is outside business hours")
	ErrOffGrid         = errors.New("start time is not on the slot grid")
	ErrAccountInactive = errors.New("account is not active")
	ErrNotFound        = errors.New("appointment not found")
)
