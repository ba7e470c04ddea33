package token

import "errors"

var (
	ErrHMACKeyMissing  = errors.New("token hmac key missing")
	ErrHMACKeyTooShort = errors.New("token hmac key too short")
)
