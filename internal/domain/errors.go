package domain

import "errors"

var (
	// ErrValidation signals malformed or incomplete request input. Surfaced
	// as a client error; never retried.
	ErrValidation = errors.New("invalid comps request")
	// ErrComposition signals an internal inconsistency while mapping packet
	// data to markup. Not a transient condition.
	ErrComposition = errors.New("packet composition failed")
	// ErrEnvironment signals that the rendering engine or one of its system
	// dependencies (Chrome binary, fonts, graphics libraries) is missing or
	// unusable. Requires operator intervention.
	ErrEnvironment = errors.New("rendering environment unavailable")
	// ErrDelivery signals that the downstream delivery channel rejected the
	// rendered packet.
	ErrDelivery = errors.New("packet delivery failed")
)
