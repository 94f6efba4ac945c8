package server

// Request types for WebSocket commands with validation tags.
// These types define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// ScanRequest is the request body for scan/run. All fields are optional;
// an empty request runs an unfiltered pass over the deduplicated view.
type ScanRequest struct {
	Card   string `json:"card" validate:"omitempty,max=256"`
	Device string `json:"device" validate:"omitempty,max=256"`
	All    bool   `json:"all"`
}

// EventsRequest is the request body for events/get.
type EventsRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=500"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,oneof=all scan change lifecycle"`
}
