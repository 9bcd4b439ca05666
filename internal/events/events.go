// Package events defines the payloads published on the event bus while
// serving requests. Subscribers (logging, tracing) consume them; nothing in
// the planning core publishes or depends on them.
package events

import (
	"net/http"
	"time"
)

type HTTPStart struct {
	Request *http.Request
}

type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

type PlanStart struct {
	Resource string
	Fields   int
}

type PlanFinish struct {
	Resource string
	Selects  int
	Loads    int
	Err      error
	Duration time.Duration
}

type ExtractStart struct {
	Resource string
}

type ExtractFinish struct {
	Resource string
	Duration time.Duration
}
