package mocks

import (
	"testing"

	mock "github.com/stretchr/testify/mock"
)

// Write is a single captured WriteFile call.
type Write struct {
	Name string
	Data string
}

// WriteCapturer records every WriteFile call made to a mock StagingStore.
type WriteCapturer struct {
	Store *StagingStore
	Got   []Write

	name string
}

func (c *WriteCapturer) captureName(name string) bool {
	c.name = name
	return true
}

func (c *WriteCapturer) captureData(data []byte) bool {
	c.Got = append(c.Got, Write{Name: c.name, Data: string(data)})
	return true
}

// NewWriteCapturer returns a capturer whose store accepts any number of
// writes.
func NewWriteCapturer(t *testing.T) *WriteCapturer {
	c := &WriteCapturer{
		Store: NewStagingStore(t),
	}

	c.Store.
		On("WriteFile", mock.Anything, mock.MatchedBy(c.captureName), mock.MatchedBy(c.captureData)).
		Maybe().
		Return(nil)

	return c
}
