// Package hw adapts physical and simulated devices to the capability interfaces used by
// channelmap, fusion and actuation.
package hw

import (
	"fmt"
	"sync"

	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads the periph drivers once per process.
func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostErr
}
