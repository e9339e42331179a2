//go:build !hwdevices

package main

import (
	_ "github.com/pion/mediadevices/pkg/driver/audiotest"
	_ "github.com/pion/mediadevices/pkg/driver/videotest"
)

// Synthetic test pattern and tone; build with -tags hwdevices for real devices.
const driverSet = "test"
