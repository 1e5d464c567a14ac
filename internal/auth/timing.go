package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for auth timing-delay behavior
type TimingConfig struct {
	BaseDelayMs   int
	RandomDelayMs int
}

// TimingDelay equalizes the observable duration of login failures so the
// "user not found" and "wrong password" paths are indistinguishable.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(buf) % uint64(max)), nil
}

// WaitFrom sleeps until at least base+random delay has elapsed since
// startTime. No-op on success.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success {
		return
	}

	target := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			target += time.Duration(n) * time.Millisecond
		}
	}

	if elapsed := time.Since(startTime); elapsed < target {
		time.Sleep(target - elapsed)
	}
}
