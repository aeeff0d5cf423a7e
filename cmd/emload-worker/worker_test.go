package main

import (
	"testing"
	"time"
)

func TestRetryWaitDuration(t *testing.T) {
	tests := []struct {
		retry int
		min   time.Duration
		max   time.Duration
	}{
		{-1, 250 * time.Millisecond, 750 * time.Millisecond},
		{0, 250 * time.Millisecond, 750 * time.Millisecond},
		{1, 375 * time.Millisecond, 1125 * time.Millisecond},
		{12, 32 * time.Second, 98 * time.Second},
		{100, 32 * time.Second, 98 * time.Second},
	}
	for _, tt := range tests {
		for i := 0; i < 100; i++ {
			got := retryWaitDuration(tt.retry)
			if got < tt.min || got > tt.max {
				t.Fatalf("got %v for retry %d, want within [%v, %v]", got, tt.retry, tt.min, tt.max)
			}
		}
	}
}
