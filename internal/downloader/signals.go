package downloader

import "time"

// pauseDebounce is the fixed 100 ms delay spec.md §4.2/§4.3/§9 requires
// before a pause or delete actually releases a permit, to avoid a storm of
// permits being dropped and immediately reacquired under a mass pause or
// mass delete. Do not remove; only parametrize if tuning is ever needed.
const pauseDebounce = 100 * time.Millisecond

// sendSignal performs a non-blocking send on a size-1 signal channel,
// dropping the signal if one is already pending. Signals here (pause,
// resume, restart, delete, cancel) are idempotent requests — a dropped
// duplicate changes nothing because the driver only ever cares whether at
// least one arrived since it last checked.
func sendSignal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// newSignalChan creates a size-1 signal channel, the building block for
// every request channel a Task exposes to its Manager.
func newSignalChan() chan struct{} {
	return make(chan struct{}, 1)
}
