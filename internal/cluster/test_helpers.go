package cluster

// SetForTest sets the global backend for testing.
func SetForTest(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	current = b
}

// ResetForTest clears the global backend.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
}
