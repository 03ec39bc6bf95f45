package draft

// Pending reports whether a write is waiting for the debounce window to pass.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}
