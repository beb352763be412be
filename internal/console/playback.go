// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

// Controller owns the current result set and the single active playback key.
// It is not safe for concurrent use; Session serializes access.
type Controller struct {
	results []Result
	index   map[string]int
	active  string
}

// NewController returns an idle controller with an empty result set.
func NewController() *Controller {
	return &Controller{index: map[string]int{}}
}

// Replace installs a new result set and returns to idle.
func (c *Controller) Replace(results []Result) {
	c.results = make([]Result, len(results))
	c.index = make(map[string]int, len(results))
	for i, r := range results {
		r.Playing = false
		c.results[i] = r
		c.index[r.Key] = i
	}
	c.active = ""
}

// Toggle starts playback of key, or stops it when key is already active.
// Starting a key stops any other in the same transition.
func (c *Controller) Toggle(key string) (bool, error) {
	i, ok := c.index[key]
	if !ok {
		return false, ErrUnknownKey
	}
	if !c.results[i].Playable() {
		return false, ErrNotPlayable
	}
	if c.active == key {
		c.active = ""
		return false, nil
	}
	c.active = key
	return true, nil
}

// Active returns the playing key, if any.
func (c *Controller) Active() (string, bool) {
	return c.active, c.active != ""
}

// Get returns the row for key.
func (c *Controller) Get(key string) (Result, bool) {
	i, ok := c.index[key]
	if !ok {
		return Result{}, false
	}
	r := c.results[i]
	r.Playing = r.Key == c.active
	return r, true
}

// Results returns a copy of the set with Playing derived from the active key.
func (c *Controller) Results() []Result {
	out := make([]Result, len(c.results))
	for i, r := range c.results {
		r.Playing = c.active != "" && r.Key == c.active
		out[i] = r
	}
	return out
}

// Stop returns to idle without touching the result set.
func (c *Controller) Stop() {
	c.active = ""
}
