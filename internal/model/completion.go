package model

import "sort"

// Completion is the set of dates on which a recurring task's occurrence was
// marked complete. Entries are unique, well-formed and kept sorted.
type Completion struct {
	dates []Date
}

func NewCompletion(dates ...Date) Completion {
	valid := make([]Date, 0, len(dates))
	for _, d := range dates {
		if d.Valid() {
			valid = append(valid, d)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })
	var c Completion
	for i, d := range valid {
		if i > 0 && valid[i-1] == d {
			continue
		}
		c.dates = append(c.dates, d)
	}
	return c
}

func (c Completion) Has(d Date) bool {
	i := sort.Search(len(c.dates), func(i int) bool { return c.dates[i] >= d })
	return i < len(c.dates) && c.dates[i] == d
}

// Toggle adds d when absent and removes it when present, returning whether the
// occurrence on d is complete afterwards. The backing array is never shared
// with earlier copies of c.
func (c *Completion) Toggle(d Date) bool {
	i := sort.Search(len(c.dates), func(i int) bool { return c.dates[i] >= d })
	if i < len(c.dates) && c.dates[i] == d {
		if len(c.dates) == 1 {
			c.dates = nil
			return false
		}
		next := make([]Date, 0, len(c.dates)-1)
		next = append(next, c.dates[:i]...)
		c.dates = append(next, c.dates[i+1:]...)
		return false
	}
	next := make([]Date, 0, len(c.dates)+1)
	next = append(next, c.dates[:i]...)
	next = append(next, d)
	c.dates = append(next, c.dates[i:]...)
	return true
}

// Earliest returns the first completed date.
func (c Completion) Earliest() (Date, bool) {
	if len(c.dates) == 0 {
		return "", false
	}
	return c.dates[0], true
}

// Latest returns the most recent completed date.
func (c Completion) Latest() (Date, bool) {
	if len(c.dates) == 0 {
		return "", false
	}
	return c.dates[len(c.dates)-1], true
}

func (c Completion) Len() int { return len(c.dates) }

func (c Completion) Dates() []Date {
	return append([]Date(nil), c.dates...)
}

func (c Completion) clone() Completion {
	if c.dates == nil {
		return Completion{}
	}
	return Completion{dates: append([]Date(nil), c.dates...)}
}
