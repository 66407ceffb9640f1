// Package status normalizes an instance's optional status link for display.
//
// The hardware list and the detail views disagree on how an unset status is
// shown. Both behaviours are kept because clients already depend on them.
package status

// Available is shown on the hardware list when no instance has a status.
const Available = "Available"

// ForList returns the value of the status column on the hardware list: the
// status labels of the asset's instances, or Available when there are none.
func ForList(labels []string) any {
	if len(labels) == 0 {
		return Available
	}
	return labels
}

// ForDetail returns the status id shown on detail and instance-list views.
// An absent or zero link is reported as nil.
func ForDetail(link *uint) *uint {
	if link == nil || *link == 0 {
		return nil
	}
	id := *link
	return &id
}
