package access

// Preview is the embedded variant of a decision. Instead of redirecting, a
// denied viewer sees the first items of a list and an obscured remainder
// with an upgrade call to action.
type Preview struct {
	Decision Decision `json:"decision"`

	// Locked is true when the viewer lacks access to the full content.
	Locked bool `json:"locked"`

	// Visible is how many leading items may be rendered in full.
	Visible int `json:"visible"`

	// Blur is true when some items must be rendered obscured.
	Blur bool `json:"blur"`

	// Location is the call-to-action target for a locked preview.
	Location string `json:"location,omitempty"`
}

// Preview evaluates req and applies the preview-count exception. total is
// the number of items in the content; previewCount is how many of them a
// locked viewer may still see.
func (g *Gate) Preview(req Request, total, previewCount int) Preview {
	if total < 0 {
		total = 0
	}

	d := g.Decide(req)
	if d.Allowed() {
		return Preview{Decision: d, Visible: total}
	}

	visible := min(max(previewCount, 0), total)
	return Preview{
		Decision: d,
		Locked:   true,
		Visible:  visible,
		Blur:     visible < total,
		Location: d.Location,
	}
}
