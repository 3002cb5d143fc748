package engine

import "context"

// Delivery is the content a Binding step hands to its output binding.
type Delivery struct {
	Step       string `json:"step"`
	Binding    string `json:"binding"`
	Type       string `json:"type"`
	Connection string `json:"connection,omitempty"`
	Content    any    `json:"content"`
}

// Publisher delivers Binding step content in interpreter mode.
// Without one, Binding steps only record their content as the step result.
type Publisher interface {
	Publish(ctx context.Context, d Delivery) error
}
