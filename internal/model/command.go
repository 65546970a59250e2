package model

// Command is a client call queued during a render.
type Command struct {
	Method string
	Args   []any
}

// Placeholder stands in for external object content until the final
// substitution pass of a render.
type Placeholder struct {
	Token   string
	Content string
}
