package models

// ChatResponse is the success body: always a single reply string so the
// widget renders refusals and answers the same way.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the body for every non-200 outcome.
type ErrorResponse struct {
	Error string `json:"error"`
}
