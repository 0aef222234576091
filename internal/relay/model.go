package relay

// RelayQuery holds the toast options of a relayed call. Any other query
// parameters are forwarded to the backend untouched.
type RelayQuery struct {
	SuccessMsg string `form:"successMsg" binding:"max=200"`
	ErrorMsg   string `form:"errorMsg" binding:"max=200"`
}

// FailureDetails is returned with a 502 when the backend call failed.
type FailureDetails struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       any    `json:"body,omitempty"`
}
