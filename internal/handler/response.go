package handler

// Response is the envelope returned by every API endpoint, including the
// automation trigger and campaign surfaces. Status is "success" or "error";
// Data carries the payload (run summaries, campaigns, dispatch log pages)
// and Message carries the error text.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
