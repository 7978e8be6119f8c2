package http

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"limit"`
	Message string                 `json:"message,omitempty" example:"limit is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
