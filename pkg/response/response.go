package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Meta       *Meta       `json:"meta,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Meta describes one page of a listing
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps a page of results with its paging metadata
func SuccessWithPagination(statusCode int, data interface{}, page, limit int, total int64) Response {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Meta:       &Meta{Page: page, Limit: limit, Total: total, TotalPages: pages},
	}
}

// Error returns a standard error response; message is the client-facing
// explanation and err the short error class.
func Error(statusCode int, err string, message ...string) Response {
	r := Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
	if len(message) > 0 {
		r.Message = message[0]
	}
	return r
}
