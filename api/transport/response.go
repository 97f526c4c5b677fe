package transport

// Envelope wraps every API response. Code carries the stable rejection reason
// on failures so clients can branch without parsing messages.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

func NewError(code string, message string, meta interface{}) Envelope {
	return Envelope{
		Status: StatusError,
		Code:   code,
		Error:  &ErrorBody{Message: message},
		Meta:   meta,
	}
}

// Page describes a bounded listing.
type Page struct {
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}
