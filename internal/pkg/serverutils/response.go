package serverutils

// ApiResponse is the standard envelope for every JSON endpoint.
type ApiResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func SuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) ApiResponse[any] {
	return ApiResponse[any]{
		Success: false,
		Message: message,
		Code:    code,
	}
}
