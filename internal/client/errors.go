package client

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcHTTPStatus maps the gRPC codes the server returns to their HTTP
// equivalents so callers can check one status space for both transports.
var grpcHTTPStatus = map[codes.Code]int{
	codes.InvalidArgument: http.StatusBadRequest,
	codes.Unauthenticated: http.StatusUnauthorized,
	codes.NotFound:        http.StatusNotFound,
	codes.AlreadyExists:   http.StatusConflict,
	codes.Internal:        http.StatusInternalServerError,
	codes.Unavailable:     http.StatusServiceUnavailable,
}

// StatusCode returns the HTTP status carried by err from either transport,
// or 0 when err is not a server response.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		return grpcHTTPStatus[st.Code()]
	}
	return 0
}

// IsConflict reports whether err says the record already exists.
func IsConflict(err error) bool { return StatusCode(err) == http.StatusConflict }

// IsNotFound reports whether err says the record does not exist.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }
