package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marmos91/dittohandle/pkg/handle"
)

// Handle server response codes carried in the "responseCode" field.
const (
	CodeSuccess        = 1
	CodeError          = 2
	CodeHandleNotFound = 100
	CodeHandleExists   = 101
	CodeValuesNotFound = 200
	CodeInvalidHandle  = 301
	CodeAuthentication = 402
)

// Response is the JSON body returned by the handle REST API.
type Response struct {
	ResponseCode int            `json:"responseCode"`
	Handle       string         `json:"handle,omitempty"`
	Prefix       string         `json:"prefix,omitempty"`
	Message      string         `json:"message,omitempty"`
	Values       []handle.Entry `json:"values,omitempty"`
	Handles      []string       `json:"handles,omitempty"`
}

// WriteRequestBody is the JSON body of a PUT request.
type WriteRequestBody struct {
	Values []handle.Entry `json:"values"`
}

// decodeResponse parses a body. A body that is not JSON yields a zero Response.
func decodeResponse(body []byte) Response {
	var resp Response
	_ = json.Unmarshal(body, &resp)
	return resp
}

// responseError maps an unsuccessful HTTP exchange to a HandleError.
func responseError(op, name string, status int, header http.Header, body []byte, payload string) error {
	herr := &handle.HandleError{
		Op:       op,
		Handle:   name,
		Response: string(body),
		Payload:  payload,
	}

	if status == http.StatusFound || status == http.StatusTemporaryRedirect {
		herr.Code = handle.ErrTransport
		herr.Message = fmt.Sprintf("temporary redirect to %s", header.Get("Location"))
		return herr
	}

	resp := decodeResponse(body)
	herr.Message = resp.Message

	switch {
	case resp.ResponseCode == CodeHandleNotFound:
		herr.Code = handle.ErrNotFound
	case resp.ResponseCode == CodeValuesNotFound:
		herr.Code = handle.ErrNotFound
		if herr.Message == "" {
			herr.Message = "values not found"
		}
	case resp.ResponseCode == CodeHandleExists:
		herr.Code = handle.ErrAlreadyExists
	case resp.ResponseCode == CodeInvalidHandle:
		herr.Code = handle.ErrInvalidHandle
	case resp.ResponseCode == CodeAuthentication,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		herr.Code = handle.ErrAuthentication
	default:
		herr.Code = handle.ErrTransport
		if herr.Message == "" {
			herr.Message = fmt.Sprintf("unexpected response: HTTP %d, code %d", status, resp.ResponseCode)
		}
	}
	return herr
}
