package model

import "github.com/zerodice0/readzone/readzone/internal/errs"

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	ErrorType errs.ErrorType `json:"errorType"`
	Message   string         `json:"message"`
	Details   any            `json:"details,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

func Fail(t errs.ErrorType, msg string, details any) Response {
	return Response{Error: &ErrorBody{ErrorType: t, Message: msg, Details: details}}
}
