package http

import (
	"github.com/frankli0324/go-http-client/header"
	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/model"
)

type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response
type File = model.File
type Params = model.Params

type Headers = header.Headers
type SetCookie = header.SetCookie

const (
	MethodGet     = model.MethodGet
	MethodPost    = model.MethodPost
	MethodPut     = model.MethodPut
	MethodDelete  = model.MethodDelete
	MethodPatch   = model.MethodPatch
	MethodHead    = model.MethodHead
	MethodOptions = model.MethodOptions
	MethodTrace   = model.MethodTrace
	MethodConnect = model.MethodConnect

	EncURLEncoded = model.EncURLEncoded
	EncFormData   = model.EncFormData
)

var (
	ErrInvalidArgument   = errs.ErrInvalidArgument
	ErrRuntime           = errs.ErrRuntime
	ErrOutOfRange        = errs.ErrOutOfRange
	ErrBodyNotReplayable = model.ErrBodyNotReplayable
)

type ConfigurationError = errs.ConfigurationError
type ConnectionError = errs.ConnectionError
type TimeoutError = errs.TimeoutError
type ParseError = errs.ParseError

// NewRequest returns a request for method and uri; both may be empty.
func NewRequest(method, uri string) (*Request, error) { return model.NewRequest(method, uri) }

// ParseRequest reads a request from its wire form.
func ParseRequest(raw string) (*Request, error) { return model.ParseRequest(raw) }

// ParseResponse reads a response from its wire form.
func ParseResponse(raw string) (*Response, error) { return model.ParseResponse(raw) }
