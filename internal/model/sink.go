package model

import (
	"net/http"
	"strings"

	"github.com/frankli0324/go-http-client/header"
)

// Sink receives a response for output somewhere else, e.g. when proxying
// it to a server side client.
type Sink interface {
	EmitHeaders(code int, reason string, fields []header.Field) error
	EmitBody(body []byte) error
}

// fields describing the encoded body; Emit hands out the decoded one
var hopFields = map[string]bool{
	"content-length": true, "transfer-encoding": true, "content-encoding": true, "connection": true,
}

// Emit hands the status, headers and decoded body to s.
func (r *Response) Emit(s Sink) error {
	body, err := r.Body()
	if err != nil {
		return err
	}
	fields := make([]header.Field, 0, r.Headers.Len())
	for _, f := range r.Headers.Fields() {
		if !hopFields[strings.ToLower(f.FieldName())] {
			fields = append(fields, f)
		}
	}
	if err := s.EmitHeaders(r.StatusCode, r.ReasonPhrase, fields); err != nil {
		return err
	}
	return s.EmitBody(body)
}

// WriterSink emits into a net/http ResponseWriter.
type WriterSink struct {
	W http.ResponseWriter
}

func (s WriterSink) EmitHeaders(code int, _ string, fields []header.Field) error {
	h := s.W.Header()
	for _, f := range fields {
		h.Add(f.FieldName(), f.FieldValue())
	}
	s.W.WriteHeader(code)
	return nil
}

func (s WriterSink) EmitBody(body []byte) error {
	_, err := s.W.Write(body)
	return err
}
