// Package executor dispatches a resolved test-case call to the API client
// and decodes the response.
package executor

import (
	"context"
	"errors"
	"fmt"

	"tcrun/internal/apiclient"
	"tcrun/internal/request"
	"tcrun/internal/resource"
	"tcrun/internal/testcase"
	"tcrun/pkg/logging"
)

// UnsupportedMethodError is returned for a method outside GET, POST, PUT,
// PATCH and DELETE.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method %q", e.Method)
}

// IsUnsupportedMethod checks if an error is or wraps an UnsupportedMethodError.
func IsUnsupportedMethod(err error) bool {
	var ue *UnsupportedMethodError
	return errors.As(err, &ue)
}

// Call is a fully resolved operation.
type Call struct {
	Method  testcase.Method
	URL     string
	Payload *request.Payload
	// ResponseType names the registered type the body decodes into.
	ResponseType string
	QueryParams  []apiclient.Param
	PathParams   []apiclient.Param
	Token        string
}

// Result is an executed call.
type Result struct {
	Status int
	Body   []byte
	// Typed is the body decoded into ResponseType, or the generic document
	// when no type is registered. Nil for DELETE.
	Typed any
	// Document is the generic form of Typed, used for flattening and
	// JSONPath evaluation.
	Document any
}

type operation func(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)

// Executor dispatches calls by method.
type Executor struct {
	client apiclient.Client
	types  *resource.TypeRegistry
	ops    map[testcase.Method]operation
}

// New creates an executor. types may be nil.
func New(client apiclient.Client, types *resource.TypeRegistry) *Executor {
	return &Executor{
		client: client,
		types:  types,
		ops: map[testcase.Method]operation{
			testcase.MethodGet:    client.Get,
			testcase.MethodPost:   client.Post,
			testcase.MethodPut:    client.Put,
			testcase.MethodPatch:  client.Patch,
			testcase.MethodDelete: client.Delete,
		},
	}
}

// Execute performs call. GET and DELETE never send a payload.
func (e *Executor) Execute(ctx context.Context, call Call) (*Result, error) {
	method := call.Method.Normalize()
	op, ok := e.ops[method]
	if !ok {
		return nil, &UnsupportedMethodError{Method: string(call.Method)}
	}

	req := apiclient.Request{
		URL:         call.URL,
		QueryParams: call.QueryParams,
		PathParams:  call.PathParams,
		Token:       call.Token,
	}
	if call.Payload != nil && method != testcase.MethodGet && method != testcase.MethodDelete {
		req.Body = call.Payload.Body
	}

	resp, err := op(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, call.URL, err)
	}

	result := &Result{Status: resp.StatusCode, Body: resp.Body}
	if method == testcase.MethodDelete {
		return result, nil
	}

	if err := e.decode(call.ResponseType, result); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, call.URL, err)
	}
	return result, nil
}

// decode fills Typed and Document. A registered response type must decode;
// an untyped body that is not JSON leaves both nil.
func (e *Executor) decode(responseType string, result *Result) error {
	if responseType != "" {
		if fn, ok := e.types.Lookup(responseType); ok {
			typed, err := fn(result.Body)
			if err != nil {
				return err
			}
			doc, err := resource.Normalize(typed)
			if err != nil {
				return err
			}
			result.Typed, result.Document = typed, doc
			return nil
		}
		logging.Debug("Executor", "Response type %q is not registered, decoding generically", responseType)
	}

	doc, err := resource.DecodeGeneric(result.Body)
	if err != nil {
		logging.Warn("Executor", "Response body is not JSON (status %d), assertions will see an empty document", result.Status)
		return nil
	}
	result.Typed, result.Document = doc, doc
	return nil
}
