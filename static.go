package http

import (
	"context"
	"sort"
	"sync"

	"github.com/frankli0324/go-http-client/internal/errs"
	"github.com/frankli0324/go-http-client/internal/model"
)

// the helpers below share one client, so cookies set by a response are
// sent by the following calls.
var (
	staticMu     sync.Mutex
	staticClient *Client
)

// SetStaticClient replaces the client used by [Get] and [Post]. nil
// restores a default one on the next call.
func SetStaticClient(c *Client) {
	staticMu.Lock()
	defer staticMu.Unlock()
	staticClient = c
}

func sharedClient() (*Client, error) {
	if staticClient == nil {
		c, err := New("")
		if err != nil {
			return nil, err
		}
		staticClient = c
	}
	return staticClient, nil
}

// Get sends a GET request to uri. it returns a nil response and no error
// when uri is empty.
func Get(uri string, query map[string]interface{}, headers map[string]string, body []byte) (*Response, error) {
	return GetContext(context.Background(), uri, query, headers, body)
}

func GetContext(ctx context.Context, uri string, query map[string]interface{}, headers map[string]string, body []byte) (*Response, error) {
	if uri == "" {
		return nil, nil
	}
	r, err := staticRequest(MethodGet, uri, headers)
	if err != nil {
		return nil, err
	}
	for _, k := range sortedNames(query) {
		r.Query.Set(k, query[k])
	}
	if len(body) > 0 {
		r.Body = body
	}
	return sendStatic(ctx, r)
}

// Post sends params as a form to uri. the Content-Type defaults to
// urlencoded unless headers set one.
func Post(uri string, params map[string]interface{}, headers map[string]string, body []byte) (*Response, error) {
	return PostContext(context.Background(), uri, params, headers, body)
}

func PostContext(ctx context.Context, uri string, params map[string]interface{}, headers map[string]string, body []byte) (*Response, error) {
	if uri == "" {
		return nil, nil
	}
	if len(params) == 0 {
		return nil, errs.Config("the array of post parameters is empty")
	}
	r, err := staticRequest(MethodPost, uri, headers)
	if err != nil {
		return nil, err
	}
	if !r.Headers.Has("Content-Type") {
		if err := r.Headers.AddPair("Content-Type", EncURLEncoded); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedNames(params) {
		r.Post.Set(k, params[k])
	}
	if len(body) > 0 {
		r.Body = body
	}
	return sendStatic(ctx, r)
}

func staticRequest(method, uri string, headers map[string]string) (*model.Request, error) {
	r, err := model.NewRequest(method, uri)
	if err != nil {
		return nil, err
	}
	for _, k := range sortedNames(headers) {
		if err := r.Headers.AddPair(k, headers[k]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func sendStatic(ctx context.Context, r *model.Request) (*Response, error) {
	staticMu.Lock()
	defer staticMu.Unlock()
	c, err := sharedClient()
	if err != nil {
		return nil, err
	}
	return c.SendContext(ctx, r)
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
