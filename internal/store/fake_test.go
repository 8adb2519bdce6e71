package store

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
)

type recordedCall struct {
	Method string
	Path   string
	Body   any
}

type handlerFunc func(body any) (any, error)

// fakeAPI routes "METHOD path" to canned handlers. Responses round-trip
// through JSON so decoding behaves as it would over the wire.
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]handlerFunc
	calls  []recordedCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{routes: make(map[string]handlerFunc)}
}

func (f *fakeAPI) on(method, path string, h handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

func (f *fakeAPI) respond(method, path string, resp any) {
	f.on(method, path, func(any) (any, error) { return resp, nil })
}

func (f *fakeAPI) fail(method, path string, err error) {
	f.on(method, path, func(any) (any, error) { return nil, err })
}

func (f *fakeAPI) Do(_ context.Context, method, path string, body, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Method: method, Path: path, Body: body})
	h, ok := f.routes[method+" "+path]
	f.mu.Unlock()

	if !ok {
		return &api.RequestError{Method: method, Path: path, StatusCode: http.StatusNotFound, Message: "not found"}
	}
	resp, err := h(body)
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &api.MalformedResponseError{Path: path, Err: err}
	}
	return nil
}

func (f *fakeAPI) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func serverError(method, path string) error {
	return &api.RequestError{Method: method, Path: path, StatusCode: http.StatusInternalServerError, Message: "boom"}
}

func testBook(id int64, title string) entities.Book {
	return entities.Book{
		ID:            id,
		Title:         title,
		Author:        "Author",
		OwnerUsername: "alice",
		ReadingStatus: entities.ReadingStatusNotRead,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func bookIDs(books []entities.Book) []int64 {
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}
