package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type note struct {
	ID   string
	Body string
}

func noteToMap(n note) map[string]any {
	return map[string]any{"id": n.ID, "body": n.Body}
}

func noteFromRecord(rec *neo4j.Record) (note, error) {
	node, ok := rec.Values[0].(neo4j.Node)
	if !ok {
		return note{}, errors.New("unexpected record shape")
	}
	id, _ := node.Props["id"].(string)
	body, _ := node.Props["body"].(string)
	return note{ID: id, Body: body}, nil
}

// fakeResult feeds canned records through the result seam.
type fakeResult struct {
	records []*neo4j.Record
	idx     int
}

func (f *fakeResult) Next(context.Context) bool {
	if f.idx >= len(f.records) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeResult) Record() *neo4j.Record {
	return f.records[f.idx-1]
}

// fakeRunner captures the cypher and params of each Run call.
type fakeRunner struct {
	cypher string
	params map[string]any
	result *fakeResult
	err    error
	closed bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	f.cypher = cypher
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

func noteRecord(id, body string) *neo4j.Record {
	return &neo4j.Record{Values: []any{neo4j.Node{Props: map[string]any{"id": id, "body": body}}}}
}

func newTestRepo(fr *fakeRunner, opts ...Neo4jOption[note, string]) *Neo4jRepo[note, string] {
	r := NewNeo4jRepo[note, string](nil, "Note", noteToMap, noteFromRecord, opts...)
	r.newSession = func(context.Context) runner { return fr }
	return r
}

func TestGet_Found(t *testing.T) {
	fr := &fakeRunner{result: &fakeResult{records: []*neo4j.Record{noteRecord("n1", "hello")}}}
	repo := newTestRepo(fr)

	got, err := repo.Get(context.Background(), "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Body != "hello" {
		t.Errorf("body = %q", got.Body)
	}
	if fr.params["id"] != "n1" {
		t.Errorf("params = %v", fr.params)
	}
	if !fr.closed {
		t.Error("session not closed")
	}
}

func TestGet_NotFound(t *testing.T) {
	fr := &fakeRunner{result: &fakeResult{}}
	repo := newTestRepo(fr)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	fr := &fakeRunner{result: &fakeResult{records: []*neo4j.Record{
		noteRecord("n2", "b"), noteRecord("n1", "a"),
	}}}
	repo := newTestRepo(fr, WithOrderKey[note, string]("created_at"))

	items, err := repo.List(context.Background(), ListOpts{
		Limit:  10,
		Filter: map[string]any{"kind": "draft"},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	for _, want := range []string{"WHERE n.kind = $f_kind", "ORDER BY n.created_at DESC", "LIMIT $limit"} {
		if !strings.Contains(fr.cypher, want) {
			t.Errorf("cypher %q missing %q", fr.cypher, want)
		}
	}
	if fr.params["f_kind"] != "draft" {
		t.Errorf("filter param = %v", fr.params["f_kind"])
	}
}

func TestList_DefaultLimit(t *testing.T) {
	fr := &fakeRunner{result: &fakeResult{}}
	repo := newTestRepo(fr)
	if _, err := repo.List(context.Background(), ListOpts{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if fr.params["limit"] != 100 {
		t.Errorf("default limit = %v, want 100", fr.params["limit"])
	}
}

func TestCreate_ReturnsStoredEntity(t *testing.T) {
	fr := &fakeRunner{result: &fakeResult{records: []*neo4j.Record{noteRecord("n1", "hello")}}}
	repo := newTestRepo(fr)

	got, err := repo.Create(context.Background(), note{ID: "n1", Body: "hello"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != "n1" {
		t.Errorf("id = %q", got.ID)
	}
	props, ok := fr.params["props"].(map[string]any)
	if !ok || props["body"] != "hello" {
		t.Errorf("props = %v", fr.params["props"])
	}
}

func TestRunError_Propagates(t *testing.T) {
	fr := &fakeRunner{err: errors.New("connection refused")}
	repo := newTestRepo(fr)
	if _, err := repo.Get(context.Background(), "n1"); err == nil {
		t.Error("expected run error")
	}
}
