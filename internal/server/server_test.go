package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/exprtrail/pkg/buildinfo"
	errs "github.com/matzehuels/exprtrail/pkg/errors"
	"github.com/matzehuels/exprtrail/pkg/observability"
	"github.com/matzehuels/exprtrail/pkg/store"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

func sampleBody(t *testing.T) []byte {
	t.Helper()
	var b typez.Builder
	one := b.Primitive("Int", "1")
	two := b.Primitive("Int", "2")
	sum := b.Call("add", []string{one, two})
	neg := b.Call("neg", []string{sum})
	b.Initial(neg)
	b.Rewrite(sum, "strip_neg", "")
	b.Rewrite(two, "take_rhs", "")
	doc, err := b.Document()
	if err != nil {
		t.Fatal(err)
	}
	data, err := typez.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Config{Store: store.NewMemoryStore()}))
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, base string, body []byte) string {
	t.Helper()
	resp, err := http.Post(base+"/documents", typez.MediaType, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, data)
	}
	var out summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Steps != 3 {
		t.Errorf("uploaded steps = %d, want 3", out.Steps)
	}
	return out.ID
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s status = %d, want %d: %s", url, resp.StatusCode, wantStatus, data)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Server"); got != buildinfo.UserAgent() {
		t.Errorf("Server header = %q, want %q", got, buildinfo.UserAgent())
	}
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var info buildinfo.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info != buildinfo.Get() {
		t.Errorf("/version = %+v, want %+v", info, buildinfo.Get())
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := upload(t, srv.URL, sampleBody(t))

	if again := upload(t, srv.URL, sampleBody(t)); again != id {
		t.Errorf("re-upload id = %s, want %s", again, id)
	}

	var doc documentResponse
	getJSON(t, srv.URL+"/documents/"+id, http.StatusOK, &doc)
	if len(doc.Steps) != 3 || doc.Steps[1].Rule != "strip_neg" {
		t.Errorf("steps = %+v", doc.Steps)
	}

	var list []summaryResponse
	getJSON(t, srv.URL+"/documents", http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("list = %+v", list)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/documents/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d", resp.StatusCode)
	}

	var body errorBody
	getJSON(t, srv.URL+"/documents/"+id, http.StatusNotFound, &body)
	if body.Error.Code != errs.ErrCodeNotFound {
		t.Errorf("error code = %s, want NOT_FOUND", body.Error.Code)
	}
}

func TestStep(t *testing.T) {
	srv := newTestServer(t)
	id := upload(t, srv.URL, sampleBody(t))
	base := srv.URL + "/documents/" + id + "/steps/"

	tests := []struct {
		name    string
		path    string
		wantIDs []string
		trail   []int
		removed []string
	}{
		{"initial", "0", []string{"0", "1", "2", "3"}, []int{}, []string{}},
		{"sequential default", "1", []string{"1", "2", "3"}, []int{0}, []string{"0"}},
		{"explicit trail", "2?from=0,1", []string{"2"}, []int{0, 1}, []string{"1", "3"}},
		{"no history", "2?from=", []string{"0"}, []int{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got stepResponse
			getJSON(t, base+tt.path, http.StatusOK, &got)
			if ids := got.Elements.NodeIDs(); !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
			if !reflect.DeepEqual(got.Trail, tt.trail) {
				t.Errorf("trail = %v, want %v", got.Trail, tt.trail)
			}
			if !reflect.DeepEqual(got.Diff.Removed, tt.removed) {
				t.Errorf("removed = %v, want %v", got.Diff.Removed, tt.removed)
			}
		})
	}
}

func TestStepDOT(t *testing.T) {
	srv := newTestServer(t)
	id := upload(t, srv.URL, sampleBody(t))

	resp, err := http.Get(srv.URL + "/documents/" + id + "/steps/1.dot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/vnd.graphviz") {
		t.Errorf("Content-Type = %s", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(data), `"1" -> "2"`) {
		t.Errorf("dot output missing edge:\n%s", data)
	}
}

func TestStepSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	srv := newTestServer(t)
	id := upload(t, srv.URL, sampleBody(t))

	resp, err := http.Get(srv.URL + "/documents/" + id + "/steps/0.svg")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	if resp.Header.Get("Content-Type") != "image/svg+xml" || !bytes.Contains(data, []byte("<svg")) {
		t.Errorf("unexpected svg response %s: %.80s", resp.Header.Get("Content-Type"), data)
	}
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)
	id := upload(t, srv.URL, sampleBody(t))

	malformed := `{"nodes":[{"id":"a","function":"f","args":["missing"]}],"states":{"initial":"a"}}`
	cyclic := `{"nodes":[{"id":"a","function":"f","args":["b"]},{"id":"b","function":"g","args":["a"]}],"states":{"initial":"a"}}`

	posts := []struct {
		name        string
		contentType string
		body        string
		status      int
		code        errs.Code
	}{
		{"dangling child", typez.MediaType, malformed, http.StatusUnprocessableEntity, errs.ErrCodeInvalidDocument},
		{"cycle", "application/json", cyclic, http.StatusUnprocessableEntity, errs.ErrCodeInvalidDocument},
		{"not json", typez.MediaType, "{", http.StatusUnprocessableEntity, errs.ErrCodeInvalidDocument},
		{"no states", typez.MediaType, `{"nodes":[]}`, http.StatusUnprocessableEntity, errs.ErrCodeInvalidDocument},
		{"wrong type", "text/plain", malformed, http.StatusUnsupportedMediaType, errs.ErrCodeUnsupported},
	}
	for _, tt := range posts {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/documents", tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			var body errorBody
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if resp.StatusCode != tt.status || body.Error.Code != tt.code {
				t.Errorf("status = %d code = %s, want %d %s", resp.StatusCode, body.Error.Code, tt.status, tt.code)
			}
		})
	}

	gets := []struct {
		path   string
		status int
		code   errs.Code
	}{
		{"/documents/00000000-0000-4000-8000-000000000000", http.StatusNotFound, errs.ErrCodeNotFound},
		{"/documents/" + id + "/steps/9", http.StatusNotFound, errs.ErrCodeStepOutOfRange},
		{"/documents/" + id + "/steps/x", http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"/documents/" + id + "/steps/1?from=7", http.StatusNotFound, errs.ErrCodeStepOutOfRange},
		{"/documents/" + id + "/steps/1?from=a", http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"/documents/" + id + "/steps/1?from=0-2000000000", http.StatusNotFound, errs.ErrCodeStepOutOfRange},
		{"/documents/" + id + "/steps/1?from=0-9223372036854775807", http.StatusNotFound, errs.ErrCodeStepOutOfRange},
		{"/documents/bad%20id", http.StatusBadRequest, errs.ErrCodeInvalidInput},
	}
	for _, tt := range gets {
		t.Run(tt.path, func(t *testing.T) {
			var body errorBody
			getJSON(t, srv.URL+tt.path, tt.status, &body)
			if body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.code)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	srv := httptest.NewServer(New(Config{Metrics: hooks.Handler()}))
	defer srv.Close()

	getJSON(t, srv.URL+"/documents/00000000-0000-4000-8000-000000000000", http.StatusNotFound, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `route="/documents/{id}`) || !strings.Contains(string(data), `status="404"`) {
		t.Errorf("metrics missing 404 by route pattern:\n%s", data)
	}
}
