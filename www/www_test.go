package www

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"tradecore/config"
	"tradecore/engine"
	"tradecore/model"
	"tradecore/store"
)

func testServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	return serve(t, engine.Config{})
}

func serve(t *testing.T, c engine.Config) (*httptest.Server, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(c)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	srv := httptest.NewServer(NewRouter(eng, nil))
	t.Cleanup(srv.Close)
	return srv, eng
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, body)
	}
}

const orderBody = `{"origin":"earth","destination":"mars","items":[{"product_id":"water","quantity":4,"universal_price":"2.5","local_price":"2.5"}]}`

func TestListAndGetNodes(t *testing.T) {
	srv, _ := testServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/nodes", "")
	expectStatus(t, resp, http.StatusOK)
	var nodes []model.Node
	decode(t, resp, &nodes)
	if len(nodes) != 10 {
		t.Fatalf("nodes = %d, want 10", len(nodes))
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/nodes?zone=centauri", "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &nodes)
	if len(nodes) != 2 {
		t.Errorf("centauri nodes = %d, want 2", len(nodes))
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/nodes/mars", "")
	expectStatus(t, resp, http.StatusOK)
	var n model.Node
	decode(t, resp, &n)
	if n.ID != "mars" {
		t.Errorf("node = %s, want mars", n.ID)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/nodes/pluto", "")
	expectStatus(t, resp, http.StatusNotFound)
}

func TestSetNodeStatus(t *testing.T) {
	srv, eng := testServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/nodes/tau-ceti-e/status", `{"status":"active"}`)
	expectStatus(t, resp, http.StatusOK)
	n, _ := eng.Registry().Get("tau-ceti-e")
	if n.Status != model.NodeActive {
		t.Errorf("status = %s, want active", n.Status)
	}

	resp = do(t, http.MethodPut, srv.URL+"/api/nodes/tau-ceti-e/status", `{"status":"sleeping"}`)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, http.MethodPut, srv.URL+"/api/nodes/pluto/status", `{"status":"active"}`)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestCreateAndGetOrder(t *testing.T) {
	srv, _ := testServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/orders", orderBody)
	expectStatus(t, resp, http.StatusCreated)
	var o model.Order
	decode(t, resp, &o)
	if o.ID == "" || o.Status != model.StatusPending || o.Currency == "" {
		t.Fatalf("order = %+v", o)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/orders/"+o.ID, "")
	expectStatus(t, resp, http.StatusOK)
	var got model.Order
	decode(t, resp, &got)
	if got.ID != o.ID || !got.TotalCost.Equal(o.TotalCost) {
		t.Errorf("got %+v, want %+v", got, o)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/orders", "")
	expectStatus(t, resp, http.StatusOK)
	var list []model.Order
	decode(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("orders = %d, want 1", len(list))
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/orders?status=delivered", "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &list)
	if len(list) != 0 {
		t.Errorf("delivered orders = %d, want 0", len(list))
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/orders?status=lost", "")
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestCreateOrderErrors(t *testing.T) {
	srv, eng := testServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"origin":`, http.StatusBadRequest},
		{"unknown field", `{"origin":"earth","destination":"mars","items":[],"rush":true}`, http.StatusBadRequest},
		{"no items", `{"origin":"earth","destination":"mars","items":[]}`, http.StatusBadRequest},
		{"unknown node", `{"origin":"earth","destination":"pluto","items":[{"product_id":"x","quantity":1}]}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/api/orders", tt.body)
			expectStatus(t, resp, tt.want)
			var body map[string]string
			decode(t, resp, &body)
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
	if list, _ := eng.ListOrders(); len(list) != 0 {
		t.Errorf("orders persisted = %d, want 0", len(list))
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	srv, _ := testServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/orders", orderBody)
	expectStatus(t, resp, http.StatusCreated)
	var o model.Order
	decode(t, resp, &o)

	resp = do(t, http.MethodPut, srv.URL+"/api/orders/"+o.ID+"/status", `{"status":"delivered"}`)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, http.MethodPut, srv.URL+"/api/orders/"+o.ID+"/status", `{"status":"in_transit","detail":"launched"}`)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &o)
	if o.Status != model.StatusInTransit {
		t.Errorf("status = %s, want in_transit", o.Status)
	}
	last := o.CommLog[len(o.CommLog)-1]
	if last.Message != "launched" || last.SenderID != "operator" {
		t.Errorf("last log entry = %+v", last)
	}

	resp = do(t, http.MethodPut, srv.URL+"/api/orders/nope/status", `{"status":"in_transit"}`)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAgreementLifecycle(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"node_a":"earth","node_b":"luna","resource":"helium-3","rate":1.5,"volume":100,"frequency":"weekly"}`
	resp := do(t, http.MethodPost, srv.URL+"/api/agreements", body)
	expectStatus(t, resp, http.StatusCreated)
	var a model.Agreement
	decode(t, resp, &a)
	if a.ID == "" || !a.Active || a.NextDue.IsZero() {
		t.Fatalf("agreement = %+v", a)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/agreements", "")
	expectStatus(t, resp, http.StatusOK)
	var list []model.Agreement
	decode(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("agreements = %d, want 1", len(list))
	}

	resp = do(t, http.MethodDelete, srv.URL+"/api/agreements/"+a.ID, "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &a)
	if a.Active {
		t.Error("agreement still active after cancel")
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/agreements/missing", "")
	expectStatus(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodPost, srv.URL+"/api/agreements", `{"node_a":"earth","node_b":"earth","resource":"x","rate":1,"volume":1,"frequency":"daily"}`)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSummaryAndMetrics(t *testing.T) {
	srv, _ := testServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/orders", orderBody)
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, http.MethodGet, srv.URL+"/api/summary", "")
	expectStatus(t, resp, http.StatusOK)
	var sum map[string]int
	decode(t, resp, &sum)
	if sum["total_orders"] != 1 || sum["pending_messages"] != 1 || sum["active_nodes"] != 7 {
		t.Errorf("summary = %v", sum)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/summary/orders", "")
	expectStatus(t, resp, http.StatusOK)
	var byStatus map[string]int
	decode(t, resp, &byStatus)
	if byStatus["pending"] != 1 || len(byStatus) != 4 {
		t.Errorf("by status = %v", byStatus)
	}

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	expectStatus(t, resp, http.StatusOK)
	text, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"tradecore_orders_created_total", "tradecore_messages_pending 1", "tradecore_nodes_active 7"} {
		if !bytes.Contains(text, []byte(want)) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHealthAndNodeState(t *testing.T) {
	srv, _ := testServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/health", "")
	expectStatus(t, resp, http.StatusOK)
	var health map[string]any
	decode(t, resp, &health)
	if health["status"] != "ok" || health["messaging"] != false || health["redis"] != false {
		t.Errorf("health = %v", health)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/nodestate", "")
	expectStatus(t, resp, http.StatusOK)
	var states []map[string]any
	decode(t, resp, &states)
	if len(states) != 10 {
		t.Errorf("node states = %d, want 10", len(states))
	}
}

func TestAuditWithoutDatabase(t *testing.T) {
	srv, _ := testServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/audit", "")
	expectStatus(t, resp, http.StatusOK)
	var entries []store.AuditEntry
	decode(t, resp, &entries)
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestAuditWithDatabase(t *testing.T) {
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "www.db")},
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	srv, _ := serve(t, engine.Config{DB: db})

	resp := do(t, http.MethodPost, srv.URL+"/api/orders", orderBody)
	expectStatus(t, resp, http.StatusCreated)
	var o model.Order
	decode(t, resp, &o)

	resp = do(t, http.MethodGet, srv.URL+"/api/audit/order/"+o.ID, "")
	expectStatus(t, resp, http.StatusOK)
	var entries []store.AuditEntry
	decode(t, resp, &entries)
	if len(entries) != 1 || entries[0].Action != "created" {
		t.Errorf("order audit = %+v", entries)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/audit?limit=5", "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &entries)
	if len(entries) != 5 {
		t.Errorf("audit entries = %d, want 5", len(entries))
	}
}
