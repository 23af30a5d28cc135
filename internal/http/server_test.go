package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kharcha/internal/cache"
	"kharcha/internal/category"
	"kharcha/internal/emi"
	"kharcha/internal/services"
	"kharcha/internal/store/memory"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	repo := memory.New(category.Defaults())
	clock := services.Clock{Now: func() time.Time { return testNow }, Location: time.UTC}

	ledger := services.NewLedgerService(repo, nil, services.NewSnapshotCache(8, time.Minute), clock, nil)
	svc := Services{
		Ledger:     ledger,
		Categories: services.NewCategoryService(repo, nil, ledger.Invalidate, nil),
		EMIs:       services.NewEMIService(repo, nil, cache.NewLRUCache[[]emi.Installment](8, time.Minute), clock, nil),
		Budget:     services.NewBudgetService(repo, nil, clock, nil),
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return NewServer(":0", svc, opts)
}

func do(t *testing.T, srv *Server, method, target, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.RemoteAddr = "192.0.2.10:1234"
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

const jsonType = "application/json"

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{Ready: func(context.Context) error { return nil }})
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	failing := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("disk gone") }})
	rr := do(t, failing, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
	var body struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	decode(t, rr, &body)
	if body.Status != "not_ready" || !strings.Contains(body.Checks["storage"].(string), "disk gone") {
		t.Fatalf("unexpected readiness body %+v", body)
	}
}

func TestResponsesCarrySecurityHeadersAndRequestID(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/healthz", "", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}
}

func TestTransactionsAPI(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Weekly shop","category":"Groceries","type":"expense","scope":"family","amount":"1200,50","date":"2024-03-14"}`, jsonType)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	var created struct {
		ID     string `json:"id"`
		Amount string `json:"amount"`
	}
	decode(t, rr, &created)
	if created.ID == "" || rr.Header().Get("Location") != "/api/transactions/"+created.ID {
		t.Fatalf("unexpected create response %+v location=%q", created, rr.Header().Get("Location"))
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		"description=Salary&category=Salary&type=income&scope=personal&amount=50000&date=2024-03-01",
		"application/x-www-form-urlencoded")
	if rr.Code != http.StatusCreated {
		t.Fatalf("form create status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions?scope=family&range=thismonth", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rr.Code, rr.Body)
	}
	var view struct {
		Count         int                       `json:"count"`
		ActiveFilters int                       `json:"active_filters"`
		Days          []struct{ Label string }  `json:"days"`
		Descriptors   map[string]map[string]any `json:"descriptors"`
	}
	decode(t, rr, &view)
	if view.Count != 1 || view.ActiveFilters != 1 || len(view.Days) != 1 || view.Days[0].Label != "Yesterday" {
		t.Fatalf("unexpected view %+v", view)
	}
	if _, ok := view.Descriptors["expense:Groceries"]; !ok {
		t.Fatalf("missing descriptor, got %v", view.Descriptors)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/categories", "", "")
	var options []map[string]string
	decode(t, rr, &options)
	if len(options) != 2 {
		t.Fatalf("category options = %v", options)
	}

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+created.ID,
		`{"description":"Weekly shop","category":"Groceries","type":"expense","scope":"personal","amount":99,"date":"2024-03-14"}`, jsonType)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestTransactionsAPIErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantFields []string
	}{
		{
			name:       "every invalid field reported",
			method:     http.MethodPost,
			target:     "/api/transactions",
			body:       `{"description":"","category":"","type":"gift","scope":"team","amount":"abc","date":"2024-03-14"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"description", "category", "type", "scope", "amount"},
		},
		{
			name:       "bad date",
			method:     http.MethodPost,
			target:     "/api/transactions",
			body:       `{"description":"x","category":"Groceries","type":"expense","scope":"family","amount":"1","date":"14/03/2024"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"date"},
		},
		{
			name:       "malformed json",
			method:     http.MethodPost,
			target:     "/api/transactions",
			body:       `{"description":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed custom range bound",
			method:     http.MethodGet,
			target:     "/api/transactions?range=custom&start=2024-13-45",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown id",
			method:     http.MethodPut,
			target:     "/api/transactions/nope",
			body:       `{"description":"x","category":"Groceries","type":"expense","scope":"family","amount":"1","date":"2024-03-14"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			target:     "/api/nothing",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body, jsonType)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.wantStatus, rr.Body)
			}
			if len(tt.wantFields) == 0 {
				return
			}
			var body ErrorBody
			decode(t, rr, &body)
			for _, f := range tt.wantFields {
				if body.Errors[f] == "" {
					t.Errorf("missing error for %q in %v", f, body.Errors)
				}
			}
		})
	}
}

func TestCategoriesAPI(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/categories?type=expense&scope=family", "", "")
	var listing struct {
		Defaults []map[string]any `json:"defaults"`
		User     []map[string]any `json:"user"`
		Count    int              `json:"count"`
	}
	decode(t, rr, &listing)
	if rr.Code != http.StatusOK || listing.Count != 6 || len(listing.User) != 0 {
		t.Fatalf("unexpected listing status=%d %+v", rr.Code, listing)
	}

	rr = do(t, srv, http.MethodGet, "/api/categories?type=bogus", "", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad type status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/categories",
		"name=Pets&type=expense&scopes=family,personal&color=%23AAAAAA&icon=Dog", "application/x-www-form-urlencoded")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	var created struct {
		ID     string   `json:"id"`
		Scopes []string `json:"scopes"`
	}
	decode(t, rr, &created)
	if len(created.Scopes) != 2 {
		t.Fatalf("scopes = %v", created.Scopes)
	}

	rr = do(t, srv, http.MethodPost, "/api/categories",
		`{"name":"pets","type":"expense","scopes":["family"]}`, jsonType)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/categories/"+created.ID,
		`{"name":"Pet care","type":"expense","scopes":["personal"],"color":"#AAAAAA","icon":"Dog"}`, jsonType)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		rr = do(t, srv, method, "/api/categories/default-groceries",
			`{"name":"Food","type":"expense","scopes":["family"]}`, jsonType)
		if rr.Code != http.StatusConflict {
			t.Fatalf("%s default status=%d, want 409", method, rr.Code)
		}
	}

	rr = do(t, srv, http.MethodDelete, "/api/categories/"+created.ID, "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestEMIsAPI(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/emis/quote",
		`{"principal":100000,"interest_rate":"10","tenure":12,"start_date":"2024-01-31"}`, jsonType)
	if rr.Code != http.StatusOK {
		t.Fatalf("quote status=%d body=%s", rr.Code, rr.Body)
	}
	var quote struct {
		Monthly string `json:"monthly_amount"`
		NextDue string `json:"next_due_date"`
	}
	decode(t, rr, &quote)
	if quote.Monthly != "8791.59" || quote.NextDue != "2024-02-29" {
		t.Fatalf("unexpected quote %+v", quote)
	}

	rr = do(t, srv, http.MethodPost, "/api/emis/quote", `{"interest_rate":"0","tenure":"1.5"}`, jsonType)
	var bad ErrorBody
	decode(t, rr, &bad)
	if rr.Code != http.StatusUnprocessableEntity || bad.Errors["principal"] == "" || bad.Errors["interest_rate"] == "" || bad.Errors["tenure"] == "" {
		t.Fatalf("quote errors status=%d %v", rr.Code, bad.Errors)
	}

	rr = do(t, srv, http.MethodPost, "/api/emis",
		`{"name":"Forever","principal":"100000","interest_rate":"10","tenure":2000000000}`, jsonType)
	bad = ErrorBody{}
	decode(t, rr, &bad)
	if rr.Code != http.StatusUnprocessableEntity || bad.Errors["tenure"] == "" {
		t.Fatalf("oversized tenure status=%d %v", rr.Code, bad.Errors)
	}

	rr = do(t, srv, http.MethodPost, "/api/emis",
		`{"name":"Car loan","principal":"100000","interest_rate":"10","tenure":"12","start_date":"2024-02-15"}`, jsonType)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	var loan struct {
		ID      string `json:"id"`
		NextDue string `json:"next_due_date"`
		Status  string `json:"status"`
	}
	decode(t, rr, &loan)
	if loan.NextDue != "2024-03-15" || loan.Status != "active" {
		t.Fatalf("unexpected emi %+v", loan)
	}

	rr = do(t, srv, http.MethodGet, "/api/emis/due", "", "")
	var due []map[string]any
	decode(t, rr, &due)
	if len(due) != 1 {
		t.Fatalf("due = %v", due)
	}

	rr = do(t, srv, http.MethodGet, "/api/emis/"+loan.ID+"/schedule", "", "")
	var schedule struct {
		Installments []map[string]any `json:"installments"`
	}
	decode(t, rr, &schedule)
	if rr.Code != http.StatusOK || len(schedule.Installments) != 12 {
		t.Fatalf("schedule status=%d rows=%d", rr.Code, len(schedule.Installments))
	}

	rr = do(t, srv, http.MethodPost, "/api/emis/"+loan.ID+"/payments", "amount=8791.59", "application/x-www-form-urlencoded")
	if rr.Code != http.StatusOK {
		t.Fatalf("payment status=%d body=%s", rr.Code, rr.Body)
	}
	decode(t, rr, &loan)
	if loan.NextDue != "2024-04-15" {
		t.Fatalf("next due after payment = %s", loan.NextDue)
	}

	rr = do(t, srv, http.MethodPost, "/api/emis/"+loan.ID+"/payments", `{"amount":"-5"}`, jsonType)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad payment status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/emis/"+loan.ID,
		`{"name":"Car loan","principal":"120000","interest_rate":"9","tenure":"12","start_date":"2024-02-15"}`, jsonType)
	if rr.Code != http.StatusOK {
		t.Fatalf("revise status=%d body=%s", rr.Code, rr.Body)
	}

	for _, target := range []string{"/api/emis/nope", "/api/emis/nope/schedule"} {
		if rr := do(t, srv, http.MethodGet, target, "", ""); rr.Code != http.StatusNotFound {
			t.Fatalf("%s status=%d, want 404", target, rr.Code)
		}
	}
}

func TestBudgetAPI(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPut, "/api/budget",
		`{"monthly":"10000","categories":[{"name":"Groceries","budget":"8000"},{"name":"Utilities","budget":"5000"}]}`, jsonType)
	var body ErrorBody
	decode(t, rr, &body)
	if rr.Code != http.StatusUnprocessableEntity || body.Errors["categories"] == "" {
		t.Fatalf("exceeded status=%d body=%+v", rr.Code, body)
	}

	rr = do(t, srv, http.MethodPut, "/api/budget",
		`{"monthly":50000,"categories":[{"name":" Groceries ","budget":15000,"color":"#10B981"}]}`, jsonType)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body)
	}

	do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Veg","category":"Groceries","type":"expense","scope":"family","amount":"300","date":"2024-03-10"}`, jsonType)

	rr = do(t, srv, http.MethodGet, "/api/budget", "", "")
	var view struct {
		Remaining  string `json:"remaining"`
		Spent      string `json:"spent"`
		Categories []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Spent string `json:"spent"`
		} `json:"categories"`
	}
	decode(t, rr, &view)
	if view.Remaining != "35000" || len(view.Categories) != 1 || view.Categories[0].Name != "Groceries" || view.Categories[0].ID == "" {
		t.Fatalf("unexpected budget %+v", view)
	}
	if view.Categories[0].Spent != "300" || view.Spent != "300" {
		t.Fatalf("spent = %s / %s, want 300", view.Categories[0].Spent, view.Spent)
	}
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitRPM: 6})

	if rr := do(t, srv, http.MethodGet, "/api/emis", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodGet, "/api/emis", "", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	var body ErrorBody
	decode(t, rr, &body)
	if body.Error == "" {
		t.Error("missing error message")
	}

	for i := 0; i < 3; i++ {
		if rr := do(t, srv, http.MethodGet, "/healthz", "", ""); rr.Code != http.StatusOK {
			t.Fatalf("healthz status=%d", rr.Code)
		}
	}
}
