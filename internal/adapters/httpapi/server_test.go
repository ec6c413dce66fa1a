package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/rs/zerolog"
)

type fakeReports struct {
	last service.ReportQuery
	err  error
}

func (f *fakeReports) Report(_ context.Context, q service.ReportQuery) (service.Report, error) {
	f.last = q
	if f.err != nil {
		return service.Report{}, f.err
	}
	return service.Report{GuildID: q.GuildID, Date: q.Date, FeeModel: domain.FeePercentage, GuildWide: q.UserID == ""}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func do(t *testing.T, h http.Handler, path, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ok := New(&fakeReports{}, fakePinger{}, "", zerolog.Nop()).Handler()
	if w := do(t, ok, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}

	down := New(&fakeReports{}, fakePinger{err: errors.New("refused")}, "", zerolog.Nop()).Handler()
	if w := do(t, down, "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz with db down = %d, want 503", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(&fakeReports{}, nil, "", zerolog.Nop()).Handler()
	if w := do(t, h, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("metrics = %d, want 200", w.Code)
	}
}

func TestReportDisabledWithoutSecret(t *testing.T) {
	h := New(&fakeReports{}, nil, "", zerolog.Nop()).Handler()
	if w := do(t, h, "/api/guilds/g1/reports/2025-03-10", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestReportAuth(t *testing.T) {
	h := New(&fakeReports{}, nil, "s3cret", zerolog.Nop()).Handler()
	for _, secret := range []string{"", "wrong", "s3cret-but-longer"} {
		if w := do(t, h, "/api/guilds/g1/reports/2025-03-10", secret); w.Code != http.StatusUnauthorized {
			t.Errorf("secret %q: status = %d, want 401", secret, w.Code)
		}
	}
}

func TestReportQuery(t *testing.T) {
	src := &fakeReports{}
	h := New(src, nil, "s3cret", zerolog.Nop()).Handler()

	w := do(t, h, "/api/guilds/g1/reports/2025-03-10?users=u1,%20u2,,", "s3cret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	want := service.ReportQuery{GuildID: "g1", Date: "2025-03-10", Admin: true, UserIDs: []string{"u1", "u2"}}
	if !reflect.DeepEqual(src.last, want) {
		t.Errorf("query = %+v, want %+v", src.last, want)
	}

	var rep service.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.GuildWide || rep.Date != "2025-03-10" {
		t.Errorf("report = %+v", rep)
	}

	do(t, h, "/api/guilds/g1/reports/2025-03-10?user=u7", "s3cret")
	if src.last.UserID != "u7" || src.last.UserIDs != nil {
		t.Errorf("query = %+v, want user u7 and no list", src.last)
	}
}

func TestReportErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNoRecords, http.StatusNotFound},
		{fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrMalformedInput, "x"), http.StatusBadRequest},
		{errors.New("db gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := New(&fakeReports{err: tt.err}, nil, "s3cret", zerolog.Nop()).Handler()
		w := do(t, h, "/api/guilds/g1/reports/x", "s3cret")
		if w.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("%v: body = %s", tt.err, w.Body.String())
		}
	}
}
