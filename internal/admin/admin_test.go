package admin

import (
	"net/http"

	"testing"

	"github.com/banshee-data/telemetry-bridge/internal/testutil"
)

type fakeStats struct{ n int }

func (f fakeStats) StatsSnapshot() any { return map[string]int{"messages_ingested": f.n} }

func TestAttachRoutesServesStats(t *testing.T) {
	mux := http.NewServeMux()
	if err := AttachRoutes(mux, fakeStats{n: 7}, nil); err != nil {
		testutil.AssertNoError(t, err)
	}

	req := testutil.NewTestRequest(http.MethodGet, "/debug/bridge-stats")
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if want := `{"messages_ingested":7}`; rec.Body.String() != want+"\n" {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestAttachRoutesWithoutSpillDB(t *testing.T) {
	mux := http.NewServeMux()
	err := AttachRoutes(mux, fakeStats{}, nil)
	testutil.AssertNoError(t, err)
}
