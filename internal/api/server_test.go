package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/service"
	"presale-dashboard/internal/storage/memory"
)

type fakeProvider struct {
	status    service.Status
	lastErr   error
	stats     *domain.AggregateStats
	statsErr  error
	gotWallet string
	gotForce  bool
	refreshed int
}

func (f *fakeProvider) Status() service.Status { return f.status }
func (f *fakeProvider) LastError() error       { return f.lastErr }

func (f *fakeProvider) Stats(_ context.Context, wallet string, force bool) (*domain.AggregateStats, error) {
	f.gotWallet = wallet
	f.gotForce = force
	return f.stats, f.statsErr
}

func (f *fakeProvider) Refresh(context.Context) (*domain.AggregateStats, error) {
	f.refreshed++
	return f.stats, f.statsErr
}

func newTestServer(t *testing.T, provider *fakeProvider) (*Server, *memory.ParticipantStore, *memory.SnapshotStore) {
	t.Helper()
	participants := memory.NewParticipantStore()
	snapshots := memory.NewSnapshotStore()
	s := NewServer(Options{
		Refresher:    provider,
		Participants: participants,
		Snapshots:    snapshots,
	})
	return s, participants, snapshots
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeProvider{status: service.StatusIdle})
	rec := doRequest(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestStatsPassesWalletAndForce(t *testing.T) {
	provider := &fakeProvider{
		status: service.StatusReady,
		stats:  &domain.AggregateStats{TotalSold: 42, LatestBlock: 900},
	}
	s, _, _ := newTestServer(t, provider)

	rec := doRequest(t, s, http.MethodGet, "/api/stats?wallet=0xabc&force=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d body %s", rec.Code, rec.Body.String())
	}
	if provider.gotWallet != "0xabc" || !provider.gotForce {
		t.Fatalf("provider saw wallet=%q force=%v", provider.gotWallet, provider.gotForce)
	}

	var got domain.AggregateStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalSold != 42 || got.LatestBlock != 900 {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestStatsFailureMapsToBadGateway(t *testing.T) {
	provider := &fakeProvider{statsErr: errors.New("rpc down")}
	s, _, _ := newTestServer(t, provider)

	rec := doRequest(t, s, http.MethodGet, "/api/stats")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusReportsLastError(t *testing.T) {
	provider := &fakeProvider{status: service.StatusError, lastErr: errors.New("boom")}
	s, _, _ := newTestServer(t, provider)

	rec := doRequest(t, s, http.MethodGet, "/api/status")
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != string(service.StatusError) {
		t.Fatalf("status = %q", body["status"])
	}
	if body["lastError"] != "boom" {
		t.Fatalf("lastError = %q", body["lastError"])
	}
}

func TestRefreshEndpoint(t *testing.T) {
	provider := &fakeProvider{stats: &domain.AggregateStats{}}
	s, _, _ := newTestServer(t, provider)

	rec := doRequest(t, s, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if provider.refreshed != 1 {
		t.Fatalf("refreshed = %d", provider.refreshed)
	}

	// GET is not an accepted method for refresh.
	rec = doRequest(t, s, http.MethodGet, "/api/refresh")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET refresh status = %d", rec.Code)
	}
}

func TestParticipantsPagination(t *testing.T) {
	s, store, _ := newTestServer(t, &fakeProvider{})
	records := []domain.ParticipantRecord{
		{Address: common.HexToAddress("0x01"), TotalPurchased: 300},
		{Address: common.HexToAddress("0x02"), TotalPurchased: 200},
		{Address: common.HexToAddress("0x03"), TotalPurchased: 100},
	}
	if err := store.ReplaceAll(context.Background(), records); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/participants?offset=1&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Participants []domain.ParticipantRecord `json:"participants"`
		Total        int                        `json:"total"`
		Offset       int                        `json:"offset"`
		Limit        int                        `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 3 || len(body.Participants) != 1 {
		t.Fatalf("total=%d len=%d", body.Total, len(body.Participants))
	}
	if body.Participants[0].TotalPurchased != 200 {
		t.Fatalf("wrong page entry: %+v", body.Participants[0])
	}
}

func TestParticipantsRejectsBadPaging(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeProvider{})
	rec := doRequest(t, s, http.MethodGet, "/api/participants?offset=-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestParticipantByAddress(t *testing.T) {
	s, store, _ := newTestServer(t, &fakeProvider{})
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	if err := store.ReplaceAll(context.Background(), []domain.ParticipantRecord{
		{Address: addr, TotalPurchased: 50, TierSummary: "Gold"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/participants/"+addr.Hex())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got domain.ParticipantRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TierSummary != "Gold" {
		t.Fatalf("tier = %q", got.TierSummary)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/participants/0x00000000000000000000000000000000000000bb")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing participant status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/participants/not-hex")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid address status = %d", rec.Code)
	}
}

func TestHistoryRange(t *testing.T) {
	s, _, snaps := newTestServer(t, &fakeProvider{})
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := snaps.Insert(context.Background(), &domain.Snapshot{
			TakenAt: base.Add(time.Duration(i) * time.Hour),
			Stats:   domain.AggregateStats{LatestBlock: uint64(i)},
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	start := strconv.FormatInt(base.Unix(), 10)
	end := strconv.FormatInt(base.Add(time.Hour).Unix(), 10)
	rec := doRequest(t, s, http.MethodGet, "/api/history?start="+start+"&end="+end)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}

	var got []domain.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("snapshots = %d", len(got))
	}
}
