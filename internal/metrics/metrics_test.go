package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/voxlog/voxlog/internal/database"
	"github.com/voxlog/voxlog/internal/database/models"
)

func TestCollectorGathersStoreCounts(t *testing.T) {
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	for i, dir := range []string{"inbound", "inbound", "outbound"} {
		call := &models.Call{
			VapiCallID: "call-" + string(rune('a'+i)),
			EventType:  "end-of-call-report",
			Direction:  dir,
			RawPayload: "{}",
		}
		if _, err := db.Calls().Upsert(ctx, call); err != nil {
			t.Fatalf("call Upsert() error: %v", err)
		}
	}
	if _, err := db.Contacts().Upsert(ctx, &models.Contact{PhoneNumber: "+15550001111"}); err != nil {
		t.Fatalf("contact Upsert() error: %v", err)
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewCollector(db.Calls(), db.Contacts(), time.Now()))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	got := map[string]map[string]float64{}
	for _, fam := range families {
		byLabel := map[string]float64{}
		for _, m := range fam.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "direction" {
					label = lp.GetValue()
				}
			}
			byLabel[label] = m.GetGauge().GetValue()
		}
		got[fam.GetName()] = byLabel
	}

	if got["voxlog_calls_total"]["inbound"] != 2 {
		t.Errorf("inbound calls = %v, want 2", got["voxlog_calls_total"]["inbound"])
	}
	if got["voxlog_calls_total"]["outbound"] != 1 {
		t.Errorf("outbound calls = %v, want 1", got["voxlog_calls_total"]["outbound"])
	}
	if got["voxlog_calls_total"]["unknown"] != 0 {
		t.Errorf("unknown calls = %v, want 0", got["voxlog_calls_total"]["unknown"])
	}
	if got["voxlog_contacts_total"][""] != 1 {
		t.Errorf("contacts = %v, want 1", got["voxlog_contacts_total"][""])
	}
	if _, ok := got["voxlog_uptime_seconds"]; !ok {
		t.Error("uptime metric missing")
	}
}
