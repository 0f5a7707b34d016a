package repository

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
	"vacation-sync/internal/models"
	"vacation-sync/pkg/dates"

	"gorm.io/gorm"
)

type testRepos struct {
	db        *gorm.DB
	vacations *GormVacationRepository
	tabs      *GormTabSummaryRepository
	audit     *GormSyncAuditRepository
	locks     *GormSyncLockRepository
	store     *GormSyncStore
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()

	db, err := Open("sqlite", filepath.Join(t.TempDir(), "test.sqlite"), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	vacations, err := NewGormVacationRepository(db)
	if err != nil {
		t.Fatalf("NewGormVacationRepository: %v", err)
	}
	tabs, err := NewGormTabSummaryRepository(db)
	if err != nil {
		t.Fatalf("NewGormTabSummaryRepository: %v", err)
	}
	audit, err := NewGormSyncAuditRepository(db)
	if err != nil {
		t.Fatalf("NewGormSyncAuditRepository: %v", err)
	}
	locks, err := NewGormSyncLockRepository(db)
	if err != nil {
		t.Fatalf("NewGormSyncLockRepository: %v", err)
	}

	return &testRepos{
		db:        db,
		vacations: vacations,
		tabs:      tabs,
		audit:     audit,
		locks:     locks,
		store:     NewGormSyncStore(db, vacations, tabs),
	}
}

func record(name string, departure, ret time.Time, manager string, accesses map[string]models.AccessState) models.VacationRecord {
	rec := models.VacationRecord{
		Name:          name,
		DepartureDate: departure,
		ReturnDate:    ret,
		Manager:       manager,
		SourceTab:     "DEZEMBRO 2025",
		ReportMonth:   12,
		ReportYear:    2025,
	}
	for _, system := range []string{"AD PRIN", "VPN", "Gmail"} {
		if state, ok := accesses[system]; ok {
			rec.Accesses = append(rec.Accesses, models.AccessStatus{SystemName: system, Status: state})
		}
	}
	return rec
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	r := newTestRepos(t)
	dep := dates.Day(2025, time.December, 20)
	ret := dates.Day(2026, time.January, 5)

	first := record("Ana Souza", dep, ret, "Carlos", map[string]models.AccessState{
		"AD PRIN": models.AccessBlocked,
		"VPN":     models.AccessBlocked,
		"Gmail":   models.AccessPending,
	})
	n, err := r.vacations.Upsert([]models.VacationRecord{first})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if n != 1 {
		t.Errorf("first Upsert count = %d, want 1", n)
	}

	before, err := r.vacations.GetByKey("Ana Souza", dep)
	if err != nil || before == nil {
		t.Fatalf("GetByKey: %v, %v", before, err)
	}

	second := record("Ana Souza", dep, ret, "Beatriz", map[string]models.AccessState{
		"AD PRIN": models.AccessReleased,
		"VPN":     models.AccessReleased,
	})
	n, err = r.vacations.Upsert([]models.VacationRecord{second})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if n != 1 {
		t.Errorf("second Upsert count = %d, want 1", n)
	}

	count, err := r.vacations.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("vacation_records = %d, want 1", count)
	}

	after, err := r.vacations.GetByKey("Ana Souza", dep)
	if err != nil || after == nil {
		t.Fatalf("GetByKey after update: %v, %v", after, err)
	}
	if after.ID != before.ID {
		t.Errorf("record id changed from %d to %d", before.ID, after.ID)
	}
	if after.Manager != "Beatriz" {
		t.Errorf("Manager = %q, want Beatriz", after.Manager)
	}
	if len(after.Accesses) != 2 {
		t.Errorf("access rows = %d, want 2", len(after.Accesses))
	}
	for _, a := range after.Accesses {
		if a.Status != models.AccessReleased {
			t.Errorf("%s = %s, want RELEASED", a.SystemName, a.Status)
		}
	}

	var orphans int64
	r.db.Model(&models.AccessStatus{}).Where("vacation_record_id <> ?", after.ID).Count(&orphans)
	if orphans != 0 {
		t.Errorf("found %d orphan access rows", orphans)
	}
}

func TestUpsert_SameKeyTwiceInOneBatch(t *testing.T) {
	r := newTestRepos(t)
	dep := dates.Day(2026, time.January, 10)
	ret := dates.Day(2026, time.January, 30)

	n, err := r.vacations.Upsert([]models.VacationRecord{
		record("Joao", dep, ret, "A", nil),
		record("Joao", dep, ret, "B", nil),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 (one insert, one update)", n)
	}

	count, _ := r.vacations.Count()
	if count != 1 {
		t.Errorf("vacation_records = %d, want 1", count)
	}
}

func TestReplaceAll_ClearsAndAppends(t *testing.T) {
	r := newTestRepos(t)
	dep := dates.Day(2025, time.December, 1)
	ret := dates.Day(2025, time.December, 20)

	if _, err := r.store.ReplaceAll(
		[]models.VacationRecord{record("Old", dep, ret, "", nil)},
		[]models.TabSummary{{TabName: "NOVEMBRO 2025", ReportMonth: 11, ReportYear: 2025, EmployeeCount: 1}},
	); err != nil {
		t.Fatalf("first ReplaceAll: %v", err)
	}
	if err := r.audit.Record(&models.SyncAuditEntry{Status: models.SyncSuccess, RecordsSynced: 1}); err != nil {
		t.Fatal(err)
	}

	n, err := r.store.ReplaceAll(
		[]models.VacationRecord{
			record("New 1", dep, ret, "", map[string]models.AccessState{"VPN": models.AccessBlocked}),
			record("New 2", dep, ret, "", nil),
		},
		[]models.TabSummary{
			{TabName: "DEZEMBRO 2025", ReportMonth: 12, ReportYear: 2025, EmployeeCount: 2},
			{TabName: "JANEIRO 2026", ReportMonth: 1, ReportYear: 2026, EmployeeCount: 0},
		},
	)
	if err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}
	if n != 2 {
		t.Errorf("ReplaceAll count = %d, want 2", n)
	}

	if old, _ := r.vacations.GetByKey("Old", dep); old != nil {
		t.Error("record from previous sync survived the reset")
	}
	tabs, err := r.tabs.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(tabs) != 2 {
		t.Errorf("tab_summaries = %d, want 2", len(tabs))
	}
	entries, _ := r.audit.List(0)
	if len(entries) != 1 {
		t.Errorf("sync_audit = %d, want 1 (reset must keep history)", len(entries))
	}
}

func TestReplaceAll_RollsBackOnFailure(t *testing.T) {
	r := newTestRepos(t)
	dep := dates.Day(2025, time.December, 1)
	ret := dates.Day(2025, time.December, 20)

	if _, err := r.store.ReplaceAll([]models.VacationRecord{record("Kept", dep, ret, "", nil)}, nil); err != nil {
		t.Fatalf("seed ReplaceAll: %v", err)
	}

	broken := record("Broken", dep, ret, "", nil)
	broken.Accesses = []models.AccessStatus{
		{SystemName: "VPN", Status: models.AccessBlocked},
		{SystemName: "VPN", Status: models.AccessReleased},
	}
	if _, err := r.store.ReplaceAll([]models.VacationRecord{broken}, nil); err == nil {
		t.Fatal("expected ReplaceAll to fail on duplicate system rows")
	}

	kept, err := r.vacations.GetByKey("Kept", dep)
	if err != nil {
		t.Fatal(err)
	}
	if kept == nil {
		t.Error("previous dataset was not preserved after a failed sync")
	}
	if b, _ := r.vacations.GetByKey("Broken", dep); b != nil {
		t.Error("partial write from the failed sync is visible")
	}
}

func TestAccessStatus_ForeignKey(t *testing.T) {
	r := newTestRepos(t)
	dep := dates.Day(2025, time.December, 1)
	ret := dates.Day(2025, time.December, 20)

	orphan := models.AccessStatus{VacationRecordID: 999, SystemName: "VPN", Status: models.AccessPending}
	if err := r.db.Create(&orphan).Error; err == nil {
		t.Error("access status without a vacation record was accepted")
	}

	if _, err := r.vacations.Upsert([]models.VacationRecord{
		record("Cascade", dep, ret, "", map[string]models.AccessState{"VPN": models.AccessBlocked}),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := r.db.Exec("DELETE FROM vacation_records").Error; err != nil {
		t.Fatalf("delete records: %v", err)
	}

	var left int64
	if err := r.db.Model(&models.AccessStatus{}).Count(&left).Error; err != nil {
		t.Fatal(err)
	}
	if left != 0 {
		t.Errorf("access_statuses = %d after deleting their records, want 0", left)
	}
}

func TestVacationQueries(t *testing.T) {
	r := newTestRepos(t)
	today := dates.Day(2026, time.January, 15)

	_, err := r.vacations.Upsert([]models.VacationRecord{
		record("Leaving", today, dates.Day(2026, time.February, 3), "", map[string]models.AccessState{"VPN": models.AccessBlocked}),
		record("Away", dates.Day(2026, time.January, 5), dates.Day(2026, time.January, 16), "", map[string]models.AccessState{"VPN": models.AccessPending}),
		record("Soon", dates.Day(2026, time.January, 18), dates.Day(2026, time.January, 28), "", nil),
		record("Past", dates.Day(2025, time.December, 1), dates.Day(2025, time.December, 10), "", nil),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	departing, err := r.vacations.DepartingOn(today)
	if err != nil || len(departing) != 1 || departing[0].Name != "Leaving" {
		t.Errorf("DepartingOn = %v, %v", departing, err)
	}

	away, err := r.vacations.OnVacation(today)
	if err != nil || len(away) != 2 {
		t.Errorf("OnVacation = %d records, %v; want 2", len(away), err)
	}

	returning, err := r.vacations.ReturningOn(dates.Day(2026, time.January, 16), dates.Day(2026, time.January, 17))
	if err != nil || len(returning) != 1 || returning[0].Name != "Away" {
		t.Errorf("ReturningOn = %v, %v", returning, err)
	}

	soon, err := r.vacations.DepartingBetween(today, today.AddDate(0, 0, 7))
	if err != nil || len(soon) != 1 || soon[0].Name != "Soon" {
		t.Errorf("DepartingBetween = %v, %v", soon, err)
	}

	pending, err := r.vacations.PendingOnVacation(today)
	if err != nil || len(pending) != 1 || pending[0].Name != "Away" {
		t.Errorf("PendingOnVacation = %v, %v", pending, err)
	}

	summary, err := r.vacations.AccessSummary()
	if err != nil {
		t.Fatal(err)
	}
	if summary["VPN"][models.AccessBlocked] != 1 || summary["VPN"][models.AccessPending] != 1 {
		t.Errorf("AccessSummary = %v", summary)
	}
}

func TestSyncAudit(t *testing.T) {
	r := newTestRepos(t)

	last, err := r.audit.Last()
	if err != nil || last != nil {
		t.Fatalf("Last on empty table = %v, %v", last, err)
	}

	old := &models.SyncAuditEntry{Status: models.SyncSuccess, Timestamp: time.Now().AddDate(0, 0, -100)}
	recent := &models.SyncAuditEntry{Status: models.SyncSkipped, Message: "unchanged", TabCounts: map[string]interface{}{"DEZEMBRO 2025": 3}}
	for _, e := range []*models.SyncAuditEntry{old, recent} {
		if err := r.audit.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	last, err = r.audit.Last()
	if err != nil || last == nil || last.Status != models.SyncSkipped {
		t.Fatalf("Last = %+v, %v", last, err)
	}

	purged, err := r.audit.PurgeOlderThan(time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
}

func TestSyncLock(t *testing.T) {
	r := newTestRepos(t)
	now := time.Now()

	ok, err := r.locks.TryAcquire("a", time.Minute, now)
	if err != nil || !ok {
		t.Fatalf("first TryAcquire = %v, %v", ok, err)
	}

	ok, err = r.locks.TryAcquire("b", time.Minute, now.Add(time.Second))
	if err != nil || ok {
		t.Fatalf("TryAcquire while held = %v, %v", ok, err)
	}

	// b takes over once a's lease expires
	ok, err = r.locks.TryAcquire("b", time.Minute, now.Add(2*time.Minute))
	if err != nil || !ok {
		t.Fatalf("TryAcquire after expiry = %v, %v", ok, err)
	}

	// a no longer owns it, so its release is a no-op
	if err := r.locks.Release("a"); err != nil {
		t.Fatal(err)
	}
	lock, err := r.locks.Current()
	if err != nil {
		t.Fatal(err)
	}
	if lock.Holder != "b" {
		t.Errorf("Holder = %q, want b", lock.Holder)
	}

	if err := r.locks.Release("b"); err != nil {
		t.Fatal(err)
	}
	ok, err = r.locks.TryAcquire("c", time.Minute, now.Add(3*time.Minute))
	if err != nil || !ok {
		t.Fatalf("TryAcquire after release = %v, %v", ok, err)
	}
}

func TestSyncLock_OneWinner(t *testing.T) {
	r := newTestRepos(t)
	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for _, holder := range []string{"h1", "h2", "h3", "h4"} {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			ok, err := r.locks.TryAcquire(h, time.Minute, now)
			if err != nil {
				t.Errorf("TryAcquire(%s): %v", h, err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(holder)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}
