package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hivewatch/alerts/internal/models"
)

func setupTestDB(t *testing.T) (*SQLStorage, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewSQLiteStorage(dbPath, nil)
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
	}

	return store, cleanup
}

func TestSQLiteStorage_OpenClose(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if store.db == nil {
		t.Fatal("database should be open")
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tables := []string{"alerts", "alert_channel_config", "alert_delivery_log", "alert_rules", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}

	// Second run is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("re-run migrations: %v", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	if _, err := New("oracle", "dsn", nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	s, err := New("postgres", "postgres://localhost/alerts", nil)
	if err != nil {
		t.Fatalf("New(postgres): %v", err)
	}
	if s.Driver() != "pgx" {
		t.Errorf("driver = %q, want pgx", s.Driver())
	}
}

func TestAlertRepository_CreateGetMarkDelivered(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	value := 39.5
	ruleID := int64(7)
	alert := models.NewAlert(42, "Temperature too high")
	alert.HiveID = "hive-1"
	alert.MetricType = "temperature"
	alert.MetricValue = &value
	alert.RuleID = &ruleID

	id, err := store.Alerts().Create(ctx, alert)
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	if id == 0 || alert.ID != id {
		t.Fatalf("id = %d, alert.ID = %d", id, alert.ID)
	}

	got, err := store.Alerts().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got == nil {
		t.Fatal("alert should exist")
	}
	if got.Text != alert.Text || got.UserID != 42 || got.HiveID != "hive-1" {
		t.Errorf("got %+v", got)
	}
	if got.MetricValue == nil || *got.MetricValue != value {
		t.Errorf("metric value = %v, want %v", got.MetricValue, value)
	}
	if got.RuleID == nil || *got.RuleID != ruleID {
		t.Errorf("rule id = %v, want %v", got.RuleID, ruleID)
	}
	if got.Delivered || got.DeliveryAttempts != 0 {
		t.Errorf("new alert should be undelivered with 0 attempts, got %v/%d", got.Delivered, got.DeliveryAttempts)
	}

	for i := 0; i < 2; i++ {
		if err := store.Alerts().MarkDelivered(ctx, id); err != nil {
			t.Fatalf("mark delivered: %v", err)
		}
	}
	got, _ = store.Alerts().GetByID(ctx, id)
	if !got.Delivered {
		t.Error("alert should be delivered")
	}
	if got.DeliveryAttempts != 2 {
		t.Errorf("delivery attempts = %d, want 2", got.DeliveryAttempts)
	}

	// Missing alert
	missing, err := store.Alerts().GetByID(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing alert: %v", err)
	}
	if missing != nil {
		t.Error("missing alert should be nil")
	}
	if err := store.Alerts().MarkDelivered(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("mark missing delivered: err = %v, want ErrNotFound", err)
	}
}

func TestAlertRepository_ListByUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second"} {
		a := models.NewAlert(1, text)
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("create alert: %v", err)
		}
	}
	if _, err := store.Alerts().Create(ctx, models.NewAlert(2, "other user")); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	alerts, err := store.Alerts().ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("len = %d, want 2", len(alerts))
	}
	if alerts[0].Text != "second" {
		t.Errorf("newest first: got %q", alerts[0].Text)
	}
}

func TestChannelRepository_UpsertGetDelete(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	pref := &models.ChannelPreference{
		UserID:    5,
		Kind:      models.ChannelEmail,
		Email:     "keeper@example.com",
		TimeStart: "09:00",
		TimeEnd:   "17:00",
		Enabled:   true,
	}
	stored, err := store.Channels().Upsert(ctx, pref)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stored.ID == 0 || stored.Email != "keeper@example.com" || stored.TimeStart != "09:00" {
		t.Errorf("stored = %+v", stored)
	}

	// Second upsert replaces the row in place.
	pref.Email = "new@example.com"
	pref.TimeStart = ""
	pref.TimeEnd = ""
	pref.Enabled = false
	updated, err := store.Channels().Upsert(ctx, pref)
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if updated.ID != stored.ID {
		t.Errorf("id changed: %d -> %d", stored.ID, updated.ID)
	}
	if updated.Email != "new@example.com" || updated.Enabled {
		t.Errorf("updated = %+v", updated)
	}
	if updated.TimeStart != models.DefaultTimeStart || updated.TimeEnd != models.DefaultTimeEnd {
		t.Errorf("window = %s-%s, want defaults", updated.TimeStart, updated.TimeEnd)
	}

	prefs, err := store.Channels().List(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("len = %d, want 1", len(prefs))
	}

	none, err := store.Channels().Get(ctx, 5, models.ChannelSMS)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if none != nil {
		t.Error("missing preference should be nil")
	}

	deleted, err := store.Channels().Delete(ctx, 5, models.ChannelEmail)
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	deleted, err = store.Channels().Delete(ctx, 5, models.ChannelEmail)
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}
}

func TestChannelRepository_TelegramChatID(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Channels().Upsert(ctx, &models.ChannelPreference{
		UserID:           9,
		Kind:             models.ChannelTelegram,
		TelegramUsername: "@Tot_Ra",
		Enabled:          true,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _ := store.Channels().Get(ctx, 9, models.ChannelTelegram)
	if got.TelegramUsername != "@Tot_Ra" {
		t.Errorf("username = %q, want @Tot_Ra", got.TelegramUsername)
	}
	if got.TelegramChatID != nil {
		t.Error("chat id should be unset")
	}

	n, err := store.Channels().SetTelegramChatID(ctx, "tot_ra", 374550738)
	if err != nil {
		t.Fatalf("set chat id: %v", err)
	}
	if n != 1 {
		t.Fatalf("updated rows = %d, want 1", n)
	}

	got, _ = store.Channels().Get(ctx, 9, models.ChannelTelegram)
	if got.TelegramChatID == nil || *got.TelegramChatID != 374550738 {
		t.Fatalf("chat id = %v", got.TelegramChatID)
	}

	// Re-saving the preference without a chat id keeps the learned one.
	_, err = store.Channels().Upsert(ctx, &models.ChannelPreference{
		UserID:           9,
		Kind:             models.ChannelTelegram,
		TelegramUsername: "tot_ra",
		TimeStart:        "08:00",
		TimeEnd:          "20:00",
		Enabled:          true,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = store.Channels().Get(ctx, 9, models.ChannelTelegram)
	if got.TelegramChatID == nil || *got.TelegramChatID != 374550738 {
		t.Errorf("chat id lost on upsert: %v", got.TelegramChatID)
	}

	n, _ = store.Channels().SetTelegramChatID(ctx, "nobody", 1)
	if n != 0 {
		t.Errorf("unknown username updated %d rows", n)
	}
}

func TestDeliveryRepository_LogAndUpdate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sent := models.NewSentEntry(1, 5, models.ChannelEmail, "msg-1")
	if err := store.Deliveries().LogAttempt(ctx, sent); err != nil {
		t.Fatalf("log sent: %v", err)
	}
	failed := models.NewFailedEntry(1, 5, models.ChannelSMS, "No phone number configured")
	if err := store.Deliveries().LogAttempt(ctx, failed); err != nil {
		t.Fatalf("log failed: %v", err)
	}

	entries, err := store.Deliveries().ListByAlert(ctx, 1)
	if err != nil {
		t.Fatalf("list by alert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Kind != models.ChannelEmail || entries[0].Status != models.DeliverySent {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].DeliveryTime == nil || entries[0].ExternalMessageID != "msg-1" {
		t.Errorf("sent entry should carry delivery time and external id: %+v", entries[0])
	}
	if entries[1].DeliveryTime != nil || entries[1].ErrorMessage != "No phone number configured" {
		t.Errorf("failed entry = %+v", entries[1])
	}

	// Duplicate (alert, channel) is rejected.
	if err := store.Deliveries().LogAttempt(ctx, models.NewFailedEntry(1, 5, models.ChannelSMS, "again")); err == nil {
		t.Error("duplicate delivery entry should fail")
	}

	// A failed retry still counts.
	if err := store.Deliveries().UpdateStatus(ctx, 1, models.ChannelSMS, models.DeliveryFailed, "provider down", ""); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := store.Deliveries().UpdateStatus(ctx, 1, models.ChannelSMS, models.DeliverySent, "", "SM123"); err != nil {
		t.Fatalf("update sent: %v", err)
	}

	entries, _ = store.Deliveries().ListByAlert(ctx, 1)
	sms := entries[1]
	if sms.Status != models.DeliverySent || sms.RetryCount != 2 {
		t.Errorf("sms entry = %+v, want sent with retry_count 2", sms)
	}
	if sms.ErrorMessage != "" || sms.ExternalMessageID != "SM123" || sms.DeliveryTime == nil {
		t.Errorf("sms entry after success = %+v", sms)
	}

	// A later failure replaces the external id from the earlier send.
	if err := store.Deliveries().UpdateStatus(ctx, 1, models.ChannelSMS, models.DeliveryFailed, "carrier rejected", ""); err != nil {
		t.Fatalf("update failed again: %v", err)
	}
	entries, _ = store.Deliveries().ListByAlert(ctx, 1)
	sms = entries[1]
	if sms.Status != models.DeliveryFailed || sms.RetryCount != 3 {
		t.Errorf("sms entry = %+v, want failed with retry_count 3", sms)
	}
	if sms.ExternalMessageID != "" || sms.DeliveryTime != nil || sms.ErrorMessage != "carrier rejected" {
		t.Errorf("sms entry after failure = %+v", sms)
	}

	err = store.Deliveries().UpdateStatus(ctx, 99, models.ChannelSMS, models.DeliverySent, "", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing entry: err = %v, want ErrNotFound", err)
	}
}

func TestDeliveryRepository_ListFailed(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := models.NewFailedEntry(int64(i+1), 5, models.ChannelEmail, "boom")
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.Deliveries().LogAttempt(ctx, e); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	sent := models.NewSentEntry(10, 5, models.ChannelEmail, "ok")
	if err := store.Deliveries().LogAttempt(ctx, sent); err != nil {
		t.Fatalf("log: %v", err)
	}

	// Exhaust alert 1.
	for i := 0; i < 3; i++ {
		if err := store.Deliveries().UpdateStatus(ctx, 1, models.ChannelEmail, models.DeliveryFailed, "boom", ""); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	failed, err := store.Deliveries().ListFailed(ctx, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("len = %d, want 2", len(failed))
	}
	if failed[0].AlertID != 3 || failed[1].AlertID != 2 {
		t.Errorf("order = %d,%d, want newest first 3,2", failed[0].AlertID, failed[1].AlertID)
	}
}

func TestDeliveryRepository_ListFailedBatchLimit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < FailedDeliveryBatchSize+5; i++ {
		if err := store.Deliveries().LogAttempt(ctx, models.NewFailedEntry(int64(i+1), 1, models.ChannelSMS, "x")); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	failed, err := store.Deliveries().ListFailed(ctx, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != FailedDeliveryBatchSize {
		t.Errorf("len = %d, want %d", len(failed), FailedDeliveryBatchSize)
	}
}

func TestRuleRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	rule := models.NewAlertRule(3, "temperature", models.ConditionGreaterThan, 38)
	rule.HiveID = "hive-a"
	id, err := store.Rules().Create(ctx, rule)
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}

	other := models.NewAlertRule(3, "humidity", models.ConditionLessThan, 40)
	other.HiveID = "hive-b"
	other.Enabled = false
	if _, err := store.Rules().Create(ctx, other); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	got, err := store.Rules().GetByID(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get rule: %v, %v", got, err)
	}
	if got.Condition != models.ConditionGreaterThan || got.Threshold != 38 || !got.Enabled {
		t.Errorf("got = %+v", got)
	}

	all, _ := store.Rules().List(ctx, 3, RuleFilter{})
	if len(all) != 2 {
		t.Errorf("list all = %d, want 2", len(all))
	}
	byHive, _ := store.Rules().List(ctx, 3, RuleFilter{HiveID: "hive-b"})
	if len(byHive) != 1 || byHive[0].MetricType != "humidity" {
		t.Errorf("list by hive = %+v", byHive)
	}
	enabled, _ := store.Rules().ListEnabled(ctx)
	if len(enabled) != 1 || enabled[0].ID != id {
		t.Errorf("list enabled = %+v", enabled)
	}

	got.Threshold = 40
	if err := store.Rules().Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.Rules().GetByID(ctx, id)
	if got.Threshold != 40 {
		t.Errorf("threshold = %v, want 40", got.Threshold)
	}

	// Another user cannot touch the rule.
	foreign := *got
	foreign.UserID = 4
	if err := store.Rules().Update(ctx, &foreign); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign update: err = %v, want ErrNotFound", err)
	}
	if deleted, _ := store.Rules().Delete(ctx, 4, id); deleted {
		t.Error("foreign delete should not succeed")
	}

	deleted, err := store.Rules().Delete(ctx, 3, id)
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	if got, _ := store.Rules().GetByID(ctx, id); got != nil {
		t.Error("rule should be gone")
	}
}

func TestDialectRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = '?' AND c = ?"
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT * FROM t WHERE a = $1 AND b = '?' AND c = $2"
	if got := postgresDialect.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}
