package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hivewatch/alerts/internal/models"
)

type sqlChannelRepo struct {
	db *sql.DB
	d  dialect
}

const channelColumns = `id, user_id, channel_type, email, phone_number, telegram_username,
	telegram_chat_id, time_start, time_end, enabled, created_at, updated_at`

func (r *sqlChannelRepo) List(ctx context.Context, userID int64) ([]*models.ChannelPreference, error) {
	query := `SELECT ` + channelColumns + ` FROM alert_channel_config WHERE user_id = ? ORDER BY channel_type`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("query channel preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*models.ChannelPreference
	for rows.Next() {
		pref, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	return prefs, rows.Err()
}

func (r *sqlChannelRepo) Get(ctx context.Context, userID int64, kind models.ChannelKind) (*models.ChannelPreference, error) {
	query := `SELECT ` + channelColumns + ` FROM alert_channel_config WHERE user_id = ? AND channel_type = ?`
	pref, err := scanChannel(r.db.QueryRowContext(ctx, r.d.rebind(query), userID, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pref, err
}

// Upsert keeps a previously learned Telegram chat id when the incoming
// preference carries none.
func (r *sqlChannelRepo) Upsert(ctx context.Context, pref *models.ChannelPreference) (*models.ChannelPreference, error) {
	now := time.Now().UTC()
	window := pref.Window()

	query := `
		INSERT INTO alert_channel_config (user_id, channel_type, email, phone_number,
			telegram_username, telegram_chat_id, time_start, time_end, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, channel_type) DO UPDATE SET
			email = excluded.email,
			phone_number = excluded.phone_number,
			telegram_username = excluded.telegram_username,
			telegram_chat_id = COALESCE(excluded.telegram_chat_id, alert_channel_config.telegram_chat_id),
			time_start = excluded.time_start,
			time_end = excluded.time_end,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.d.rebind(query),
		pref.UserID, string(pref.Kind), nullString(strings.TrimSpace(pref.Email)),
		nullString(strings.TrimSpace(pref.PhoneNumber)), nullString(storedUsername(pref.TelegramUsername)),
		nullInt(pref.TelegramChatID), window.Start, window.End, pref.Enabled, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert channel preference: %w", err)
	}

	stored, err := r.Get(ctx, pref.UserID, pref.Kind)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("channel preference %d/%s: %w", pref.UserID, pref.Kind, ErrNotFound)
	}
	return stored, nil
}

func (r *sqlChannelRepo) Delete(ctx context.Context, userID int64, kind models.ChannelKind) (bool, error) {
	query := `DELETE FROM alert_channel_config WHERE user_id = ? AND channel_type = ?`
	result, err := r.db.ExecContext(ctx, r.d.rebind(query), userID, string(kind))
	if err != nil {
		return false, fmt.Errorf("delete channel preference: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *sqlChannelRepo) SetTelegramChatID(ctx context.Context, username string, chatID int64) (int64, error) {
	name := storedUsername(username)
	if name == "" {
		return 0, nil
	}

	query := `
		UPDATE alert_channel_config SET telegram_chat_id = ?, updated_at = ?
		WHERE channel_type = ? AND LOWER(telegram_username) = LOWER(?)
	`
	result, err := r.db.ExecContext(ctx, r.d.rebind(query),
		chatID, time.Now().UTC(), string(models.ChannelTelegram), name,
	)
	if err != nil {
		return 0, fmt.Errorf("set telegram chat id: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// storedUsername strips the leading @ that users tend to type.
func storedUsername(username string) string {
	return strings.TrimLeft(strings.TrimSpace(username), "@")
}

func scanChannel(row scanner) (*models.ChannelPreference, error) {
	pref := &models.ChannelPreference{}
	var kind string
	var email, phone, username sql.NullString
	var chatID sql.NullInt64

	err := row.Scan(
		&pref.ID, &pref.UserID, &kind, &email, &phone, &username,
		&chatID, &pref.TimeStart, &pref.TimeEnd, &pref.Enabled, &pref.CreatedAt, &pref.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan channel preference: %w", err)
	}

	pref.Kind = models.ChannelKind(kind)
	pref.Email = email.String
	pref.PhoneNumber = phone.String
	pref.TelegramUsername = models.NormalizeTelegramUsername(username.String)
	if chatID.Valid {
		v := chatID.Int64
		pref.TelegramChatID = &v
	}
	return pref, nil
}
