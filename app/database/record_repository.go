package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmtral/aipulse/app/model"
)

var _ RecordRepository = (*SQLRecordRepository)(nil)

// SQLRecordRepository persists processed records. Release and blog
// records live in separate tables with identical columns; the kind
// argument selects the table.
type SQLRecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *SQLRecordRepository {
	return &SQLRecordRepository{db: db}
}

func recordTable(kind model.Kind) string {
	if kind == model.KindBlog {
		return "blog_records"
	}
	return "release_records"
}

const recordColumns = `source_id, vendor, product, version, feed_category, title, url, summary,
	published_at, relevant, failed, importance, category, title_zh, summary_zh,
	fetched_at, notified_channels, digest_included_at`

func (r *SQLRecordRepository) Exists(kind model.Kind, sourceID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE source_id = ? LIMIT 1", recordTable(kind))

	var one int
	err := r.db.QueryRow(query, sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}

	return true, nil
}

// Insert creates the record for a newly processed item. The source_id
// primary key enforces at-most-once insertion; a conflicting insert
// reports ErrDuplicate instead of overwriting the existing record.
func (r *SQLRecordRepository) Insert(kind model.Kind, rec *model.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO NOTHING
	`, recordTable(kind), recordColumns)

	res, err := r.db.Exec(query,
		rec.SourceID, rec.Vendor, rec.Product, rec.Version, rec.FeedCategory,
		rec.Title, rec.URL, rec.Summary, nullableTime(rec.PublishedAt),
		boolToInt(rec.Relevant), boolToInt(rec.Failed),
		string(rec.Importance), rec.Category, rec.TitleZh, rec.SummaryZh,
		rec.FetchedAt, joinChannels(rec.NotifiedChannels), nullableTime(rec.DigestIncludedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}

	return nil
}

// AppendNotifiedChannel records a successful send on one channel.
// Appends are idempotent per channel.
func (r *SQLRecordRepository) AppendNotifiedChannel(kind model.Kind, sourceID, channel string) error {
	table := recordTable(kind)

	var current string
	query := fmt.Sprintf("SELECT notified_channels FROM %s WHERE source_id = ?", table)
	err := r.db.QueryRow(query, sourceID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("record %s not found", sourceID)
	}
	if err != nil {
		return fmt.Errorf("failed to read notified channels: %w", err)
	}

	channels := splitChannels(current)
	for _, c := range channels {
		if c == channel {
			return nil
		}
	}
	channels = append(channels, channel)

	update := fmt.Sprintf("UPDATE %s SET notified_channels = ? WHERE source_id = ?", table)
	if _, err := r.db.Exec(update, joinChannels(channels), sourceID); err != nil {
		return fmt.Errorf("failed to update notified channels: %w", err)
	}

	return nil
}

// QuerySince returns relevant records fetched inside [from, to).
func (r *SQLRecordRepository) QuerySince(kind model.Kind, from, to time.Time) ([]model.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE relevant = 1
		  AND fetched_at >= ?
		  AND fetched_at < ?
		ORDER BY importance ASC, fetched_at DESC
	`, recordColumns, recordTable(kind))

	return r.queryRecords(kind, query, from.UTC(), to.UTC())
}

// GetUndigested returns relevant records in the window that have not
// been included in a digest yet.
func (r *SQLRecordRepository) GetUndigested(kind model.Kind, from, to time.Time) ([]model.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE relevant = 1
		  AND digest_included_at IS NULL
		  AND fetched_at >= ?
		  AND fetched_at < ?
		ORDER BY importance ASC, fetched_at DESC
	`, recordColumns, recordTable(kind))

	return r.queryRecords(kind, query, from.UTC(), to.UTC())
}

func (r *SQLRecordRepository) MarkDigested(kind model.Kind, sourceIDs []string) error {
	if len(sourceIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET digest_included_at = ? WHERE source_id = ?", recordTable(kind))
	now := time.Now().UTC()

	for _, id := range sourceIDs {
		if _, err := r.db.Exec(query, now, id); err != nil {
			return fmt.Errorf("failed to mark record digested: %w", err)
		}
	}

	return nil
}

// DeleteOlderThan removes records fetched before cutoff and returns
// the count. Purely time-based on fetched_at, so running it twice in
// the same period removes nothing the second time.
func (r *SQLRecordRepository) DeleteOlderThan(kind model.Kind, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE fetched_at < ?", recordTable(kind))

	res, err := r.db.Exec(query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	return deleted, nil
}

func (r *SQLRecordRepository) GetRecordStats(kind model.Kind) (int, int, int, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) as total,
			SUM(CASE WHEN relevant = 1 THEN 1 ELSE 0 END) as relevant,
			SUM(CASE WHEN notified_channels != '' THEN 1 ELSE 0 END) as notified
		FROM %s
	`, recordTable(kind))

	var total int
	var relevant, notified sql.NullInt64
	err := r.db.QueryRow(query).Scan(&total, &relevant, &notified)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get record stats: %w", err)
	}

	return total, int(relevant.Int64), int(notified.Int64), nil
}

func (r *SQLRecordRepository) queryRecords(kind model.Kind, query string, args ...interface{}) ([]model.Record, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var publishedAt, digestedAt sql.NullTime
		var relevant, failed int
		var importance, channels string

		err := rows.Scan(
			&rec.SourceID, &rec.Vendor, &rec.Product, &rec.Version, &rec.FeedCategory,
			&rec.Title, &rec.URL, &rec.Summary, &publishedAt,
			&relevant, &failed, &importance, &rec.Category, &rec.TitleZh, &rec.SummaryZh,
			&rec.FetchedAt, &channels, &digestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		rec.Kind = kind
		rec.Relevant = relevant == 1
		rec.Failed = failed == 1
		rec.Importance = model.Importance(importance)
		rec.NotifiedChannels = splitChannels(channels)
		if publishedAt.Valid {
			t := publishedAt.Time
			rec.PublishedAt = &t
		}
		if digestedAt.Valid {
			t := digestedAt.Time
			rec.DigestIncludedAt = &t
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	return records, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinChannels(channels []string) string {
	return strings.Join(channels, ",")
}

func splitChannels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
