package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/annel0/pilotsim/internal/snapshot"
)

// MariaSnapshotRepo хранит снимки в таблице frame_snapshots MariaDB/MySQL
type MariaSnapshotRepo struct {
	db    *sql.DB
	codec *Codec
}

// NewMariaSnapshotRepo подключается к базе и создаёт таблицу при необходимости.
// dsn: user:pass@tcp(host:port)/dbname?parseTime=true
func NewMariaSnapshotRepo(dsn string) (*MariaSnapshotRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaSnapshotRepo{db: db, codec: &defaultCodec}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MariaSnapshotRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS frame_snapshots (
			frame      BIGINT UNSIGNED PRIMARY KEY,
			system     VARCHAR(64)     NOT NULL DEFAULT '',
			pilots     INT             NOT NULL DEFAULT 0,
			data       MEDIUMBLOB      NOT NULL,
			created_at TIMESTAMP       DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_created_at (created_at)
		) ENGINE=InnoDB
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы frame_snapshots: %w", err)
	}
	return nil
}

func (r *MariaSnapshotRepo) Save(ctx context.Context, f *snapshot.Frame) error {
	data, err := r.codec.Encode(f)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO frame_snapshots (frame, system, pilots, data)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			system = VALUES(system),
			pilots = VALUES(pilots),
			data = VALUES(data)
	`
	if _, err := r.db.ExecContext(ctx, query, f.Frame, f.System, len(f.Pilots), data); err != nil {
		return fmt.Errorf("ошибка сохранения снимка %d: %w", f.Frame, err)
	}
	return nil
}

func (r *MariaSnapshotRepo) Get(ctx context.Context, frame uint64) (*snapshot.Frame, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM frame_snapshots WHERE frame = ?`, frame).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка %d: %w", frame, err)
	}
	return r.codec.Decode(data)
}

func (r *MariaSnapshotRepo) Latest(ctx context.Context) (*snapshot.Frame, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM frame_snapshots ORDER BY frame DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения последнего снимка: %w", err)
	}
	return r.codec.Decode(data)
}

func (r *MariaSnapshotRepo) List(ctx context.Context, limit int) ([]uint64, error) {
	query := `SELECT frame FROM frame_snapshots ORDER BY frame DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения списка снимков: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Prune удаляет всё старше keep-го снимка одним запросом
func (r *MariaSnapshotRepo) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	ids, err := r.List(ctx, keep+1)
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM frame_snapshots WHERE frame <= ?`, ids[keep])
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления старых снимков: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *MariaSnapshotRepo) Close() error {
	return r.db.Close()
}
