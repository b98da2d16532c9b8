package repository

import (
	"database/sql"
	"fmt"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// VitalsRepository 生命体征记录仓库
type VitalsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVitalsRepository 创建生命体征记录仓库
func NewVitalsRepository(db *sql.DB, logger *zap.Logger) *VitalsRepository {
	return &VitalsRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 插入一条融合记录到 vitals 表
func (r *VitalsRepository) Insert(m *models.Measurement) (int64, error) {
	query := `
		INSERT INTO vitals (
			side,
			timestamp,
			heart_rate,
			hrv,
			breathing_rate
		) VALUES (
			$1, to_timestamp($2), $3, $4, $5
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(
		query,
		m.Side,
		m.Timestamp,
		m.HeartRate,
		m.HRV,
		m.BreathingRate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert vitals: %w", err)
	}

	return id, nil
}

// GetRecentBySide 查询某床侧最近的记录（最新在前）
func (r *VitalsRepository) GetRecentBySide(side string, limit int) ([]models.Measurement, error) {
	query := `
		SELECT side, extract(epoch from timestamp)::bigint, heart_rate, hrv, breathing_rate
		FROM vitals
		WHERE side = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, side, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vitals: %w", err)
	}
	defer rows.Close()

	var measurements []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.Side, &m.Timestamp, &m.HeartRate, &m.HRV, &m.BreathingRate); err != nil {
			return nil, fmt.Errorf("failed to scan vitals row: %w", err)
		}
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vitals rows: %w", err)
	}

	return measurements, nil
}
