package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	C "journeys/config"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

// PostgresTouchpointRow is a row of the touchpoints table.
type PostgresTouchpointRow struct {
	UtmSource   sql.NullString `gorm:"column:utm_source"`
	UtmCampaign sql.NullString `gorm:"column:utm_campaign"`
	UtmMedium   sql.NullString `gorm:"column:utm_medium"`
	UtmContent  sql.NullString `gorm:"column:utm_content"`
	SessionID   sql.NullString `gorm:"column:session_id"`
	CreatedAt   *time.Time     `gorm:"column:created_at"`
}

const touchpointColumns = "utm_source, utm_campaign, utm_medium, utm_content, session_id, created_at"

// PostgresReader reads touchpoints from a table, ordered by the configured
// arrival column.
type PostgresReader struct {
	db      *gorm.DB
	dbName  string
	table   string
	orderBy string
}

var _ RecordReader = (*PostgresReader)(nil)

func NewPostgresReader(dbConf C.DBConf) (*PostgresReader, error) {
	db, err := gorm.Open("postgres", fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Name, dbConf.Password))
	if err != nil {
		return nil, err
	}
	db.DB().SetMaxIdleConns(2)
	db.DB().SetMaxOpenConns(5)

	return NewPostgresReaderWithDB(db, dbConf), nil
}

func NewPostgresReaderWithDB(db *gorm.DB, dbConf C.DBConf) *PostgresReader {
	return &PostgresReader{db: db, dbName: dbConf.Name, table: dbConf.Table, orderBy: dbConf.OrderBy}
}

func (r *PostgresReader) Name() string {
	return fmt.Sprintf("postgres:%s.%s", r.dbName, r.table)
}

func (r *PostgresReader) ReadRecords(ctx context.Context) ([]RawTouchpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []PostgresTouchpointRow
	query := r.db.Table(r.table).Select(touchpointColumns)
	if r.orderBy != "" {
		query = query.Order(r.orderBy)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %v", r.table, err)
	}
	return RawTouchpointsFromPostgresRows(rows), nil
}

func RawTouchpointsFromPostgresRows(rows []PostgresTouchpointRow) []RawTouchpoint {
	raws := make([]RawTouchpoint, len(rows))
	for i, row := range rows {
		raws[i] = RawTouchpoint{
			Row:           i + 1,
			Source:        row.UtmSource.String,
			Campaign:      row.UtmCampaign.String,
			Medium:        row.UtmMedium.String,
			Content:       row.UtmContent.String,
			SessionID:     row.SessionID.String,
			CreatedAtTime: row.CreatedAt,
		}
	}
	return raws
}
