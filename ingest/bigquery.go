package ingest

import (
	"context"
	"fmt"

	C "journeys/config"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// BigQueryTouchpointRow expects created_at as a TIMESTAMP column.
type BigQueryTouchpointRow struct {
	UtmSource   bigquery.NullString    `bigquery:"utm_source"`
	UtmCampaign bigquery.NullString    `bigquery:"utm_campaign"`
	UtmMedium   bigquery.NullString    `bigquery:"utm_medium"`
	UtmContent  bigquery.NullString    `bigquery:"utm_content"`
	SessionID   bigquery.NullString    `bigquery:"session_id"`
	CreatedAt   bigquery.NullTimestamp `bigquery:"created_at"`
}

type BigQueryReader struct {
	client *bigquery.Client
	conf   C.BigQueryConf
}

var _ RecordReader = (*BigQueryReader)(nil)

func NewBigQueryReader(ctx context.Context, conf C.BigQueryConf) (*BigQueryReader, error) {
	client, err := bigquery.NewClient(ctx, conf.ProjectID)
	if err != nil {
		return nil, err
	}
	return &BigQueryReader{client: client, conf: conf}, nil
}

func (r *BigQueryReader) Name() string {
	return fmt.Sprintf("bigquery:%s.%s.%s", r.conf.ProjectID, r.conf.Dataset, r.conf.Table)
}

// GetBigQueryTouchpointsQuery builds the select over the configured table.
func GetBigQueryTouchpointsQuery(conf C.BigQueryConf) string {
	query := fmt.Sprintf("SELECT %s FROM `%s.%s.%s`", touchpointColumns, conf.ProjectID, conf.Dataset, conf.Table)
	if conf.OrderBy != "" {
		query = query + " ORDER BY " + conf.OrderBy
	}
	return query
}

func (r *BigQueryReader) ReadRecords(ctx context.Context) ([]RawTouchpoint, error) {
	it, err := r.client.Query(GetBigQueryTouchpointsQuery(r.conf)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %v", r.Name(), err)
	}

	raws := make([]RawTouchpoint, 0)
	for {
		var row BigQueryTouchpointRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %v", r.Name(), err)
		}
		raws = append(raws, RawTouchpointFromBigQueryRow(len(raws)+1, row))
	}
	return raws, nil
}

func RawTouchpointFromBigQueryRow(rowNumber int, row BigQueryTouchpointRow) RawTouchpoint {
	raw := RawTouchpoint{
		Row:       rowNumber,
		Source:    row.UtmSource.StringVal,
		Campaign:  row.UtmCampaign.StringVal,
		Medium:    row.UtmMedium.StringVal,
		Content:   row.UtmContent.StringVal,
		SessionID: row.SessionID.StringVal,
	}
	if row.CreatedAt.Valid {
		createdAt := row.CreatedAt.Timestamp
		raw.CreatedAtTime = &createdAt
	}
	return raw
}
