// Package export writes daily training-load series in columnar form.
package export

import (
	"fmt"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// DailyMetricRow is one day of an athlete's series, Day formatted YYYY-MM-DD.
type DailyMetricRow struct {
	AthleteID int64
	Day       string
	TSS       float64
	DurationS int64
	WorkKJ    float64
	IFValue   *float64
	EF        *float64
	CTL       float64
	ATL       float64
	TSB       float64
}

type dailyMetricParquetRow struct {
	AthleteID int64    `parquet:"name=athlete_id, type=INT64"`
	Day       string   `parquet:"name=day, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TSS       float64  `parquet:"name=tss, type=DOUBLE"`
	DurationS int64    `parquet:"name=duration_s, type=INT64"`
	WorkKJ    float64  `parquet:"name=work_kj, type=DOUBLE"`
	IFValue   *float64 `parquet:"name=if_value, type=DOUBLE, repetitiontype=OPTIONAL"`
	EF        *float64 `parquet:"name=ef, type=DOUBLE, repetitiontype=OPTIONAL"`
	CTL       float64  `parquet:"name=ctl, type=DOUBLE"`
	ATL       float64  `parquet:"name=atl, type=DOUBLE"`
	TSB       float64  `parquet:"name=tsb, type=DOUBLE"`
}

const parallelWriters = 4

// DailyMetricsParquet encodes rows as a snappy compressed parquet file.
func DailyMetricsParquet(rows []DailyMetricRow) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(dailyMetricParquetRow), parallelWriters)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		row := dailyMetricParquetRow{
			AthleteID: r.AthleteID,
			Day:       r.Day,
			TSS:       r.TSS,
			DurationS: r.DurationS,
			WorkKJ:    r.WorkKJ,
			IFValue:   r.IFValue,
			EF:        r.EF,
			CTL:       r.CTL,
			ATL:       r.ATL,
			TSB:       r.TSB,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("write row %s: %w", r.Day, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("write stop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	return append([]byte(nil), fw.Bytes()...), nil
}
