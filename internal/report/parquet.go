package report

import (
	"github.com/banshee-data/lapalign/internal/session"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type sampleParquetRow struct {
	Recording      string  `parquet:"name=recording, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Frame          int64   `parquet:"name=frame, type=INT64"`
	Lap            int64   `parquet:"name=lap, type=INT64"`
	Progress       float64 `parquet:"name=progress, type=DOUBLE"`
	MatchedIndex   int64   `parquet:"name=matched_index, type=INT64"`
	Matched        bool    `parquet:"name=matched, type=BOOLEAN"`
	RawDistance    float64 `parquet:"name=raw_distance, type=DOUBLE"`
	CandidateCount int64   `parquet:"name=candidate_count, type=INT64"`
	LowConfidence  bool    `parquet:"name=low_confidence, type=BOOLEAN"`
	Skipped        bool    `parquet:"name=skipped, type=BOOLEAN"`
	Rule           string  `parquet:"name=rule, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Reason         string  `parquet:"name=reason, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Phase          string  `parquet:"name=phase, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// MarshalSamplesParquet encodes the per-frame samples of rec as a
// Snappy-compressed Parquet file.
func MarshalSamplesParquet(rec *session.Recording) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(sampleParquetRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range rec.Samples {
		row := sampleParquetRow{
			Recording:      rec.Label,
			Frame:          int64(s.Frame),
			Lap:            int64(s.Lap),
			Progress:       s.Progress,
			MatchedIndex:   int64(s.MatchedIndex),
			Matched:        s.Matched,
			RawDistance:    s.RawDistance,
			CandidateCount: int64(s.CandidateCount),
			LowConfidence:  s.LowConfidence,
			Skipped:        s.Skipped,
			Rule:           string(s.Rule),
			Reason:         string(s.Reason),
			Phase:          s.Phase.String(),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}
