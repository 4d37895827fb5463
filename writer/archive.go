package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "optionflow/config"
	"optionflow/logger"
	"optionflow/models"
)

// ArchiveRecord is the parquet row shape of one enriched instrument.
type ArchiveRecord struct {
	Symbol          string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	InstrumentName  string  `parquet:"name=instrument_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Expiry          int64   `parquet:"name=expiry, type=INT64"`
	Strike          int64   `parquet:"name=strike, type=INT64"`
	Side            string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	UnderlyingPrice float64 `parquet:"name=underlying_price, type=DOUBLE"`
	BidPrice        float64 `parquet:"name=bid_price, type=DOUBLE"`
	AskPrice        float64 `parquet:"name=ask_price, type=DOUBLE"`
	MidPrice        float64 `parquet:"name=mid_price, type=DOUBLE"`
	DollarBid       float64 `parquet:"name=dollar_bid, type=DOUBLE"`
	DollarAsk       float64 `parquet:"name=dollar_ask, type=DOUBLE"`
	DollarMid       float64 `parquet:"name=dollar_mid, type=DOUBLE"`
	YearsToExpiry   float64 `parquet:"name=years_to_expiry, type=DOUBLE"`
	FetchedAt       int64   `parquet:"name=fetched_at, type=INT64"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory
// writing.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) { return mfw.buffer.Read(b) }

func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }

func (mfw *memoryFileWriter) Close() error { return nil }

func (mfw *memoryFileWriter) Bytes() []byte { return mfw.buffer.Bytes() }

// ArchiveWriter persists full enriched snapshots to S3 as parquet files
// under a partitioned key. One PutObject per snapshot, no buffering.
type ArchiveWriter struct {
	config   *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewArchiveWriter configures the AWS SDK and the S3 client used for
// snapshot uploads.
func NewArchiveWriter(cfg *appconfig.Config) (*ArchiveWriter, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("archive_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archive_writer").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("archive writer initialized")

	return &ArchiveWriter{
		config:   cfg,
		s3Client: s3Client,
		log:      log,
	}, nil
}

// WriteSnapshot uploads one enriched snapshot as a parquet object and
// returns its key.
func (w *ArchiveWriter) WriteSnapshot(ctx context.Context, snap *models.Snapshot) (string, error) {
	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"batch_id":     uuid.New().String(),
		"symbol":       snap.Symbol,
		"record_count": len(snap.Records),
		"operation":    "write_snapshot",
	})

	if len(snap.Records) == 0 {
		log.Debug("snapshot has no records, skipping")
		return "", nil
	}

	key := w.objectKey(snap)
	log = log.WithFields(logger.Fields{"s3_key": key})

	data, err := w.createParquetFile(snap)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return "", err
	}

	if err := w.uploadToS3(ctx, key, data); err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket}).
			Error("failed to upload to S3")
		return "", err
	}

	logger.IncrementExportWrite("s3_archive", len(data))
	log.WithFields(logger.Fields{"file_size": len(data)}).Info("snapshot archived")
	return key, nil
}

func (w *ArchiveWriter) objectKey(snap *models.Snapshot) string {
	timestamp := snap.FetchedAt

	var parts []string
	for _, k := range w.config.Writer.Partitioning.AdditionalKeys {
		if k == "symbol" {
			parts = append(parts, fmt.Sprintf("symbol=%s", snap.Symbol))
		}
	}

	timeFormat := w.config.Writer.Partitioning.TimeFormat
	timePath := strings.ReplaceAll(timeFormat, "{year}", fmt.Sprintf("%04d", timestamp.Year()))
	timePath = strings.ReplaceAll(timePath, "{month}", fmt.Sprintf("%02d", timestamp.Month()))
	timePath = strings.ReplaceAll(timePath, "{day}", fmt.Sprintf("%02d", timestamp.Day()))
	timePath = strings.ReplaceAll(timePath, "{hour}", fmt.Sprintf("%02d", timestamp.Hour()))

	parts = append(parts, timePath)

	ts := timestamp.UTC().Format("20060102150405")
	filename := fmt.Sprintf("%s_chain_%s.parquet", snap.Symbol, ts)

	key := filepath.Join(append(parts, filename)...)
	return filepath.ToSlash(key)
}

func toArchiveRecords(snap *models.Snapshot) []ArchiveRecord {
	records := make([]ArchiveRecord, len(snap.Records))
	for i, rec := range snap.Records {
		records[i] = ArchiveRecord{
			Symbol:          snap.Symbol,
			InstrumentName:  rec.InstrumentName,
			Expiry:          rec.Expiry.UnixMilli(),
			Strike:          int64(rec.Strike),
			Side:            rec.Side.String(),
			UnderlyingPrice: rec.UnderlyingPrice,
			BidPrice:        rec.BidPrice,
			AskPrice:        rec.AskPrice,
			MidPrice:        rec.MidPrice,
			DollarBid:       rec.DollarBid,
			DollarAsk:       rec.DollarAsk,
			DollarMid:       rec.DollarMid,
			YearsToExpiry:   rec.YearsToExpiry,
			FetchedAt:       snap.FetchedAt.UnixMilli(),
		}
	}
	return records
}

func (w *ArchiveWriter) createParquetFile(snap *models.Snapshot) ([]byte, error) {
	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"record_count": len(snap.Records),
		"operation":    "create_parquet_file",
	})

	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ArchiveRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch w.config.Writer.Parquet.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "lzo":
		pw.CompressionType = parquet.CompressionCodec_LZO
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, record := range toArchiveRecords(snap) {
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := fw.Bytes()

	log.WithFields(logger.Fields{
		"file_size":   len(data),
		"compression": w.config.Writer.Parquet.Compression,
	}).Info("parquet file created")

	return data, nil
}

func (w *ArchiveWriter) uploadToS3(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":       "parquet",
			"compression":        w.config.Writer.Parquet.Compression,
			"optionflow-version": w.config.Optionflow.Version,
		},
	}

	if _, err := w.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
