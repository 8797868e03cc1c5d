package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/marmos91/dittohandle/pkg/store/badger"
	"github.com/marmos91/dittohandle/pkg/store/memory"
	"github.com/marmos91/dittohandle/pkg/store/rest"
	storeS3 "github.com/marmos91/dittohandle/pkg/store/s3"
	"github.com/marmos91/dittohandle/pkg/store/sqlite"
	"github.com/mitchellh/mapstructure"
)

// CreateRecordStore creates a record store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/memory (ephemeral)
//   - "badger": Uses pkg/store/badger (BadgerDB storage, persistent)
//   - "sqlite": Uses pkg/store/sqlite (handles table in a SQLite file)
//   - "rest": Uses pkg/store/rest (a handle server's REST API)
//   - "s3": Uses pkg/store/s3 (Amazon S3 or compatible storage)
//
// When m is not nil the store is wrapped with store.Instrument.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Record store configuration
//   - m: Store metrics (nil disables instrumentation)
//
// Returns:
//   - store.RecordStore: Initialized record store
//   - error: Configuration or initialization error
func CreateRecordStore(ctx context.Context, cfg *StoreConfig, m store.Metrics) (store.RecordStore, error) {
	var (
		rs  store.RecordStore
		err error
	)

	switch cfg.Type {
	case "memory":
		rs, err = createMemoryRecordStore(ctx, cfg.Memory)
	case "badger":
		rs, err = createBadgerRecordStore(ctx, cfg.Badger)
	case "sqlite":
		rs, err = createSQLiteRecordStore(ctx, cfg.SQLite)
	case "rest":
		rs, err = createRESTRecordStore(ctx, cfg.REST)
	case "s3":
		rs, err = createS3RecordStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown record store type: %q (supported: memory, badger, sqlite, rest, s3)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if m != nil {
		rs = store.Instrument(rs, cfg.Type, m)
	}
	return rs, nil
}

// decodeOptions decodes a store option map, accepting durations as strings.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// createMemoryRecordStore creates an in-memory record store.
func createMemoryRecordStore(ctx context.Context, options map[string]any) (store.RecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type MemoryRecordStoreOptions struct {
		Degree int `mapstructure:"degree"`
	}

	var storeOpts MemoryRecordStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode memory record store options: %w", err)
	}

	return memory.NewMemoryRecordStore(memory.MemoryRecordStoreConfig{Degree: storeOpts.Degree}), nil
}

// createBadgerRecordStore creates a BadgerDB-based persistent record store.
func createBadgerRecordStore(ctx context.Context, options map[string]any) (store.RecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerRecordStoreOptions struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	var storeOpts BadgerRecordStoreOptions
	if err := decodeOptions(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger record store options: %w", err)
	}

	if storeOpts.DBPath == "" && !storeOpts.InMemory {
		return nil, fmt.Errorf("badger record store: db_path is required")
	}

	rs, err := badger.NewBadgerRecordStore(ctx, badger.BadgerRecordStoreConfig{
		DBPath:           storeOpts.DBPath,
		InMemory:         storeOpts.InMemory,
		BlockCacheSizeMB: storeOpts.BlockCacheSizeMB,
		IndexCacheSizeMB: storeOpts.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger record store: %w", err)
	}

	return rs, nil
}

// createSQLiteRecordStore creates a record store on a SQLite handles table.
func createSQLiteRecordStore(ctx context.Context, options map[string]any) (store.RecordStore, error) {
	type SQLiteRecordStoreOptions struct {
		Path string `mapstructure:"path"`
	}

	var storeOpts SQLiteRecordStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode sqlite record store options: %w", err)
	}

	if storeOpts.Path == "" {
		return nil, fmt.Errorf("sqlite record store: path is required")
	}

	rs, err := sqlite.NewSQLiteRecordStore(ctx, sqlite.SQLiteRecordStoreConfig{Path: storeOpts.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite record store: %w", err)
	}

	return rs, nil
}

// createRESTRecordStore creates a record store talking to a handle server.
func createRESTRecordStore(ctx context.Context, options map[string]any) (store.RecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type RESTRecordStoreOptions struct {
		ServerURL             string        `mapstructure:"server_url"`
		APIPath               string        `mapstructure:"api_path"`
		Username              string        `mapstructure:"username"`
		Password              string        `mapstructure:"password"`
		CertificateFile       string        `mapstructure:"certificate_file"`
		PrivateKeyFile        string        `mapstructure:"private_key_file"`
		HTTPSVerify           *bool         `mapstructure:"https_verify"`
		CABundle              string        `mapstructure:"ca_bundle"`
		Authoritative         bool          `mapstructure:"authoritative"`
		ReverseLookupPath     string        `mapstructure:"reverse_lookup_path"`
		ReverseLookupUsername string        `mapstructure:"reverse_lookup_username"`
		ReverseLookupPassword string        `mapstructure:"reverse_lookup_password"`
		Timeout               time.Duration `mapstructure:"timeout"`
		RequestsPerSecond     float64       `mapstructure:"requests_per_second"`
		Burst                 int           `mapstructure:"burst"`
	}

	var storeOpts RESTRecordStoreOptions
	if err := decodeOptions(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode rest record store options: %w", err)
	}

	if storeOpts.ServerURL == "" {
		return nil, fmt.Errorf("rest record store: server_url is required")
	}

	rs, err := rest.NewRESTRecordStore(rest.RESTRecordStoreConfig{
		ServerURL:             storeOpts.ServerURL,
		APIPath:               storeOpts.APIPath,
		Username:              storeOpts.Username,
		Password:              storeOpts.Password,
		CertificateFile:       storeOpts.CertificateFile,
		PrivateKeyFile:        storeOpts.PrivateKeyFile,
		HTTPSVerify:           storeOpts.HTTPSVerify,
		CABundle:              storeOpts.CABundle,
		Authoritative:         storeOpts.Authoritative,
		ReverseLookupPath:     storeOpts.ReverseLookupPath,
		ReverseLookupUsername: storeOpts.ReverseLookupUsername,
		ReverseLookupPassword: storeOpts.ReverseLookupPassword,
		Timeout:               storeOpts.Timeout,
		RequestsPerSecond:     storeOpts.RequestsPerSecond,
		Burst:                 storeOpts.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rest record store: %w", err)
	}

	logger.Debug("REST record store initialized: server=%s", storeOpts.ServerURL)
	return rs, nil
}

// createS3RecordStore creates an S3-based record store.
func createS3RecordStore(ctx context.Context, options map[string]any) (store.RecordStore, error) {
	type S3RecordStoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeOpts S3RecordStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 record store options: %w", err)
	}

	if storeOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 record store: bucket is required")
	}
	if storeOpts.Region == "" {
		return nil, fmt.Errorf("S3 record store: region is required")
	}

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeOpts.Region),
	}

	// Static credentials when given, otherwise the default credential chain
	if storeOpts.AccessKeyID != "" && storeOpts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeOpts.AccessKeyID, storeOpts.SecretAccessKey, ""),
		))
	}

	maxRetries := storeOpts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and Localstack need a custom endpoint and path-style addressing
		if storeOpts.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeOpts.Endpoint)
			o.UsePathStyle = true
		}
	})

	rs, err := storeS3.NewS3RecordStore(ctx, storeS3.S3RecordStoreConfig{
		Client:    client,
		Bucket:    storeOpts.Bucket,
		KeyPrefix: storeOpts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 record store: %w", err)
	}

	logger.Info("S3 record store initialized: bucket=%s, region=%s, prefix=%s",
		storeOpts.Bucket, storeOpts.Region, storeOpts.KeyPrefix)

	return rs, nil
}
