package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"wagerescrow/internal/config"
	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
)

// ObjectPutter is the subset of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a client for an S3-compatible bucket. A custom endpoint
// (for example an R2 account URL) switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// MatchArchiver exports settled matches to object storage and marks them
// archived. Rows stay in the database. A row whose upload fails waits
// RetryAfter before the next attempt and is abandoned after MaxAttempts.
type MatchArchiver struct {
	Repo        repository.Repository
	Store       ObjectPutter
	Bucket      string
	Prefix      string
	BatchSize   int
	MaxAttempts int
	RetryAfter  time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

const (
	defaultArchiveMaxAttempts = 5
	defaultArchiveRetryAfter  = time.Hour
)

type ArchiveResult struct {
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// ArchiveKey is the object key of a match: <prefix>/yyyy/mm/dd/<id>.json,
// dated by settlement time.
func ArchiveKey(prefix string, m models.Match) string {
	at := m.CreatedAt
	if m.SettledAt != nil {
		at = *m.SettledAt
	}
	at = at.UTC()
	return path.Join(strings.Trim(prefix, "/"), at.Format("2006"), at.Format("01"), at.Format("02"), m.ID+".json")
}

func (a *MatchArchiver) RunOnce(ctx context.Context) (ArchiveResult, error) {
	var res ArchiveResult
	if a == nil || a.Repo == nil || a.Store == nil || a.Bucket == "" {
		return res, nil
	}
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now().UTC()
	}
	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultArchiveMaxAttempts
	}
	retryAfter := a.RetryAfter
	if retryAfter <= 0 {
		retryAfter = defaultArchiveRetryAfter
	}
	matches, err := a.Repo.ListUnarchivedMatches(ctx, repository.ListUnarchivedParams{
		Limit:       normalizeLimit(a.BatchSize, 100),
		MaxAttempts: maxAttempts,
		RetryBefore: now.Add(-retryAfter),
	})
	if err != nil {
		return res, err
	}
	done := make([]string, 0, len(matches))
	failed := make([]string, 0)
	for _, m := range matches {
		body, err := json.Marshal(m)
		if err != nil {
			res.Failed++
			failed = append(failed, m.ID)
			continue
		}
		key := ArchiveKey(a.Prefix, m)
		_, err = a.Store.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			res.Failed++
			failed = append(failed, m.ID)
			if a.Logger != nil {
				attempt := m.ArchiveAttempts + 1
				if attempt >= maxAttempts {
					a.Logger.Error("archive upload abandoned", zap.String("match_id", m.ID), zap.String("key", key), zap.Int("attempts", attempt), zap.Error(err))
				} else {
					a.Logger.Warn("archive upload failed", zap.String("match_id", m.ID), zap.String("key", key), zap.Int("attempts", attempt), zap.Error(err))
				}
			}
			continue
		}
		done = append(done, m.ID)
	}
	if len(failed) > 0 {
		if err := a.Repo.RecordArchiveFailures(ctx, failed, now); err != nil {
			return res, err
		}
	}
	if len(done) > 0 {
		if err := a.Repo.MarkMatchesArchived(ctx, done, now); err != nil {
			return res, err
		}
	}
	res.Archived = len(done)
	if a.Logger != nil && (res.Archived > 0 || res.Failed > 0) {
		a.Logger.Info("matches archived", zap.Int("archived", res.Archived), zap.Int("failed", res.Failed))
	}
	return res, nil
}
