// Package export uploads finished vacancy reports to object storage so
// downstream consumers can pick them up without polling the API.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vacancy-report-service/internal/models"
)

// Report is the payload written to the bucket for one completed job.
type Report struct {
	JobID          string                   `json:"jobId"`
	IC             string                   `json:"ic"`
	EmpGroup       string                   `json:"empGroup"`
	TotalPositions int                      `json:"totalPositions"`
	TotalVacancies int                      `json:"totalVacancies"`
	Results        []models.EnrichedVacancy `json:"results"`
	CompletedAt    time.Time                `json:"completedAt"`
}

// Exporter writes reports to a single S3 bucket.
type Exporter struct {
	client *s3.Client
	bucket string
}

// New builds an exporter from the ambient AWS configuration.
func New(ctx context.Context, bucket string) (*Exporter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Exporter{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Upload stores the report as JSON under vacancy-reports/<jobId>.json.
func (e *Exporter) Upload(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := fmt.Sprintf("vacancy-reports/%s.json", report.JobID)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put report %s: %w", key, err)
	}
	return nil
}
