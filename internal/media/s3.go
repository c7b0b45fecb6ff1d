// Package media uploads vehicle photos to object storage. This is a side
// channel decoupled from record sync: callers fire it off after a save,
// failures are logged and never retried by the sync engine.
package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ezcar24/dealersync/internal/logging"
)

// Options configures access to the S3-compatible photo bucket.
type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is the prefix of the URL stored on the vehicle record.
	PublicBaseURL string
}

type Uploader struct {
	client *s3.Client
	opts   Options
	log    logging.Logger
}

func NewUploader(ctx context.Context, opts Options, log logging.Logger) (*Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{client: client, opts: opts, log: log}, nil
}

// UploadVehicleImage stores the photo under the dealer's prefix and
// returns the public URL to put on the vehicle record.
func (u *Uploader) UploadVehicleImage(ctx context.Context, dealerID, vehicleID string, data []byte) (string, error) {
	key := objectKey(dealerID, vehicleID)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		u.log.Error(ctx, "image upload failed",
			"dealer_id", dealerID, "vehicle_id", vehicleID, "error", err)
		return "", fmt.Errorf("upload image: %w", err)
	}

	url := fmt.Sprintf("%s/%s", u.opts.PublicBaseURL, key)
	u.log.Info(ctx, "image uploaded", "vehicle_id", vehicleID, "url", url)
	return url, nil
}

// DeleteVehicleImage removes the photo. Called when a vehicle is deleted
// so orphaned objects do not pile up in the bucket.
func (u *Uploader) DeleteVehicleImage(ctx context.Context, dealerID, vehicleID string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.opts.Bucket),
		Key:    aws.String(objectKey(dealerID, vehicleID)),
	})
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func objectKey(dealerID, vehicleID string) string {
	return fmt.Sprintf("%s/vehicles/%s.jpg", dealerID, vehicleID)
}
