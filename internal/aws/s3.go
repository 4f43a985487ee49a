package aws

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bgdnvk/stackpilot/internal/params"
)

func createBucket(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	region, err := d.region(p)
	if err != nil {
		return nil, err
	}
	bucketName, err := validateBucketName(p.String("bucket_name"))
	if err != nil {
		return nil, err
	}

	input := &s3.CreateBucketInput{Bucket: awssdk.String(bucketName)}
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	if _, err := clients.S3.CreateBucket(ctx, input); err != nil {
		return nil, err
	}
	return map[string]any{"bucket": bucketName, "region": region}, nil
}

func uploadS3(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	bucketName := p.String("bucket_name")
	if bucketName == "" {
		return nil, params.Validationf("'bucket_name' parameter is required for upload_s3")
	}
	filePath := p.String("file_path")
	if filePath == "" {
		return nil, params.Validationf("'file_path' parameter is required for upload_s3")
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", filePath, fs.ErrNotExist)
		}
		return nil, err
	}

	objectName := p.String("object_name")
	if objectName == "" {
		objectName = filepath.Base(filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	_, err = clients.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: awssdk.String(bucketName),
		Key:    awssdk.String(objectName),
		Body:   file,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket":     bucketName,
		"object":     objectName,
		"size_bytes": info.Size(),
	}, nil
}

func downloadS3(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	bucketName := p.String("bucket_name")
	if bucketName == "" {
		return nil, params.Validationf("'bucket_name' parameter is required for download_s3")
	}
	objectName := p.String("object_name")
	if objectName == "" {
		return nil, params.Validationf("'object_name' parameter is required for download_s3")
	}
	destination := p.String("file_path")
	if destination == "" {
		return nil, params.Validationf("'file_path' parameter is required for download_s3")
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(bucketName),
		Key:    awssdk.String(objectName),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(destination)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	size, err := io.Copy(file, resp.Body)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket":        bucketName,
		"object":        objectName,
		"downloaded_to": destination,
		"size_bytes":    size,
	}, nil
}

func listS3Objects(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	// Accept the aliases LLM callers tend to produce.
	bucketName := p.String("bucket_name")
	if bucketName == "" {
		bucketName = p.String("bucket")
	}
	if bucketName == "" {
		bucketName = p.String("Bucket")
	}
	if bucketName == "" {
		return nil, params.Validationf("'bucket_name' parameter is required for list_s3_objects")
	}

	input := &s3.ListObjectsV2Input{Bucket: awssdk.String(bucketName)}
	prefix := p.String("prefix")
	if prefix == "" {
		prefix = p.String("Prefix")
	}
	if prefix != "" {
		input.Prefix = awssdk.String(prefix)
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}

	listing := []any{}
	paginator := s3.NewListObjectsV2Paginator(clients.S3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			modified := ""
			if obj.LastModified != nil {
				modified = obj.LastModified.UTC().Format(time.RFC3339)
			}
			listing = append(listing, map[string]any{
				"key":           awssdk.ToString(obj.Key),
				"size":          awssdk.ToInt64(obj.Size),
				"last_modified": modified,
				"storage_class": string(obj.StorageClass),
			})
		}
	}
	return map[string]any{"objects": listing}, nil
}
