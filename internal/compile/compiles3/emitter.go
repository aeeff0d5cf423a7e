package compiles3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/k11v/emload/internal/compile"
)

var ErrFileTooLarge = errors.New("file too large")

var _ compile.Emitter = (*Emitter)(nil)

// Emitter uploads assets to S3-compatible object storage
// under {prefix}/{name}.
type Emitter struct {
	client *s3.Client // required
	bucket string     // required
	prefix string
}

func NewEmitter(client *s3.Client, bucket, prefix string) *Emitter {
	return &Emitter{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key a file with the name is uploaded to.
func (e *Emitter) Key(name string) string {
	if e.prefix == "" {
		return name
	}
	return path.Join(e.prefix, name)
}

// uploadPartSize should be greater than or equal 5MB.
// See github.com/aws/aws-sdk-go-v2/feature/s3/manager.
const uploadPartSize = 10 * 1024 * 1024 // 10MB

// EmitFile implements compile.Emitter.
func (e *Emitter) EmitFile(ctx context.Context, name string, data []byte) error {
	key := e.Key(name)
	contentType := contentTypeOf(name)

	uploader := manager.NewUploader(e.client, func(u *manager.Uploader) {
		u.PartSize = uploadPartSize
	})
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &e.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		if apiErr := smithy.APIError(nil); errors.As(err, &apiErr) && apiErr.ErrorCode() == "EntityTooLarge" {
			err = errors.Join(ErrFileTooLarge, err)
		}
		return fmt.Errorf("compiles3.Emitter: %w", err)
	}

	return nil
}

func contentTypeOf(name string) string {
	switch path.Ext(name) {
	case ".wasm":
		return "application/wasm"
	case ".js":
		return "text/javascript"
	default:
		return "application/octet-stream"
	}
}
