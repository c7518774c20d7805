package toolchain

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
)

// The subset of the S3 client used by [MirrorSource].
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Configures a bucket mirror.
type MirrorConfig struct {
	Bucket          string // Bucket holding "<prefix><major>.<minor><ext>" objects.
	Prefix          string // Key prefix, e.g. "toolchains/".
	Format          Format // Archive format of the objects. Empty uses zip.
	Endpoint        string // Custom endpoint for S3-compatible stores (R2, MinIO). Empty uses AWS.
	Region          string // Region. Empty uses "auto", which R2 expects.
	AccessKeyID     string // Static credentials. Empty uses the default AWS chain.
	SecretAccessKey string
}

// Serves toolchain archives from an S3-compatible bucket.
//
// Object keys directly under the prefix whose base name is an archive of the
// configured format are offered as tags.
type MirrorSource struct {
	client s3API
	bucket string
	prefix string
	format Format
}

// Creates a mirror source from cfg.
func NewMirrorSource(ctx context.Context, cfg MirrorConfig) (*MirrorSource, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("mirror bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	options := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, errors.Wrap(err, "load mirror config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newMirrorSource(client, cfg), nil
}

// Creates a mirror source over an existing client.
func newMirrorSource(client s3API, cfg MirrorConfig) *MirrorSource {
	format := cfg.Format
	if format == "" {
		format = FormatZip
	}
	return &MirrorSource{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		format: format,
	}
}

// Lists archive base names under the prefix.
func (m *MirrorSource) Tags(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(m.prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), m.prefix)
			if strings.Contains(name, "/") {
				continue
			}
			base, format, ok := splitArchiveName(name)
			if !ok || format != m.format {
				continue
			}
			names = append(names, base)
		}
	}

	slog.Debug("listed mirror objects", "bucket", m.bucket, "prefix", m.prefix, "count", len(names))
	return names, nil
}

// Opens the archive object for v.
func (m *MirrorSource) Open(ctx context.Context, v Version) (io.ReadCloser, Format, error) {
	key := m.prefix + v.String() + m.format.Ext()

	slog.Debug("downloading toolchain", "bucket", m.bucket, "key", key)

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	return out.Body, m.format, nil
}
