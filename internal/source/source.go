// Package source opens hashing inputs: local files, stdin ("-") and
// s3://bucket/key objects, optionally decompressing them on the fly.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pierrec/lz4/v4"
)

const (
	CodecAuto = "auto"
	CodecNone = "none"
	CodecGzip = "gzip"
	CodecZstd = "zstd"
	CodecLZ4  = "lz4"
)

var (
	ErrUnsupportedCodec = errors.New("unsupported compression")
	ErrNoS3Endpoint     = errors.New("s3 endpoint not configured")
)

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

type Options struct {
	// Decompress is one of the Codec constants; empty means CodecAuto.
	Decompress string
	S3         S3Config
	// Stdin replaces os.Stdin for the "-" input.
	Stdin io.Reader
}

// Open returns a reader over the (decompressed) contents of name.
func Open(ctx context.Context, name string, opts Options) (io.ReadCloser, error) {
	codec, err := resolveCodec(name, opts.Decompress)
	if err != nil {
		return nil, err
	}
	raw, err := openRaw(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(raw, codec)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rc, nil
}

func openRaw(ctx context.Context, name string, opts Options) (io.ReadCloser, error) {
	if name == "-" {
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}
	if bucket, key, ok := ParseS3(name); ok {
		return openS3(ctx, bucket, key, opts.S3)
	}
	return os.Open(name)
}

// ParseS3 splits an s3://bucket/key URL.
func ParseS3(name string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(name, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func openS3(ctx context.Context, bucket, key string, cfg S3Config) (io.ReadCloser, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoS3Endpoint
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces missing objects before hashing starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, os.ErrNotExist)
		}
		return nil, err
	}
	return obj, nil
}

func resolveCodec(name, codec string) (string, error) {
	switch strings.ToLower(codec) {
	case "", CodecAuto:
	case CodecNone, "off":
		return CodecNone, nil
	case CodecGzip, "gz":
		return CodecGzip, nil
	case CodecZstd, "zst":
		return CodecZstd, nil
	case CodecLZ4:
		return CodecLZ4, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".gz", ".gzip":
		return CodecGzip, nil
	case ".zst", ".zstd":
		return CodecZstd, nil
	case ".lz4":
		return CodecLZ4, nil
	}
	return CodecNone, nil
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decompress(raw io.ReadCloser, codec string) (io.ReadCloser, error) {
	switch codec {
	case CodecGzip:
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, raw.Close}}, nil
	case CodecZstd:
		d, err := zstd.NewReader(raw)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: d, closers: []func() error{
			func() error { d.Close(); return nil },
			raw.Close,
		}}, nil
	case CodecLZ4:
		return &readCloser{Reader: lz4.NewReader(raw), closers: []func() error{raw.Close}}, nil
	}
	return raw, nil
}
