// Package aws_config loads the aws.Config shared by the S3 and Secrets
// Manager clients.
package aws_config

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

type Options struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	Endpoint         string // e.g. "https://s3.amazonaws.com" or a LocalStack/MinIO URL
	UsePathStyle     bool   // S3 only
	HTTPClient       *http.Client
	RetryMaxAttempts int           // default AWS SDK policy if 0
	RetryMaxBackoff  time.Duration // cap; 0 = default
}

type Option func(*Options)

func WithRegion(r string) Option { return func(o *Options) { o.Region = r } }

// WithStaticCredentials pins the credentials. Without it the default chain
// (env, shared config, IMDS) is used.
func WithStaticCredentials(id, secret, token string) Option {
	return func(o *Options) { o.AccessKeyID, o.SecretAccessKey, o.SessionToken = id, secret, token }
}

func WithEndpoint(endpoint string, pathStyle bool) Option {
	return func(o *Options) { o.Endpoint, o.UsePathStyle = endpoint, pathStyle }
}

func WithHTTPClient(h *http.Client) Option { return func(o *Options) { o.HTTPClient = h } }

func WithRetry(maxAttempts int, maxBackoff time.Duration) Option {
	return func(o *Options) { o.RetryMaxAttempts, o.RetryMaxBackoff = maxAttempts, maxBackoff }
}

func Apply(opts ...Option) Options {
	conf := Options{}
	for _, fn := range opts {
		if fn != nil {
			fn(&conf)
		}
	}
	return conf
}

func Load(ctx context.Context, o Options) (aws.Config, error) {
	var lo []func(*awscfg.LoadOptions) error

	if o.Region != "" {
		lo = append(lo, awscfg.WithRegion(o.Region))
	}
	if o.HTTPClient != nil {
		lo = append(lo, awscfg.WithHTTPClient(o.HTTPClient))
	}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, o.SessionToken))
		lo = append(lo, awscfg.WithCredentialsProvider(creds))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, lo...)
	if err != nil {
		return aws.Config{}, err
	}

	if o.RetryMaxAttempts > 0 || o.RetryMaxBackoff > 0 {
		cfg.Retryer = func() aws.Retryer {
			var r aws.Retryer = retry.NewStandard()
			if o.RetryMaxAttempts > 0 {
				r = retry.AddWithMaxAttempts(r, o.RetryMaxAttempts)
			}
			if o.RetryMaxBackoff > 0 {
				r = retry.AddWithMaxBackoffDelay(r, o.RetryMaxBackoff)
			}
			return r
		}
	}
	if o.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(o.Endpoint)
	}
	return cfg, nil
}
