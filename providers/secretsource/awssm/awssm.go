// Package awssm provides a fieldcrypt.KeySource backed by AWS Secrets
// Manager for centralized secret storage with audit logging and
// replication.
package awssm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/helioscare/fieldcrypt"
)

// secretsManagerClient is the subset of the AWS client this source uses
// (allows mocking in tests).
type secretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Config configures the source.
type Config struct {
	// Region overrides the default AWS region.
	Region string
	// AWSConfig overrides the entire AWS configuration when set.
	AWSConfig *aws.Config
}

// Source implements fieldcrypt.KeySource over AWS Secrets Manager.
type Source struct {
	client secretsManagerClient
}

// New creates a Secrets Manager source.
//
//	// default AWS configuration chain
//	source, err := awssm.New(ctx, awssm.Config{})
//
//	// pinned region
//	source, err := awssm.New(ctx, awssm.Config{Region: "sa-east-1"})
func New(ctx context.Context, cfg Config) (*Source, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AWSConfig != nil {
		awsCfg = *cfg.AWSConfig
	} else {
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: loading AWS config: %w",
				fieldcrypt.ErrSecretSourceUnavailable, err)
		}
	}

	return &Source{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// newWithClient is used by tests to inject a mock client.
func newWithClient(client secretsManagerClient) *Source {
	return &Source{client: client}
}

// GetSecret fetches the named secret's string value.
func (s *Source) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("%w: reading secret %q: %w",
			fieldcrypt.ErrSecretSourceUnavailable, name, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("%w: secret %q has no string value",
			fieldcrypt.ErrSecretSourceUnavailable, name)
	}
	return *out.SecretString, nil
}
