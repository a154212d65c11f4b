package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/text2toss/junk-removal-api/internal/config"
)

func TestLoadAWSConfigNoRegion(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg != nil {
		t.Fatalf("expected nil config without a region")
	}
}

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg == nil {
		t.Fatalf("expected config")
	}
	if got := aws.ToString(awsCfg.BaseEndpoint); got != "http://localhost:4566" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	if awsCfg.RetryMaxAttempts != awsMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", awsMaxAttempts, awsCfg.RetryMaxAttempts)
	}

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("expected static credentials, got %q", creds.AccessKeyID)
	}
}

func TestLoadAWSConfigWithoutOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "us-east-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.BaseEndpoint != nil {
		t.Fatalf("expected default endpoints")
	}
	if awsCfg.Region != "us-east-2" {
		t.Fatalf("unexpected region %q", awsCfg.Region)
	}
}
