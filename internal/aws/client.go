package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bgdnvk/stackpilot/internal/credentials"
)

// EC2API is the slice of the EC2 surface the handlers use. The concrete
// *ec2.Client satisfies it; tests supply stubs. DescribeInstances matches
// ec2.DescribeInstancesAPIClient so the SDK paginator accepts it too.
type EC2API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
	DescribeKeyPairs(ctx context.Context, params *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
}

// S3API covers bucket creation, object transfer, and listing.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// LambdaAPI covers function deployment and invocation.
type LambdaAPI interface {
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// ECSAPI covers Fargate cluster and service orchestration.
type ECSAPI interface {
	CreateCluster(ctx context.Context, params *ecs.CreateClusterInput, optFns ...func(*ecs.Options)) (*ecs.CreateClusterOutput, error)
	RegisterTaskDefinition(ctx context.Context, params *ecs.RegisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error)
	CreateService(ctx context.Context, params *ecs.CreateServiceInput, optFns ...func(*ecs.Options)) (*ecs.CreateServiceOutput, error)
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
}

// Clients bundles the per-service SDK clients for one region. A fresh bundle
// is built per invocation; nothing is shared across dispatches.
type Clients struct {
	EC2    EC2API
	S3     S3API
	Lambda LambdaAPI
	ECS    ECSAPI
}

// ClientFactory builds the service clients for a region. The dispatcher calls
// it once per handler invocation, after required parameters have validated.
type ClientFactory func(ctx context.Context, region string) (*Clients, error)

// NewClientFactory returns a factory that resolves credentials through the
// given resolver and builds SDK clients with a static credentials provider.
// Credentials live only for the scope of one factory call.
func NewClientFactory(resolver credentials.Resolver) ClientFactory {
	return func(ctx context.Context, region string) (*Clients, error) {
		set, err := resolver.Resolve(ctx)
		if err != nil {
			return nil, err
		}

		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
				set.AccessKeyID,
				set.SecretAccessKey,
				set.SessionToken,
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config for region %s: %w", region, err)
		}

		return &Clients{
			EC2:    ec2.NewFromConfig(cfg),
			S3:     s3.NewFromConfig(cfg),
			Lambda: lambda.NewFromConfig(cfg),
			ECS:    ecs.NewFromConfig(cfg),
		}, nil
	}
}
