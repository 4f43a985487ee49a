package aws

import (
	"context"
	"encoding/base64"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/bgdnvk/stackpilot/internal/params"
)

func launchEC2(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	amiID := p.String("ami_id")
	if amiID == "" {
		return nil, params.Validationf("'ami_id' parameter is required for launch_ec2")
	}
	instanceType := p.String("instance_type")
	if instanceType == "" {
		return nil, params.Validationf("'instance_type' parameter is required for launch_ec2")
	}

	minCount, err := p.Int("min_count", 1)
	if err != nil {
		return nil, err
	}
	maxCount, err := p.Int("max_count", minCount)
	if err != nil {
		return nil, err
	}
	securityGroupIDs, err := params.EnsureStringList(p["security_group_ids"])
	if err != nil {
		return nil, err
	}
	tagMap, err := params.EnsureMap(p["tags"])
	if err != nil {
		return nil, err
	}

	input := &ec2.RunInstancesInput{
		ImageId:      awssdk.String(amiID),
		InstanceType: ec2types.InstanceType(instanceType),
		MinCount:     awssdk.Int32(int32(minCount)),
		MaxCount:     awssdk.Int32(int32(maxCount)),
	}

	if keyName := p.String("key_name"); keyName != "" {
		input.KeyName = awssdk.String(keyName)
	}
	if subnetID := p.String("subnet_id"); subnetID != "" {
		input.SubnetId = awssdk.String(subnetID)
	}
	if len(securityGroupIDs) > 0 {
		input.SecurityGroupIds = securityGroupIDs
	}
	if userData := p.String("user_data"); userData != "" {
		// RunInstances expects base64; boto-style callers send plain text.
		input.UserData = awssdk.String(base64.StdEncoding.EncodeToString([]byte(userData)))
	}
	if profile := p.String("iam_instance_profile"); profile != "" {
		input.IamInstanceProfile = &ec2types.IamInstanceProfileSpecification{Name: awssdk.String(profile)}
	}
	if len(tagMap) > 0 {
		input.TagSpecifications = []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags:         tagsFromMap(tagMap),
		}}
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.EC2.RunInstances(ctx, input)
	if err != nil {
		return nil, err
	}

	instanceIDs := make([]any, 0, len(resp.Instances))
	for _, instance := range resp.Instances {
		instanceIDs = append(instanceIDs, awssdk.ToString(instance.InstanceId))
	}
	return map[string]any{
		"instance_ids":   instanceIDs,
		"reservation_id": awssdk.ToString(resp.ReservationId),
	}, nil
}

func stopEC2(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	instanceID := p.String("instance_id")
	if instanceID == "" {
		return nil, params.Validationf("'instance_id' parameter is required for stop_ec2")
	}
	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.EC2.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
		Force:       awssdk.Bool(p.Bool("force")),
	})
	if err != nil {
		return nil, err
	}
	return instanceStateChanges(resp.StoppingInstances), nil
}

func terminateEC2(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	instanceID := p.String("instance_id")
	if instanceID == "" {
		return nil, params.Validationf("'instance_id' parameter is required for terminate_ec2")
	}
	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, err
	}
	return instanceStateChanges(resp.TerminatingInstances), nil
}

func listEC2Instances(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}

	items := []any{}
	paginator := ec2.NewDescribeInstancesPaginator(clients.EC2, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				state := ""
				if instance.State != nil {
					state = string(instance.State.Name)
				}
				items = append(items, map[string]any{
					"instance_id": awssdk.ToString(instance.InstanceId),
					"state":       state,
					"type":        string(instance.InstanceType),
					"public_ip":   awssdk.ToString(instance.PublicIpAddress),
					"private_ip":  awssdk.ToString(instance.PrivateIpAddress),
					"tags":        tagsToMap(instance.Tags),
				})
			}
		}
	}
	return map[string]any{"instances": items}, nil
}

func describeImages(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	input := &ec2.DescribeImagesInput{}

	owners, err := params.EnsureStringList(p["owners"])
	if err != nil {
		return nil, err
	}
	if len(owners) > 0 {
		input.Owners = owners
	}
	imageIDs, err := params.EnsureStringList(p["image_ids"])
	if err != nil {
		return nil, err
	}
	if len(imageIDs) > 0 {
		input.ImageIds = imageIDs
	}
	filters, err := normalizeFilters(p["filters"])
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		input.Filters = filters
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.EC2.DescribeImages(ctx, input)
	if err != nil {
		return nil, err
	}

	images := []any{}
	for _, image := range resp.Images {
		images = append(images, map[string]any{
			"image_id":            awssdk.ToString(image.ImageId),
			"name":                awssdk.ToString(image.Name),
			"description":         awssdk.ToString(image.Description),
			"state":               string(image.State),
			"creation_date":       awssdk.ToString(image.CreationDate),
			"root_device_type":    string(image.RootDeviceType),
			"virtualization_type": string(image.VirtualizationType),
		})
	}
	return map[string]any{"images": images}, nil
}

func describeKeyPairs(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	input := &ec2.DescribeKeyPairsInput{}

	keyNames, err := params.EnsureStringList(p["key_names"])
	if err != nil {
		return nil, err
	}
	if len(keyNames) == 0 {
		// Some callers mirror the raw API casing.
		keyNames, err = params.EnsureStringList(p["KeyNames"])
		if err != nil {
			return nil, err
		}
	}
	if len(keyNames) > 0 {
		input.KeyNames = keyNames
	}
	filters, err := normalizeFilters(p["filters"])
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		input.Filters = filters
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.EC2.DescribeKeyPairs(ctx, input)
	if err != nil {
		return nil, err
	}

	pairs := []any{}
	for _, item := range resp.KeyPairs {
		pairs = append(pairs, map[string]any{
			"key_name":    awssdk.ToString(item.KeyName),
			"key_pair_id": awssdk.ToString(item.KeyPairId),
			"fingerprint": awssdk.ToString(item.KeyFingerprint),
			"type":        string(item.KeyType),
			"tags":        tagsToMap(item.Tags),
		})
	}
	return map[string]any{"key_pairs": pairs}, nil
}

func instanceStateChanges(changes []ec2types.InstanceStateChange) map[string]any {
	entries := []any{}
	for _, item := range changes {
		previous, current := "", ""
		if item.PreviousState != nil {
			previous = string(item.PreviousState.Name)
		}
		if item.CurrentState != nil {
			current = string(item.CurrentState.Name)
		}
		entries = append(entries, map[string]any{
			"instance_id":    awssdk.ToString(item.InstanceId),
			"previous_state": previous,
			"current_state":  current,
		})
	}
	return map[string]any{"instances": entries}
}

func tagsFromMap(tagMap map[string]any) []ec2types.Tag {
	keys := make([]string, 0, len(tagMap))
	for key := range tagMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tags := make([]ec2types.Tag, 0, len(keys))
	for _, key := range keys {
		tags = append(tags, ec2types.Tag{
			Key:   awssdk.String(key),
			Value: awssdk.String(params.Stringify(tagMap[key])),
		})
	}
	return tags
}

func tagsToMap(tags []ec2types.Tag) map[string]any {
	out := map[string]any{}
	for _, tag := range tags {
		out[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
	}
	return out
}
