package aws

import (
	"context"
	"encoding/json"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/bgdnvk/stackpilot/internal/params"
)

func createCluster(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	clusterName := p.String("cluster_name")
	if clusterName == "" {
		return nil, params.Validationf("'cluster_name' parameter is required for create_cluster")
	}
	tagMap, err := params.EnsureMap(p["tags"])
	if err != nil {
		return nil, err
	}

	input := &ecs.CreateClusterInput{ClusterName: awssdk.String(clusterName)}
	if len(tagMap) > 0 {
		input.Tags = ecsTagsFromMap(tagMap)
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.ECS.CreateCluster(ctx, input)
	if err != nil {
		return nil, err
	}

	result := map[string]any{"cluster_arn": "", "status": ""}
	if resp.Cluster != nil {
		result["cluster_arn"] = awssdk.ToString(resp.Cluster.ClusterArn)
		result["status"] = awssdk.ToString(resp.Cluster.Status)
	}
	return result, nil
}

func registerTaskDefinition(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	family := p.String("family")
	if family == "" {
		return nil, params.Validationf("'family' parameter is required for register_task_definition")
	}
	definitions, err := decodeContainerDefinitions(p["container_definitions"])
	if err != nil {
		return nil, err
	}

	networkMode := p.String("network_mode")
	if networkMode == "" {
		networkMode = "awsvpc"
	}
	input := &ecs.RegisterTaskDefinitionInput{
		Family:               awssdk.String(family),
		ContainerDefinitions: definitions,
		NetworkMode:          ecstypes.NetworkMode(networkMode),
	}

	compat, err := params.EnsureStringList(p["requires_compatibilities"])
	if err != nil {
		return nil, err
	}
	for _, c := range compat {
		input.RequiresCompatibilities = append(input.RequiresCompatibilities, ecstypes.Compatibility(c))
	}
	if cpu := p.String("cpu"); cpu != "" {
		input.Cpu = awssdk.String(cpu)
	}
	if memory := p.String("memory"); memory != "" {
		input.Memory = awssdk.String(memory)
	}
	if roleARN := p.String("execution_role_arn"); roleARN != "" {
		input.ExecutionRoleArn = awssdk.String(roleARN)
	}
	if roleARN := p.String("task_role_arn"); roleARN != "" {
		input.TaskRoleArn = awssdk.String(roleARN)
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.ECS.RegisterTaskDefinition(ctx, input)
	if err != nil {
		return nil, err
	}

	result := map[string]any{"task_definition_arn": "", "revision": 0}
	if resp.TaskDefinition != nil {
		result["task_definition_arn"] = awssdk.ToString(resp.TaskDefinition.TaskDefinitionArn)
		result["revision"] = resp.TaskDefinition.Revision
	}
	return result, nil
}

func createService(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	cluster := p.String("cluster")
	if cluster == "" {
		return nil, params.Validationf("'cluster' parameter is required for create_service")
	}
	serviceName := p.String("service_name")
	if serviceName == "" {
		return nil, params.Validationf("'service_name' parameter is required for create_service")
	}
	taskDefinition := p.String("task_definition")
	if taskDefinition == "" {
		return nil, params.Validationf("'task_definition' parameter is required for create_service")
	}
	desiredCount, err := p.Int("desired_count", 1)
	if err != nil {
		return nil, err
	}
	networkConfiguration, err := buildNetworkConfiguration(p)
	if err != nil {
		return nil, err
	}

	launchType := p.String("launch_type")
	if launchType == "" {
		launchType = "FARGATE"
	}
	input := &ecs.CreateServiceInput{
		Cluster:        awssdk.String(cluster),
		ServiceName:    awssdk.String(serviceName),
		TaskDefinition: awssdk.String(taskDefinition),
		DesiredCount:   awssdk.Int32(int32(desiredCount)),
		LaunchType:     ecstypes.LaunchType(launchType),
	}
	if platformVersion := p.String("platform_version"); platformVersion != "" {
		input.PlatformVersion = awssdk.String(platformVersion)
	}
	if networkConfiguration != nil {
		input.NetworkConfiguration = networkConfiguration
	}
	if role := p.String("role"); role != "" {
		input.Role = awssdk.String(role)
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.ECS.CreateService(ctx, input)
	if err != nil {
		return nil, err
	}
	return serviceResult(resp.Service), nil
}

func updateService(ctx context.Context, d *Dispatcher, p params.Bag) (map[string]any, error) {
	cluster := p.String("cluster")
	if cluster == "" {
		return nil, params.Validationf("'cluster' parameter is required for update_service")
	}
	serviceName := p.String("service_name")
	if serviceName == "" {
		return nil, params.Validationf("'service_name' parameter is required for update_service")
	}

	input := &ecs.UpdateServiceInput{
		Cluster: awssdk.String(cluster),
		Service: awssdk.String(serviceName),
	}
	if p.Has("desired_count") {
		desiredCount, err := p.Int("desired_count", 0)
		if err != nil {
			return nil, err
		}
		input.DesiredCount = awssdk.Int32(int32(desiredCount))
	}
	if taskDefinition := p.String("task_definition"); taskDefinition != "" {
		input.TaskDefinition = awssdk.String(taskDefinition)
	}
	if p.Has("force_new_deployment") {
		input.ForceNewDeployment = p.Bool("force_new_deployment")
	}

	clients, _, err := d.clients(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := clients.ECS.UpdateService(ctx, input)
	if err != nil {
		return nil, err
	}
	return serviceResult(resp.Service), nil
}

func serviceResult(service *ecstypes.Service) map[string]any {
	result := map[string]any{"service_arn": "", "status": ""}
	if service != nil {
		result["service_arn"] = awssdk.ToString(service.ServiceArn)
		result["status"] = awssdk.ToString(service.Status)
	}
	return result
}

// decodeContainerDefinitions accepts container definitions as objects or JSON
// strings and maps them onto the SDK shape through a JSON round trip, which
// matches field names case-insensitively (image -> Image, portMappings ->
// PortMappings, and so on).
func decodeContainerDefinitions(raw any) ([]ecstypes.ContainerDefinition, error) {
	list, err := params.EnsureList(raw)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, params.Validationf("'container_definitions' is required and must be a list")
	}

	normalized := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		m, err := params.EnsureMap(entry)
		if err != nil || m == nil {
			return nil, params.Validationf("each container definition must be an object")
		}
		normalized = append(normalized, m)
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, params.Validationf("container definitions are not serializable: %v", err)
	}
	var definitions []ecstypes.ContainerDefinition
	if err := json.Unmarshal(encoded, &definitions); err != nil {
		return nil, params.Validationf("invalid container definition shape: %v", err)
	}
	return definitions, nil
}

func buildNetworkConfiguration(p params.Bag) (*ecstypes.NetworkConfiguration, error) {
	subnets, err := params.EnsureStringList(p["subnets"])
	if err != nil {
		return nil, err
	}
	securityGroups, err := params.EnsureStringList(p["security_groups"])
	if err != nil {
		return nil, err
	}
	if len(subnets) == 0 && len(securityGroups) == 0 && !p.Has("assign_public_ip") {
		return nil, nil
	}

	conf := &ecstypes.AwsVpcConfiguration{Subnets: subnets}
	if len(securityGroups) > 0 {
		conf.SecurityGroups = securityGroups
	}
	if p.Has("assign_public_ip") {
		if p.Bool("assign_public_ip") {
			conf.AssignPublicIp = ecstypes.AssignPublicIpEnabled
		} else {
			conf.AssignPublicIp = ecstypes.AssignPublicIpDisabled
		}
	}
	return &ecstypes.NetworkConfiguration{AwsvpcConfiguration: conf}, nil
}

func ecsTagsFromMap(tagMap map[string]any) []ecstypes.Tag {
	keys := make([]string, 0, len(tagMap))
	for key := range tagMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tags := make([]ecstypes.Tag, 0, len(keys))
	for _, key := range keys {
		tags = append(tags, ecstypes.Tag{
			Key:   awssdk.String(key),
			Value: awssdk.String(params.Stringify(tagMap[key])),
		})
	}
	return tags
}
