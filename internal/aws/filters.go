package aws

import (
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/bgdnvk/stackpilot/internal/params"
)

// normalizeFilters turns heterogeneous filter input into validated EC2 SDK
// filters. Accepted shapes: a list of {Name, Values} objects, a list of
// "name=v1,v2" strings, a single object, or a single string. Entries missing
// a name or values are skipped, matching how loose chat-produced input is
// treated elsewhere.
func normalizeFilters(value any) ([]ec2types.Filter, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		var filters []ec2types.Filter
		for _, entry := range v {
			switch e := entry.(type) {
			case map[string]any:
				f, ok, err := filterFromMap(e)
				if err != nil {
					return nil, err
				}
				if ok {
					filters = append(filters, f)
				}
			case string:
				f, ok, err := filterFromString(e)
				if err != nil {
					return nil, err
				}
				if ok {
					filters = append(filters, f)
				}
			}
		}
		return filters, nil
	case map[string]any:
		return normalizeFilters([]any{v})
	case string:
		return normalizeFilters([]any{v})
	default:
		return nil, params.Validationf("filters must be provided as list, object, or string")
	}
}

func filterFromMap(entry map[string]any) (ec2types.Filter, bool, error) {
	name := params.Bag(entry).String("Name")
	if name == "" {
		name = params.Bag(entry).String("name")
	}
	rawValues := entry["Values"]
	if rawValues == nil {
		rawValues = entry["values"]
	}
	values, err := params.EnsureStringList(rawValues)
	if err != nil {
		return ec2types.Filter{}, false, err
	}
	if name == "" || len(values) == 0 {
		return ec2types.Filter{}, false, nil
	}
	if err := validateEC2Filter(name); err != nil {
		return ec2types.Filter{}, false, err
	}
	return ec2types.Filter{Name: awssdk.String(name), Values: values}, true, nil
}

func filterFromString(entry string) (ec2types.Filter, bool, error) {
	name, rest, found := strings.Cut(entry, "=")
	if !found {
		return ec2types.Filter{}, false, nil
	}
	name = strings.TrimSpace(name)
	var values []string
	for _, part := range strings.Split(rest, ",") {
		if p := strings.TrimSpace(part); p != "" {
			values = append(values, p)
		}
	}
	if name == "" || len(values) == 0 {
		return ec2types.Filter{}, false, nil
	}
	if err := validateEC2Filter(name); err != nil {
		return ec2types.Filter{}, false, err
	}
	return ec2types.Filter{Name: awssdk.String(name), Values: values}, true, nil
}
