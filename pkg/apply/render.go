package apply

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/quickzebra/ghostctl/pkg/resource"
)

// renderExternalSecret builds the ExternalSecret object that syncs fields of
// the named cloud secret into a cluster-local secret. secretName must already
// be resolved; the mapping usually carries it as an output ref.
func renderExternalSecret(sm *resource.SecretMapping, secretName string) *unstructured.Unstructured {
	data := make([]interface{}, 0, len(sm.Fields))
	for _, f := range sm.Fields {
		data = append(data, map[string]interface{}{
			"key":      secretName,
			"name":     f.Name,
			"property": f.Property,
		})
	}

	obj := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": resource.ExternalSecretAPIVersion,
			"kind":       "ExternalSecret",
			"metadata": map[string]interface{}{
				"name":      sm.Name,
				"namespace": sm.Namespace,
			},
			"spec": map[string]interface{}{
				"backendType": "secretsManager",
				"data":        data,
			},
		},
	}
	return obj
}

// renderServiceAccount builds the ServiceAccount object annotated with the
// resolved identity role ARN
func renderServiceAccount(sa *resource.ServiceAccount, roleARN string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "v1",
			"kind":       "ServiceAccount",
			"metadata": map[string]interface{}{
				"name":      sa.Name,
				"namespace": sa.Namespace,
				"annotations": map[string]interface{}{
					resource.RoleAnnotation: roleARN,
				},
			},
		},
	}
	return obj
}

// renderSecurityGroupPolicy builds the SecurityGroupPolicy object binding the
// resolved security group ids to pods matching the selector
func renderSecurityGroupPolicy(pb *resource.PodSecurityGroupBinding, groupIDs []string) *unstructured.Unstructured {
	ids := make([]interface{}, 0, len(groupIDs))
	for _, id := range groupIDs {
		ids = append(ids, id)
	}

	matchLabels := make(map[string]interface{}, len(pb.PodSelector))
	for k, v := range pb.PodSelector {
		matchLabels[k] = v
	}

	obj := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": resource.SecurityGroupPolicyAPIVersion,
			"kind":       "SecurityGroupPolicy",
			"metadata": map[string]interface{}{
				"name":      pb.Name,
				"namespace": pb.Namespace,
			},
			"spec": map[string]interface{}{
				"podSelector": map[string]interface{}{
					"matchLabels": matchLabels,
				},
				"securityGroups": map[string]interface{}{
					"groupIds": ids,
				},
			},
		},
	}
	return obj
}
