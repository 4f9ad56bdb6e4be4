package kserve

import (
	"fmt"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	apiVersion = "serving.kserve.io/v1beta1"
	kind       = "InferenceService"

	managedBy = "rating-eval"

	labelManagedBy        = "app.kubernetes.io/managed-by"
	labelName             = "app.kubernetes.io/name"
	annotationModelURI    = "rating-eval.giantswarm.io/model-uri"
	annotationServedModel = "rating-eval.giantswarm.io/served-model-name"
	gpuResource           = corev1.ResourceName("nvidia.com/gpu")
	maxNameLength         = 63
)

// BuildInferenceService renders cfg as an InferenceService in namespace.
func BuildInferenceService(cfg ModelConfig, namespace string) *InferenceService {
	storageURI := cfg.ModelURI
	model := &PredictorModel{
		ModelFormat: ModelFormat{Name: "vLLM"},
		StorageURI:  &storageURI,
		Args:        cfg.runtimeArgs(),
	}
	if cfg.Runtime != "" {
		rt := cfg.Runtime
		model.Runtime = &rt
	}
	if cfg.GPUCount > 0 {
		gpus := resource.MustParse(strconv.Itoa(cfg.GPUCount))
		model.Resources = corev1.ResourceRequirements{
			Requests: corev1.ResourceList{gpuResource: gpus},
			Limits:   corev1.ResourceList{gpuResource: gpus},
		}
	}

	return &InferenceService{
		TypeMeta: metav1.TypeMeta{APIVersion: apiVersion, Kind: kind},
		ObjectMeta: metav1.ObjectMeta{
			Name:      sanitizeName(cfg.Name),
			Namespace: namespace,
			Labels: map[string]string{
				labelManagedBy: managedBy,
				labelName:      sanitizeName(cfg.Name),
			},
			Annotations: map[string]string{
				annotationModelURI:    cfg.ModelURI,
				annotationServedModel: cfg.servedName(),
			},
		},
		Spec: InferenceServiceSpec{Predictor: PredictorSpec{Model: model}},
	}
}

func toUnstructured(isvc *InferenceService) (*unstructured.Unstructured, error) {
	obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(isvc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert InferenceService to unstructured: %w", err)
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

func fromUnstructured(obj *unstructured.Unstructured) (*InferenceService, error) {
	isvc := &InferenceService{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, isvc); err != nil {
		return nil, fmt.Errorf("failed to convert unstructured to InferenceService: %w", err)
	}
	return isvc, nil
}

// sanitizeName maps a model name onto a DNS-1035 label: lowercase
// alphanumerics and dashes, starting with a letter, at most 63 characters.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '_', r == '.', r == '/', r == '@', r == ':':
			b.WriteByte('-')
		}
	}

	out := b.String()
	if out != "" && (out[0] < 'a' || out[0] > 'z') {
		out = "m-" + out
	}
	if len(out) > maxNameLength {
		out = out[:maxNameLength]
	}
	return strings.TrimRight(out, "-")
}

// EndpointURL is the cluster-local OpenAI-compatible base URL for name.
func EndpointURL(name, namespace string) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local/v1", sanitizeName(name), namespace)
}

// openAIBaseURL appends the /v1 prefix vLLM serves the OpenAI API under.
func openAIBaseURL(serviceURL string) string {
	u := strings.TrimRight(serviceURL, "/")
	if strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}
