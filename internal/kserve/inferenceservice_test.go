package kserve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestBuildInferenceService(t *testing.T) {
	cfg := DefaultModelConfig("Qwen2.5-1.5B", "hf://Qwen/Qwen2.5-1.5B-Instruct")

	isvc := BuildInferenceService(cfg, testNamespace)

	assert.Equal(t, apiVersion, isvc.APIVersion)
	assert.Equal(t, kind, isvc.Kind)
	assert.Equal(t, "qwen2-5-1-5b", isvc.Name)
	assert.Equal(t, testNamespace, isvc.Namespace)
	assert.Equal(t, managedBy, isvc.Labels[labelManagedBy])
	assert.Equal(t, "hf://Qwen/Qwen2.5-1.5B-Instruct", isvc.Annotations[annotationModelURI])
	assert.Equal(t, "qwen2-5-1-5b", isvc.Annotations[annotationServedModel])

	model := isvc.Spec.Predictor.Model
	require.NotNil(t, model)
	assert.Equal(t, "vLLM", model.ModelFormat.Name)
	require.NotNil(t, model.Runtime)
	assert.Equal(t, "kserve-vllm", *model.Runtime)
	assert.Equal(t, []string{"--served-model-name=qwen2-5-1-5b", "--max-model-len=4096"}, model.Args)

	gpus := model.Resources.Limits[gpuResource]
	assert.Equal(t, "1", gpus.String())
}

func TestBuildInferenceServiceUnstructured(t *testing.T) {
	cfg := DefaultModelConfig("llama", "hf://meta-llama/Llama-3.1-8B-Instruct")
	cfg.ServedModelName = "llama-rater"
	cfg.GPUCount = 2
	cfg.RuntimeArgs = []string{"--tensor-parallel-size=2"}

	obj, err := toUnstructured(BuildInferenceService(cfg, "default"))
	require.NoError(t, err)

	storageURI, found, err := unstructured.NestedString(obj.Object, "spec", "predictor", "model", "storageUri")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hf://meta-llama/Llama-3.1-8B-Instruct", storageURI)

	args, found, err := unstructured.NestedStringSlice(obj.Object, "spec", "predictor", "model", "args")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"--served-model-name=llama-rater", "--max-model-len=4096", "--tensor-parallel-size=2"}, args)

	gpuReq, found, err := unstructured.NestedString(obj.Object, "spec", "predictor", "model", "resources", "requests", "nvidia.com/gpu")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", gpuReq)

	back, err := fromUnstructured(obj)
	require.NoError(t, err)
	assert.Equal(t, "llama", back.Name)
	assert.False(t, back.Status.IsReady())
}

func TestBuildInferenceServiceWithoutGPU(t *testing.T) {
	cfg := ModelConfig{Name: "cpu", ModelURI: "hf://org/tiny"}

	isvc := BuildInferenceService(cfg, "default")

	assert.Nil(t, isvc.Spec.Predictor.Model.Runtime)
	assert.Empty(t, isvc.Spec.Predictor.Model.Resources.Limits)
	assert.Equal(t, []string{"--served-model-name=cpu"}, isvc.Spec.Predictor.Model.Args)
}

func TestSanitizeName(t *testing.T) {
	long := "trailing-dash-after-truncation-" + strings.Repeat("abcdefghij", 6)
	tests := []struct {
		input    string
		expected string
	}{
		{"qwen-1b", "qwen-1b"},
		{"Qwen-1B", "qwen-1b"},
		{"org/model@v1", "org-model-v1"},
		{"openai/gpt-3.5-turbo", "openai-gpt-3-5-turbo"},
		{"_leading", "m--leading"},
		{"7b-model", "m-7b-model"},
		{"ünïcode", "ncode"},
		{long, strings.TrimRight(long[:63], "-")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestEndpointURLs(t *testing.T) {
	assert.Equal(t, "http://qwen.rating-eval.svc.cluster.local/v1", EndpointURL("qwen", "rating-eval"))

	assert.Equal(t, "http://qwen.example.com/v1", openAIBaseURL("http://qwen.example.com"))
	assert.Equal(t, "http://qwen.example.com/v1", openAIBaseURL("http://qwen.example.com/"))
	assert.Equal(t, "http://qwen.example.com/v1", openAIBaseURL("http://qwen.example.com/v1"))
}

func TestDefaultModelConfig(t *testing.T) {
	cfg := DefaultModelConfig("m", "hf://org/m")
	assert.Equal(t, "kserve-vllm", cfg.Runtime)
	assert.Equal(t, 1, cfg.GPUCount)
	assert.Equal(t, defaultMaxModelLen, cfg.MaxModelLen)
	assert.Equal(t, defaultReadyTimeout, cfg.ReadyTimeout)
	assert.Equal(t, "m", cfg.servedName())
}
