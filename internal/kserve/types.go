// Package kserve deploys self-hosted rating models as KServe
// InferenceServices so an evaluation can target them through the same
// OpenAI-compatible client as a hosted model.
package kserve

import (
	"strconv"
	"time"
)

const (
	defaultRuntime      = "kserve-vllm"
	defaultMaxModelLen  = 4096
	defaultReadyTimeout = 15 * time.Minute
)

// ModelConfig describes the model to serve.
type ModelConfig struct {
	// Name of the InferenceService. Sanitized into a DNS label.
	Name string

	// ModelURI is the storage URI, e.g. "hf://Qwen/Qwen2.5-1.5B-Instruct".
	ModelURI string

	// ServedModelName is the model id the endpoint answers to. Empty means
	// the sanitized Name.
	ServedModelName string

	// Runtime is the ServingRuntime, "kserve-vllm" unless overridden.
	Runtime string

	GPUCount int

	// MaxModelLen caps the context window. Rating prompts are short, so a
	// small window lets larger models fit on one GPU.
	MaxModelLen int

	// RuntimeArgs are appended after the generated runtime arguments.
	RuntimeArgs []string

	ReadyTimeout time.Duration
}

// ModelStatus is the observed state of a served model.
type ModelStatus struct {
	Name            string `json:"name"`
	Ready           bool   `json:"ready"`
	EndpointURL     string `json:"endpoint_url,omitempty"`
	ServedModelName string `json:"served_model_name,omitempty"`
	ModelURI        string `json:"model_uri,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	Message         string `json:"message,omitempty"`
}

// DefaultModelConfig returns a single-GPU vLLM config for modelURI.
func DefaultModelConfig(name, modelURI string) ModelConfig {
	return ModelConfig{
		Name:         name,
		ModelURI:     modelURI,
		Runtime:      defaultRuntime,
		GPUCount:     1,
		MaxModelLen:  defaultMaxModelLen,
		ReadyTimeout: defaultReadyTimeout,
	}
}

// servedName is the model id requests must use.
func (c ModelConfig) servedName() string {
	if c.ServedModelName != "" {
		return c.ServedModelName
	}
	return sanitizeName(c.Name)
}

// runtimeArgs returns the vLLM arguments for c.
func (c ModelConfig) runtimeArgs() []string {
	args := []string{"--served-model-name=" + c.servedName()}
	if c.MaxModelLen > 0 {
		args = append(args, "--max-model-len="+strconv.Itoa(c.MaxModelLen))
	}
	return append(args, c.RuntimeArgs...)
}
