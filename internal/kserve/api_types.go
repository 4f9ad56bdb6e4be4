package kserve

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// InferenceService mirrors the subset of serving.kserve.io/v1beta1 that a
// single-predictor vLLM deployment uses. The KServe SDK is not imported.
type InferenceService struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   InferenceServiceSpec   `json:"spec,omitempty"`
	Status InferenceServiceStatus `json:"status,omitempty"`
}

type InferenceServiceSpec struct {
	Predictor PredictorSpec `json:"predictor"`
}

type PredictorSpec struct {
	Model *PredictorModel `json:"model,omitempty"`
}

// PredictorModel is the "model" block of a predictor.
type PredictorModel struct {
	ModelFormat ModelFormat                 `json:"modelFormat"`
	Runtime     *string                     `json:"runtime,omitempty"`
	StorageURI  *string                     `json:"storageUri,omitempty"`
	Resources   corev1.ResourceRequirements `json:"resources,omitempty"`
	Args        []string                    `json:"args,omitempty"`
}

type ModelFormat struct {
	Name    string  `json:"name"`
	Version *string `json:"version,omitempty"`
}

type InferenceServiceStatus struct {
	Conditions []Condition `json:"conditions,omitempty"`
	URL        string      `json:"url,omitempty"`
}

// Condition follows the Knative condition schema.
type Condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *InferenceServiceStatus) condition(condType string) (Condition, bool) {
	for _, c := range s.Conditions {
		if c.Type == condType {
			return c, true
		}
	}
	return Condition{}, false
}

// IsReady reports whether the Ready condition is True.
func (s *InferenceServiceStatus) IsReady() bool {
	c, ok := s.condition("Ready")
	return ok && c.Status == "True"
}

// PendingReason describes why the service is not ready yet.
func (s *InferenceServiceStatus) PendingReason() string {
	c, ok := s.condition("Ready")
	switch {
	case !ok:
		return "pending"
	case c.Message != "":
		return c.Message
	case c.Reason != "":
		return c.Reason
	default:
		return "pending"
	}
}
