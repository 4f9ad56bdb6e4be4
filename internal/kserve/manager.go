package kserve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

var isvcGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

// Manager creates, inspects and deletes rating-eval InferenceServices in a
// single namespace.
type Manager struct {
	client    dynamic.Interface
	namespace string
}

// NewManager builds a Manager from in-cluster credentials or a kubeconfig
// (the default loading rules when kubeconfig is empty).
func NewManager(namespace, kubeconfig string, inCluster bool) (*Manager, error) {
	restConfig, err := loadRESTConfig(kubeconfig, inCluster)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	client, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	return NewManagerWithClient(client, namespace), nil
}

// NewManagerWithClient wraps an existing dynamic client.
func NewManagerWithClient(client dynamic.Interface, namespace string) *Manager {
	return &Manager{client: client, namespace: namespace}
}

func loadRESTConfig(kubeconfig string, inCluster bool) (*rest.Config, error) {
	if inCluster {
		return rest.InClusterConfig()
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
}

func (m *Manager) resource() dynamic.ResourceInterface {
	return m.client.Resource(isvcGVR).Namespace(m.namespace)
}

// Namespace returns the namespace the manager operates in.
func (m *Manager) Namespace() string {
	return m.namespace
}

// CheckCRDAvailable fails when the InferenceService CRD cannot be listed.
func (m *Manager) CheckCRDAvailable(ctx context.Context) error {
	if _, err := m.resource().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("KServe InferenceService CRD is not available in the cluster: %w", err)
	}
	return nil
}

// Deploy creates the InferenceService for cfg and blocks until it reports
// Ready or cfg.ReadyTimeout elapses.
func (m *Manager) Deploy(ctx context.Context, cfg ModelConfig) (*ModelStatus, error) {
	isvc := BuildInferenceService(cfg, m.namespace)

	obj, err := toUnstructured(isvc)
	if err != nil {
		return nil, err
	}

	slog.Info("deploying rating model",
		"name", isvc.Name,
		"model_uri", cfg.ModelURI,
		"served_model_name", cfg.servedName(),
		"gpu_count", cfg.GPUCount,
	)

	created, err := m.resource().Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create InferenceService %s: %w", isvc.Name, err)
	}

	ready, err := m.waitForReady(ctx, isvc.Name, cfg.ReadyTimeout)
	if err != nil {
		return nil, fmt.Errorf("InferenceService %s not ready: %w", isvc.Name, err)
	}

	status := m.status(ready)
	if status.CreatedAt == "" {
		status.CreatedAt = created.GetCreationTimestamp().Format(time.RFC3339)
	}
	return &status, nil
}

// Ensure returns the existing InferenceService for cfg when it is already
// Ready, and deploys it otherwise. The bool reports whether Ensure created it.
func (m *Manager) Ensure(ctx context.Context, cfg ModelConfig) (*ModelStatus, bool, error) {
	existing, err := m.Get(ctx, cfg.Name)
	switch {
	case err == nil && existing.Ready:
		slog.Info("reusing ready InferenceService", "name", existing.Name)
		return existing, false, nil
	case err == nil:
		return nil, false, fmt.Errorf("InferenceService %s exists but is not ready: %s", existing.Name, existing.Message)
	case !apierrors.IsNotFound(err):
		return nil, false, err
	}

	status, err := m.Deploy(ctx, cfg)
	if err != nil {
		return nil, true, err
	}
	return status, true, nil
}

// Teardown deletes name. A missing service is not an error.
func (m *Manager) Teardown(ctx context.Context, name string) error {
	sanitized := sanitizeName(name)
	slog.Info("tearing down InferenceService", "name", sanitized)

	grace := int64(30)
	propagation := metav1.DeletePropagationForeground
	err := m.resource().Delete(ctx, sanitized, metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
		PropagationPolicy:  &propagation,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete InferenceService %s: %w", sanitized, err)
	}
	return nil
}

// List returns every InferenceService labelled as managed by rating-eval.
func (m *Manager) List(ctx context.Context) ([]ModelStatus, error) {
	list, err := m.resource().List(ctx, metav1.ListOptions{
		LabelSelector: labelManagedBy + "=" + managedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list InferenceServices: %w", err)
	}

	statuses := make([]ModelStatus, 0, len(list.Items))
	for i := range list.Items {
		isvc, err := fromUnstructured(&list.Items[i])
		if err != nil {
			slog.Warn("skipping unreadable InferenceService", "name", list.Items[i].GetName(), "error", err)
			continue
		}
		statuses = append(statuses, m.status(isvc))
	}
	return statuses, nil
}

// Get returns the status of name. The error wraps the API error, so
// apierrors.IsNotFound works on it.
func (m *Manager) Get(ctx context.Context, name string) (*ModelStatus, error) {
	sanitized := sanitizeName(name)
	obj, err := m.resource().Get(ctx, sanitized, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get InferenceService %s: %w", sanitized, err)
	}

	isvc, err := fromUnstructured(obj)
	if err != nil {
		return nil, err
	}
	status := m.status(isvc)
	return &status, nil
}

func (m *Manager) status(isvc *InferenceService) ModelStatus {
	status := ModelStatus{
		Name:            isvc.Name,
		ServedModelName: isvc.Annotations[annotationServedModel],
		ModelURI:        isvc.Annotations[annotationModelURI],
	}
	if !isvc.CreationTimestamp.IsZero() {
		status.CreatedAt = isvc.CreationTimestamp.Format(time.RFC3339)
	}
	if status.ServedModelName == "" {
		status.ServedModelName = isvc.Name
	}

	if isvc.Status.IsReady() {
		status.Ready = true
		status.EndpointURL = m.endpoint(isvc)
	} else {
		status.Message = isvc.Status.PendingReason()
	}
	return status
}

func (m *Manager) endpoint(isvc *InferenceService) string {
	if isvc.Status.URL != "" {
		return openAIBaseURL(isvc.Status.URL)
	}
	return EndpointURL(isvc.Name, m.namespace)
}

func (m *Manager) waitForReady(ctx context.Context, name string, timeout time.Duration) (*InferenceService, error) {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	watcher, err := m.resource().Watch(ctx, metav1.ListOptions{
		FieldSelector: "metadata.name=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch InferenceService: %w", err)
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for InferenceService %s to become ready", name)
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return nil, fmt.Errorf("watch channel closed for InferenceService %s", name)
			}
			if event.Type != watch.Added && event.Type != watch.Modified {
				continue
			}
			obj, ok := event.Object.(*unstructured.Unstructured)
			if !ok {
				continue
			}
			isvc, err := fromUnstructured(obj)
			if err != nil {
				slog.Warn("failed to convert watch event", "error", err)
				continue
			}
			if isvc.Status.IsReady() {
				slog.Info("InferenceService ready", "name", name)
				return isvc, nil
			}
			slog.Debug("InferenceService not ready yet", "name", name, "reason", isvc.Status.PendingReason())
		}
	}
}
