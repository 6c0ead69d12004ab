package k8sprovider

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
)

// gvr is the BatchSandbox GroupVersionResource, fixed at compile time:
// this provider only ever talks to one CRD.
var gvr = schema.GroupVersionResource{Group: Group, Version: Version, Resource: Resource}

// Provider implements provider.Provider against a Kubernetes cluster's
// BatchSandbox custom resource via the dynamic client.
type Provider struct {
	client       dynamic.Interface
	cfg          Config
	userTemplate map[string]interface{} // nil if cfg.TemplatePath is unset
}

// New builds a dynamic client from cfg.Kubeconfig (or in-cluster config
// when unset) and loads the optional user template.
func New(cfg Config) (*Provider, error) {
	restCfg, err := loadRestConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.K8sInitializationError, err, "failed to build kubernetes client config")
	}

	cli, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, sandboxerr.Wrap(sandboxerr.K8sInitializationError, err, "failed to construct dynamic client")
	}

	p := &Provider{client: cli, cfg: cfg}

	if cfg.TemplatePath != "" {
		tmpl, err := loadUserTemplate(cfg.TemplatePath)
		if err != nil {
			return nil, sandboxerr.Wrap(sandboxerr.K8sInitializationError, err, "failed to load user template %s", cfg.TemplatePath)
		}
		p.userTemplate = tmpl
	}

	return p, nil
}

func loadRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
}

func namespaceOrDefault(p *Provider, namespace string) string {
	if namespace != "" {
		return namespace
	}
	return p.cfg.Namespace
}

func (p *Provider) Close() error { return nil }
