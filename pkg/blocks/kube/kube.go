// Package kube provides the Kubernetes block: node readiness and failing
// pods for one kubeconfig context, polled via client-go. Intended for bars
// on operator workstations.
package kube

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = 30 * time.Second

// Client abstracts the Kubernetes API calls the block makes, for
// testability. The real implementation wraps a kubernetes.Clientset.
type Client interface {
	ListNodes(ctx context.Context) ([]corev1.Node, error)
	ListPods(ctx context.Context) ([]corev1.Pod, error)
}

// realClient wraps a clientset.
type realClient struct {
	cs *kubernetes.Clientset
}

func (r *realClient) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := r.cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListPods(ctx context.Context) ([]corev1.Pod, error) {
	list, err := r.cs.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// NewClient builds a real Client from a kubeconfig path and context name,
// both optional (default loading rules and current context apply).
func NewClient(kubeconfig, ctxName string) (Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if ctxName != "" {
		overrides.CurrentContext = ctxName
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("build client config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &realClient{cs: cs}, nil
}

// Config controls the kube block.
type Config struct {
	Interval   time.Duration
	Kubeconfig string
	Context    string
}

// Block renders cluster health.
type Block struct {
	cfg    Config
	client Client
	poke   chan struct{}
}

func init() {
	blocks.Register("kube", func(cfg config.Block) (blocks.Block, error) {
		client, err := NewClient(cfg.Kubeconfig, cfg.Context)
		if err != nil {
			return nil, err
		}
		return New(Config{
			Interval:   cfg.Interval.Duration,
			Kubeconfig: cfg.Kubeconfig,
			Context:    cfg.Context,
		}, client), nil
	})
}

// New creates a kube block polling through client.
func New(cfg Config, client Client) *Block {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{cfg: cfg, client: client, poke: make(chan struct{}, 1)}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "kube" }

// Refresh forces an immediate poll.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// Run polls the cluster on the configured interval. An unreachable API
// server degrades the block; the next tick retries.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		emit(b.collect(ctx))
		select {
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// collect queries nodes and pods and renders the summary.
func (b *Block) collect(ctx context.Context) blocks.RenderState {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	nodes, err := b.client.ListNodes(queryCtx)
	if err != nil {
		return blocks.RenderState{FullText: "k8s n/a", State: blocks.StateError}
	}
	pods, err := b.client.ListPods(queryCtx)
	if err != nil {
		return blocks.RenderState{FullText: "k8s n/a", State: blocks.StateError}
	}
	return Render(nodes, pods)
}

// Render summarises node readiness and pod failures.
func Render(nodes []corev1.Node, pods []corev1.Pod) blocks.RenderState {
	ready := 0
	for _, n := range nodes {
		if nodeReady(n) {
			ready++
		}
	}
	failed := 0
	for _, p := range pods {
		if p.Status.Phase == corev1.PodFailed {
			failed++
		}
	}

	state := blocks.StateGood
	switch {
	case len(nodes) == 0 || ready == 0:
		state = blocks.StateCritical
	case ready < len(nodes) || failed > 0:
		state = blocks.StateWarning
	}

	full := fmt.Sprintf("k8s %d/%d", ready, len(nodes))
	if failed > 0 {
		full = fmt.Sprintf("%s !%d", full, failed)
	}
	return blocks.RenderState{
		FullText:  full,
		ShortText: "k8s",
		State:     state,
	}
}

func nodeReady(n corev1.Node) bool {
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}
