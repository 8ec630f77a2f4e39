package cluster

import (
	"context"
	"fmt"
	"io"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/remotecommand"
	"k8s.io/client-go/util/homedir"
)

// KubernetesBackend drives the cluster API via client-go. Logs come from the
// pod log subresource, exec goes over a SPDY channel with separate
// stdout/stderr streams.
type KubernetesBackend struct {
	clientset  *kubernetes.Clientset
	restConfig *rest.Config
	inCluster  bool
}

func (k *KubernetesBackend) Name() string {
	return "kubernetes"
}

func (k *KubernetesBackend) Initialize(ctx context.Context) error {
	cfg, err := rest.InClusterConfig()
	if err == nil {
		k.inCluster = true
	} else {
		kubeconfig := clientcmd.NewDefaultClientConfigLoadingRules().GetDefaultFilename()
		if home := homedir.HomeDir(); home != "" && kubeconfig == "" {
			kubeconfig = home + "/.kube/config"
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return fmt.Errorf("k8s config: %w", err)
		}
	}

	k.restConfig = cfg
	k.clientset, err = kubernetes.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("k8s clientset: %w", err)
	}

	// Cheap connectivity probe before declaring the backend usable.
	if _, err := k.clientset.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("k8s api probe: %w", err)
	}
	return nil
}

// ResolvePods lists workers labeled prefix=<prefix>, falling back to a pod
// name prefix match when no labels are set.
func (k *KubernetesBackend) ResolvePods(ctx context.Context, namespace, prefix string) ([]Pod, error) {
	list, err := k.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("prefix=%s", prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}

	items := list.Items
	if len(items) == 0 {
		all, err := k.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("list pods: %w", err)
		}
		for _, p := range all.Items {
			if strings.HasPrefix(p.Name, prefix) {
				items = append(items, p)
			}
		}
	}

	pods := make([]Pod, 0, len(items))
	for _, p := range items {
		pod := Pod{
			Name:      p.Name,
			Namespace: p.Namespace,
			Ready:     podReady(&p),
		}
		if len(p.Spec.Containers) > 0 {
			pod.Container = p.Spec.Containers[0].Name
		}
		pods = append(pods, pod)
	}
	return pods, nil
}

func podReady(p *corev1.Pod) bool {
	if p.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cs := range p.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return len(p.Status.ContainerStatuses) > 0
}

func (k *KubernetesBackend) OpenLogStream(ctx context.Context, opts LogOptions) (io.ReadCloser, error) {
	req := k.clientset.CoreV1().Pods(opts.Namespace).GetLogs(opts.Pod, &corev1.PodLogOptions{
		Container: opts.Container,
		Follow:    opts.Follow,
		TailLines: opts.TailLines,
	})
	rc, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("open log stream: %w", err)
	}
	return rc, nil
}

func (k *KubernetesBackend) StartExec(ctx context.Context, pod Pod, command []string) (*ExecChannel, error) {
	req := k.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod.Name).
		Namespace(pod.Namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: pod.Container,
			Command:   command,
			Stdin:     false,
			Stdout:    true,
			Stderr:    true,
			TTY:       false,
		}, scheme.ParameterCodec)

	exec, err := remotecommand.NewSPDYExecutor(k.restConfig, "POST", req.URL())
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}

	deliveries := make(chan Delivery, 64)
	result := make(chan ExecResult, 1)

	go func() {
		err := exec.StreamWithContext(ctx, remotecommand.StreamOptions{
			Stdout: &streamWriter{stream: Stdout, ch: deliveries, ctx: ctx},
			Stderr: &streamWriter{stream: Stderr, ch: deliveries, ctx: ctx},
		})
		close(deliveries)

		code := 0
		if err != nil {
			if exitErr, ok := err.(interface{ ExitStatus() int }); ok {
				code = exitErr.ExitStatus()
				err = nil
			}
		}
		result <- ExecResult{ExitCode: code, Err: err}
	}()

	return &ExecChannel{Deliveries: deliveries, Result: result}, nil
}
