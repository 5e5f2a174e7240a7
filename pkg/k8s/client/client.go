// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Interface is an alias for kubernetes.Interface so tests can substitute
// fake.NewSimpleClientset().
type Interface = kubernetes.Interface

var (
	mu           sync.Mutex
	cachedClient Interface
	cachedConfig *rest.Config
	clientErr    error
	initialized  bool
)

// GetKubeClient returns a process-wide Kubernetes client, creating it on
// first call. Configuration is discovered from KUBECONFIG, ~/.kube/config,
// or the in-cluster service account, in that order.
func GetKubeClient() (Interface, *rest.Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		cachedClient, cachedConfig, clientErr = BuildKubeClient("")
		initialized = true
	}
	return cachedClient, cachedConfig, clientErr
}

// GetKubeClientWithConfig returns a client for an explicit kubeconfig path.
// An empty path falls back to GetKubeClient.
func GetKubeClientWithConfig(kubeconfig string) (Interface, *rest.Config, error) {
	if kubeconfig == "" {
		return GetKubeClient()
	}
	return BuildKubeClient(kubeconfig)
}

// SetKubeClient replaces the process-wide client. Passing nil resets it so
// the next GetKubeClient call rebuilds from the environment.
func SetKubeClient(c Interface, config *rest.Config) {
	mu.Lock()
	defer mu.Unlock()
	if c == nil {
		cachedClient, cachedConfig, clientErr, initialized = nil, nil, nil, false
		return
	}
	if config == nil {
		config = &rest.Config{}
	}
	cachedClient, cachedConfig, clientErr, initialized = c, config, nil, true
}

// BuildKubeClient creates a Kubernetes client from the given kubeconfig
// file, bypassing the process-wide cache.
func BuildKubeClient(kubeconfig string) (Interface, *rest.Config, error) {
	var config *rest.Config
	var err error

	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")

		if kubeconfig == "" {
			kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
			if _, err = os.Stat(kubeconfig); os.IsNotExist(err) {
				kubeconfig = ""
			}
		}
	}

	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build kube config from %s: %w", kubeconfig, err)
		}
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return client, config, nil
}

// AuthMethod describes how config authenticates, for audit logging.
func AuthMethod(config *rest.Config) string {
	switch {
	case config == nil:
		return "none"
	case config.AuthProvider != nil:
		return config.AuthProvider.Name
	case config.ExecProvider != nil:
		return "exec"
	case config.BearerToken != "" || config.BearerTokenFile != "":
		return "bearer-token"
	case config.CertData != nil || config.CertFile != "":
		return "cert"
	default:
		return "default"
	}
}
