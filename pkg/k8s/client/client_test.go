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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

func TestBuildKubeClient_PathResolution(t *testing.T) {
	tests := []struct {
		name          string
		kubeconfigArg string
		kubeconfigEnv string
	}{
		{
			name:          "explicit invalid path",
			kubeconfigArg: "/nonexistent/path/to/kubeconfig",
		},
		{
			name:          "env var with invalid path",
			kubeconfigEnv: "/nonexistent/env/kubeconfig",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KUBECONFIG", tt.kubeconfigEnv)
			_, _, err := BuildKubeClient(tt.kubeconfigArg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to build kube config")
		})
	}
}

func TestSetKubeClient(t *testing.T) {
	fc := fake.NewSimpleClientset()
	SetKubeClient(fc, nil)
	t.Cleanup(func() { SetKubeClient(nil, nil) })

	got, cfg, err := GetKubeClient()
	require.NoError(t, err)
	assert.Same(t, fc, got.(*fake.Clientset))
	assert.NotNil(t, cfg)

	got2, _, err := GetKubeClientWithConfig("")
	require.NoError(t, err)
	assert.Same(t, fc, got2.(*fake.Clientset))
}

func TestAuthMethod(t *testing.T) {
	tests := []struct {
		name   string
		config *rest.Config
		want   string
	}{
		{"nil", nil, "none"},
		{"bearer", &rest.Config{BearerToken: "t"}, "bearer-token"},
		{"cert", &rest.Config{TLSClientConfig: rest.TLSClientConfig{CertData: []byte("x")}}, "cert"},
		{"exec", &rest.Config{ExecProvider: &clientcmdapi.ExecConfig{}}, "exec"},
		{"default", &rest.Config{}, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AuthMethod(tt.config))
		})
	}
}

func TestConfigMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	fc := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "catalog", Namespace: "games"},
		Data:       map[string]string{"recipes.yaml": "recipes: {}"},
	})

	data, err := ReadConfigMapData(ctx, fc, "games", "catalog")
	require.NoError(t, err)
	assert.Equal(t, "recipes: {}", data["recipes.yaml"])

	_, err = ReadConfigMapData(ctx, fc, "games", "missing")
	assert.Error(t, err)
}
