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
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
)

// FieldManager identifies craftplan writes in server-side apply.
const FieldManager = "craftplan"

// ReadConfigMapData returns the data of a ConfigMap.
func ReadConfigMapData(ctx context.Context, c Interface, namespace, name string) (map[string]string, error) {
	cm, err := c.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get ConfigMap %s/%s: %w", namespace, name, err)
	}
	return cm.Data, nil
}

// ApplyConfigMap creates or updates a ConfigMap atomically with server-side
// apply, taking ownership of conflicting fields.
func ApplyConfigMap(ctx context.Context, c Interface, namespace, name string, labels, data map[string]string) error {
	cm := accorev1.ConfigMap(name, namespace).
		WithLabels(labels).
		WithData(data)

	_, err := c.CoreV1().ConfigMaps(namespace).Apply(ctx, cm, metav1.ApplyOptions{
		FieldManager: FieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply ConfigMap %s/%s: %w", namespace, name, err)
	}
	return nil
}
