package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/k8s/client"
)

const testRecipes = `kind: RecipeTable
apiVersion: craftplan.dev/v1
recipes:
  A:
    craft: M
    items:
      B: 3
  B:
    craft: M
`

const testMachines = `kind: MachineTable
apiVersion: craftplan.dev/v1
machines:
  M:
    speed: [1.0]
`

const testDocument = `kind: Catalog
apiVersion: craftplan.dev/v1
recipes:
  A:
    craft: M
    items:
      B: 3
machines:
  M:
    speed: [1.0, 0.5]
`

func TestLoad_Embedded(t *testing.T) {
	c, err := Load(context.Background(), NewEmbeddedDataProvider(dataFS, "data"))
	require.NoError(t, err)

	assert.Equal(t, sourceEmbedded, c.Source())
	assert.Contains(t, c.Recipes, "advanced-circuit")
	assert.Contains(t, c.Machines, "assembler")
	assert.True(t, c.HasItem("crude-oil"))

	r, ok := c.Recipe("engine")
	require.True(t, ok)
	require.Len(t, r.Items, 3)
	assert.Equal(t, "steel-plate", r.Items[0].Item)
	assert.Equal(t, "pipe", r.Items[2].Item)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string][]byte
		code  cperrors.ErrorCode
	}{
		{
			name:  "missing machines",
			files: map[string][]byte{RecipesFileName: []byte(testRecipes)},
			code:  cperrors.ErrCodeNotFound,
		},
		{
			name: "wrong kind",
			files: map[string][]byte{
				RecipesFileName:  []byte(testMachines),
				MachinesFileName: []byte(testMachines),
			},
			code: cperrors.ErrCodeInvalidRequest,
		},
		{
			name: "bad yaml",
			files: map[string][]byte{
				RecipesFileName:  []byte("recipes: ["),
				MachinesFileName: []byte(testMachines),
			},
			code: cperrors.ErrCodeInvalidRequest,
		},
		{
			name: "unknown craft machine",
			files: map[string][]byte{
				RecipesFileName:  []byte("recipes:\n  A:\n    craft: X\n"),
				MachinesFileName: []byte(testMachines),
			},
			code: cperrors.ErrCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), NewMapDataProvider("test", tt.files))
			require.Error(t, err)
			assert.Equal(t, tt.code, cperrors.CodeOf(err))
		})
	}

	_, err := Load(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, NewEmbeddedDataProvider(dataFS, "data"))
	assert.Error(t, err)
}

func TestDefault_CachedPerProvider(t *testing.T) {
	t.Cleanup(func() { SetDataProvider(nil) })
	SetDataProvider(nil)

	first, err := Default(context.Background())
	require.NoError(t, err)
	second, err := Default(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	SetDataProvider(NewMapDataProvider("custom", map[string][]byte{
		RecipesFileName:  []byte(testRecipes),
		MachinesFileName: []byte(testMachines),
	}))

	third, err := Default(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, "custom", third.Source())
}

func TestLoadFrom_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, RecipesFileName, "recipes:\n  widget:\n    craft: assembler\n    items:\n      gear: 2\n")

	c, err := LoadFrom(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Source())
	assert.Contains(t, c.Recipes, "widget")
	assert.Contains(t, c.Recipes, "gear")
}

func TestLoadFrom_Document(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, filepath.Dir(path), filepath.Base(path), testDocument)

	c, err := LoadFrom(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Source())
	assert.Equal(t, []float64{1.0, 0.5}, c.Machines["M"].Speed)
	assert.True(t, c.HasItem("B"))
}

func TestLoadFrom_DocumentWrongKind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yaml", testMachines)

	_, err := LoadFrom(context.Background(), filepath.Join(dir, "catalog.yaml"))
	require.Error(t, err)
	assert.Equal(t, cperrors.ErrCodeInvalidRequest, cperrors.CodeOf(err))
}

func TestLoadFrom_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, testDocument)
	}))
	defer srv.Close()

	c, err := LoadFrom(context.Background(), srv.URL+"/catalog.yaml")
	require.NoError(t, err)
	assert.Contains(t, c.Recipes, "A")
}

func TestLoadFrom_ConfigMap(t *testing.T) {
	client.SetKubeClient(fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "catalog", Namespace: "games"},
		Data: map[string]string{
			RecipesFileName:  testRecipes,
			MachinesFileName: testMachines,
		},
	}), nil)
	t.Cleanup(func() { client.SetKubeClient(nil, nil) })

	c, err := LoadFrom(context.Background(), "cm://games/catalog")
	require.NoError(t, err)
	assert.Equal(t, "cm://games/catalog", c.Source())
	assert.Contains(t, c.Recipes, "A")

	_, err = LoadFrom(context.Background(), "cm://games/missing")
	assert.Error(t, err)
}

func TestLoadFrom_Missing(t *testing.T) {
	_, err := LoadFrom(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, cperrors.ErrCodeNotFound, cperrors.CodeOf(err))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

func TestLoadMetrics_LabelledBySourceKind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, RecipesFileName, "recipes:\n  widget:\n    craft: assembler\n")
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, filepath.Dir(path), filepath.Base(path), testDocument)

	dirBefore := counterValue(t, loadTotal.WithLabelValues(kindDir, "success"))
	fileBefore := counterValue(t, loadTotal.WithLabelValues(kindFile, "success"))

	_, err := LoadFrom(context.Background(), dir)
	require.NoError(t, err)
	_, err = LoadFrom(context.Background(), path)
	require.NoError(t, err)

	assert.InDelta(t, dirBefore+1, counterValue(t, loadTotal.WithLabelValues(kindDir, "success")), 0)
	assert.InDelta(t, fileBefore+1, counterValue(t, loadTotal.WithLabelValues(kindFile, "success")), 0)

	kinds := map[string]bool{
		kindEmbedded: true, kindDir: true, kindOCI: true, kindConfigMap: true,
		kindHTTP: true, kindFile: true, kindMemory: true,
	}
	ch := make(chan prometheus.Metric, 64)
	go func() {
		loadTotal.Collect(ch)
		close(ch)
	}()
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		for _, l := range pb.GetLabel() {
			if l.GetName() == "kind" {
				assert.True(t, kinds[l.GetValue()], "unexpected kind label %q", l.GetValue())
			}
		}
	}
}

func TestSourceKinds(t *testing.T) {
	assert.Equal(t, kindHTTP, documentKind("https://example.com/catalog.yaml"))
	assert.Equal(t, kindHTTP, documentKind("http://example.com/catalog.yaml"))
	assert.Equal(t, kindFile, documentKind("/tmp/catalog.yaml"))

	assert.Equal(t, kindEmbedded, providerKind(NewEmbeddedDataProvider(dataFS, "data")))
	assert.Equal(t, kindMemory, providerKind(NewMapDataProvider("test", nil)))
}
