package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Decision
	}{
		{"model.obj", UsesSeparateMaterials},
		{"./models/Model.OBJ", UsesSeparateMaterials},
		{"a/b.c.obj", UsesSeparateMaterials},
		{"dunot.glb", UsesPackagedScene},
		{"scene.GLTF", UsesPackagedScene},
		{"assets/v1.2/scene.gltf", UsesPackagedScene},
		{"model.xyz", Unsupported},
		{"model", Unsupported},
		{"dir.obj/model", Unsupported},
		{"model.obj.bak", Unsupported},
		{"", Unsupported},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			got, err := Classify(test.path)
			assert.Equal(t, test.want, got)
			if test.want == Unsupported {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedFormat))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUnsupportedError(t *testing.T) {
	_, err := Classify("model.xyz")

	var unsupported *UnsupportedError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "xyz", unsupported.Extension)
	assert.Contains(t, unsupported.Error(), `"xyz"`)
	assert.Contains(t, unsupported.Hint(), ".obj")

	_, err = Classify("README")
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, err.Error(), "no extension")
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "obj", Extension("A/B/C.Obj"))
	assert.Equal(t, "gltf", Extension(`C:\models\scene.gltf`))
	assert.Equal(t, "", Extension("models.d/readme"))
	assert.Equal(t, "", Extension("trailingdot."))
}

func TestMaterialPathFor(t *testing.T) {
	assert.Equal(t, "model.mtl", MaterialPathFor("model.obj"))
	assert.Equal(t, "a/b.c.mtl", MaterialPathFor("a/b.c.obj"))
	assert.Equal(t, "./models/cube.mtl", MaterialPathFor("./models/cube.obj"))
	assert.Equal(t, "dir.v2/model.mtl", MaterialPathFor("dir.v2/model"))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "separate-materials", UsesSeparateMaterials.String())
	assert.Equal(t, "packaged-scene", UsesPackagedScene.String())
	assert.Equal(t, "unsupported", Unsupported.String())
	assert.Equal(t, "unsupported", Decision(42).String())
}
