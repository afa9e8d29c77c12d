package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

func TestOwnerRefKey(t *testing.T) {
	assert.Equal(t, "entity:a", model.EntityOwner("a").Key())
	assert.Equal(t, "object:10", model.ObjectOwner("10").Key())
	assert.Equal(t, "object:10", model.ObjectKey("10"))
}

func TestParseSourceKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    model.OwnerRef
		wantErr bool
	}{
		{name: "entity", key: "entity:a", want: model.EntityOwner("a")},
		{name: "object", key: "object:9", want: model.ObjectOwner("9")},
		{name: "id with colon", key: "object:x:y", want: model.ObjectOwner("x:y")},
		{name: "no separator", key: "entity", wantErr: true},
		{name: "unknown kind", key: "person:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ParseSourceKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrInvalidSourceKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, model.KindEntity.Valid())
	assert.True(t, model.KindObject.Valid())
	assert.False(t, model.Kind("").Valid())
	assert.False(t, model.Kind("person").Valid())
}

func TestOwnershipWeight(t *testing.T) {
	o := model.Ownership{Percent: 42}
	assert.InDelta(t, 0.42, o.Weight(), 1e-12)
}
