package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/decl"
	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/key"
)

func sampleRecord() *Record {
	return &Record{
		Name: "NetContainer",
		Providers: []ProviderFactory{
			{
				ID:  "NetContainer#client",
				Key: key.New("HttpClient", key.Qualifier{}),
				Params: []Param{
					{Name: "url", Request: key.PlainOf(key.New("String", key.Named("baseUrl")))},
				},
				Scope: "AppScope",
			},
			{
				ID:           "NetContainer#interceptor",
				Key:          key.New("Interceptor", key.Qualifier{}),
				Contribution: decl.IntoSet,
			},
		},
		Binds: []BindsDescriptor{
			{ID: "NetContainer#bindClient", Target: key.New("Client", key.Qualifier{}), Source: key.New("HttpClient", key.Qualifier{})},
			{ID: "NetContainer#handlers", Target: key.New("Map<String, Handler>", key.Qualifier{}), Multibinds: true, AllowEmpty: true},
		},
		Includes: []string{"JsonContainer", "CodecContainer", "JsonContainer"},
		Scopes:   []string{"AppScope"},
	}
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(sampleRecord())
	require.NoError(t, err)

	r, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, Version, r.Version)
	assert.Equal(t, "NetContainer", r.Name)
	assert.Equal(t, []string{"CodecContainer", "JsonContainer"}, r.Includes, "includes are sorted and deduplicated")
	require.Len(t, r.Providers, 2)
	assert.Equal(t, "NetContainer#client", r.Providers[0].ID, "providers keep declaration order")
	assert.Equal(t, decl.IntoSet, r.Providers[1].Contribution)
	assert.Equal(t, "map", r.Binds[1].MultibindingKind())
	assert.Equal(t, "", r.Binds[0].MultibindingKind())

	again, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "encoding is canonical")
}

func TestEncodeDoesNotMutate(t *testing.T) {
	r := sampleRecord()
	_, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"JsonContainer", "CodecContainer", "JsonContainer"}, r.Includes)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code bgerrors.Code
	}{
		{"garbage", "{not json", bgerrors.ErrCodeMetadataCorrupt},
		{"unknown field", `{"version":1,"name":"A","extra":true}`, bgerrors.ErrCodeMetadataCorrupt},
		{"old version", `{"version":0,"name":"A"}`, bgerrors.ErrCodeMetadataMismatch},
		{"newer version", `{"version":99,"name":"A"}`, bgerrors.ErrCodeMetadataMismatch},
		{"no name", `{"version":1}`, bgerrors.ErrCodeMetadataCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.code, bgerrors.GetCode(err))
		})
	}
}

func TestRecordEmpty(t *testing.T) {
	assert.True(t, (&Record{Name: "A"}).Empty())
	assert.False(t, (&Record{Name: "A", Includes: []string{"B"}}).Empty())
	assert.False(t, sampleRecord().Empty())
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	s := NewStore(mem)

	_, ok, err := s.Load(ctx, "NetContainer")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, sampleRecord()))
	assert.Equal(t, []string{"metadata:NetContainer"}, mem.Keys())

	r, ok, err := s.Load(ctx, "NetContainer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, r.Providers, 2)

	require.NoError(t, s.Delete(ctx, "NetContainer"))
	_, ok, err = s.Load(ctx, "NetContainer")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreNameMismatch(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	data, err := Encode(sampleRecord())
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, "metadata:Other", data, 0))

	_, _, err = NewStore(mem).Load(ctx, "Other")
	require.Error(t, err)
	assert.True(t, bgerrors.Is(err, bgerrors.ErrCodeMetadataMismatch))
}

func TestStoreScopedKeyer(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	s := NewStore(mem, WithKeyer(cache.NewScopedKeyer(cache.NewDefaultKeyer(), "proj/")))
	require.NoError(t, s.Save(ctx, sampleRecord()))
	assert.Equal(t, []string{"proj/metadata:NetContainer"}, mem.Keys())
}

func TestStoreNilCache(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	require.NoError(t, s.Save(ctx, sampleRecord()))
	_, ok, err := s.Load(ctx, "NetContainer")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, bgerrors.Is(s.Clear(ctx), bgerrors.ErrCodeUnsupported))
}
