package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Request
		wantErr bool
	}{
		{
			name: "save key string payload",
			raw:  `{"action":"saveKey","payload":"a2V5"}`,
			want: Request{Action: ActionSaveKey, Key: []byte("a2V5")},
		},
		{
			name: "save key opaque object payload",
			raw:  `{"action":"saveKey","payload":{"k":1}}`,
			want: Request{Action: ActionSaveKey, Key: []byte(`{"k":1}`)},
		},
		{
			name: "public render with attribute flag",
			raw:  `{"action":"render","payload":{"id":"frame","data":"aGVsbG8=","isPublic":"1"}}`,
			want: Render("frame", "aGVsbG8=", true),
		},
		{
			name: "private render with bool flag",
			raw:  `{"action":"render","payload":{"id":"frame","data":"a:b","isPublic":false}}`,
			want: Render("frame", "a:b", false),
		},
		{
			name: "render flag missing means private",
			raw:  `{"action":"render","payload":{"id":"frame","data":"a:b"}}`,
			want: Render("frame", "a:b", false),
		},
		{
			name: "unknown action passes through",
			raw:  `{"action":"ping"}`,
			want: Request{Action: ActionPing},
		},
		{name: "missing action", raw: `{"payload":"x"}`, wantErr: true},
		{name: "render without payload", raw: `{"action":"render"}`, wantErr: true},
		{name: "bad flag", raw: `{"action":"render","payload":{"id":"f","isPublic":"yes"}}`, wantErr: true},
		{name: "not json", raw: `render please`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	raw, err := Encode(Response{Action: ActionKeySaved})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"keySaved"}`, string(raw))

	raw, err = Encode(Response{Action: ActionRenderFailed, ID: "f", Error: ReasonTimeout})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"renderFailed","id":"f","error":"timeout"}`, string(raw))
}

func TestDecodePublic(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{name: "padded", data: "aGVsbG8=", want: "hello"},
		{name: "unpadded", data: "aGVsbG8", want: "hello"},
		{name: "wrapped lines", data: "aGVs\nbG8=", want: "hello"},
		{name: "empty", data: "", want: ""},
		{name: "not base64", data: "<p>hi</p>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePublic(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestElementPayloadAttributes(t *testing.T) {
	env, err := Decode([]byte(`{"action":"mount","payload":{"id":"a","public":"1","data":"aGk="}}`))
	require.NoError(t, err)

	var p ElementPayload
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, map[string]string{"data": "aGk=", "public": "1"}, p.Attributes())

	p.Public = false
	assert.Equal(t, map[string]string{"data": "aGk="}, p.Attributes())
}

func TestRenderCallBind(t *testing.T) {
	env, err := Decode([]byte(`{"action":"render","payload":{"id":"a","key":"c2VjcmV0"}}`))
	require.NoError(t, err)

	var call RenderCall
	require.NoError(t, env.Bind(&call))
	assert.Equal(t, RenderCall{ID: "a", Key: "c2VjcmV0"}, call)

	_, err = Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
