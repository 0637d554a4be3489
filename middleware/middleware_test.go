package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tk21111/sketchroom/config"
	"github.com/Tk21111/sketchroom/drawing"
	"github.com/Tk21111/sketchroom/tool"
)

func sampleEnvelope(t *testing.T) []config.ServerMsg {
	t.Helper()
	tl, err := tool.New(tool.Eraser, 30, "red")
	require.NoError(t, err)
	ev := drawing.MakeEvent(drawing.Point{X: 1, Y: 2}, drawing.Point{X: 3.5, Y: 4}, tl)
	return []config.ServerMsg{
		{Clock: 1, Payload: config.NetworkMsg{Operation: config.OpDraw, ID: "a", Event: &ev}},
		{Clock: 2, Payload: config.NetworkMsg{Operation: config.OpReceiveCanvas, ID: "a", To: "b", Snapshot: []byte{0x89, 'P', 'N', 'G'}}},
		{Clock: 3, Payload: config.NetworkMsg{Operation: config.OpUserJoin, ID: "c", Name: "carol"}},
	}
}

func TestCodecs(t *testing.T) {
	for _, name := range []string{"json", "cbor"} {
		t.Run(name, func(t *testing.T) {
			c, err := CodecFor(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			in := sampleEnvelope(t)
			b, err := c.Encode(in)
			require.NoError(t, err)
			out, err := c.DecodeServerMsg(b)
			require.NoError(t, err)
			assert.Equal(t, in, out)

			payloads := []config.NetworkMsg{in[0].Payload, in[2].Payload}
			b, err = c.Encode(payloads)
			require.NoError(t, err)
			got, err := c.DecodeNetworkMsg(b)
			require.NoError(t, err)
			assert.Equal(t, payloads, got)
		})
	}
}

func TestCodecFrameTypes(t *testing.T) {
	assert.Equal(t, websocket.TextMessage, JSON.FrameType())
	assert.Equal(t, websocket.BinaryMessage, CBOR.FrameType())

	c, err := CodecFor("")
	require.NoError(t, err)
	assert.Equal(t, JSON, c)

	_, err = CodecFor("xml")
	assert.Error(t, err)
}

func TestCodecRejectsBadEvent(t *testing.T) {
	bad := []byte(`[{"operation":"draw","event":{"startPos":{"x":0,"y":0},"endPos":{"x":1,"y":1},"tool":{"size":-4,"color":"#000000","blur":0,"lineCap":"round","compositeOperation":"source-over"},"text":""}}]`)
	_, err := JSON.DecodeNetworkMsg(bad)
	assert.ErrorIs(t, err, drawing.ErrMalformedEvent)

	_, err = CBOR.DecodeNetworkMsg([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestGuestName(t *testing.T) {
	a := GuestName("8d3e0b0c-5b1f-4c55-9d8e-1b9b0b0b0b0b")
	assert.Equal(t, a, GuestName("8d3e0b0c-5b1f-4c55-9d8e-1b9b0b0b0b0b"))
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, GuestName("another"))
}

func TestColorFromUserIDIsParseable(t *testing.T) {
	c := ColorFromUserID("someone")
	_, err := tool.ParseColor(c)
	assert.NoError(t, err)
}

func TestCORS(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), Logging, CORS("https://draw.example"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/rooms", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://draw.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
