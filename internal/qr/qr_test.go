package qr

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	payload := models.TicketPayload{
		EventID:  "evt_spring_fest",
		UserID:   "usr_42",
		Ticket:   "6f1c2a8e-8a57-4a0e-9a53-1c2b7d9b1f00",
		IssuedAt: 1760000000,
	}

	data, err := EncodePayload(payload, 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	dec, err := NewDecoder()
	require.NoError(t, err)

	text, err := dec.Decode(img)
	require.NoError(t, err)

	got, err := ParsePayload(text)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEncodePayload_RejectsIncomplete(t *testing.T) {
	_, err := EncodePayload(models.TicketPayload{EventID: "E1"}, 0)
	assert.ErrorIs(t, err, status.ErrInvalidInput)
}

func TestDecode_BlankFrameHasNoCode(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	dec, err := NewDecoder()
	require.NoError(t, err)

	_, err = dec.Decode(img)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    models.TicketPayload
		wantErr bool
	}{
		{"Minimal payload", `{"event_id":"E1","user_id":"U1"}`, models.TicketPayload{EventID: "E1", UserID: "U1"}, false},
		{"Surrounding whitespace", "  {\"event_id\":\"E1\",\"user_id\":\"U1\"}\n", models.TicketPayload{EventID: "E1", UserID: "U1"}, false},
		{"Unknown fields ignored", `{"event_id":"E1","user_id":"U1","seat":"A4"}`, models.TicketPayload{EventID: "E1", UserID: "U1"}, false},
		{"Plain text", "https://example.com/ticket/123", models.TicketPayload{}, true},
		{"Truncated JSON", `{"event_id":"E1","user_`, models.TicketPayload{}, true},
		{"Missing user", `{"event_id":"E1"}`, models.TicketPayload{}, true},
		{"Blank event", `{"event_id":"  ","user_id":"U1"}`, models.TicketPayload{}, true},
		{"Wrong types", `{"event_id":1,"user_id":2}`, models.TicketPayload{}, true},
		{"Trailing document", `{"event_id":"E1","user_id":"U1"}{"event_id":"E2"}`, models.TicketPayload{}, true},
		{"Empty", "", models.TicketPayload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrInvalidQR)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
