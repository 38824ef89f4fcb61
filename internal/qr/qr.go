// Package qr renders ticket payloads as QR images and reads them back from
// captured frames.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrNoCode means the frame holds no QR code. The scan loop treats it as a
// normal miss and keeps capturing.
var ErrNoCode = errors.New("qr: no code in frame")

const DefaultSize = 256

// EncodePayload serializes the payload as JSON and renders it as a PNG.
func EncodePayload(p models.TicketPayload, size int) ([]byte, error) {
	if !p.Complete() {
		return nil, fmt.Errorf("encode payload: %w", status.ErrInvalidInput)
	}
	if size <= 0 {
		size = DefaultSize
	}

	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	png, err := qrcode.Encode(string(content), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// ParsePayload turns decoded QR text into a payload. Garbage text and payloads
// missing event_id or user_id are both rejected with status.ErrInvalidQR.
func ParsePayload(text string) (models.TicketPayload, error) {
	var p models.TicketPayload

	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return p, status.ErrInvalidQR
	}

	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&p); err != nil {
		return models.TicketPayload{}, status.ErrInvalidQR
	}
	if dec.More() {
		return models.TicketPayload{}, status.ErrInvalidQR
	}

	p.EventID = strings.TrimSpace(p.EventID)
	p.UserID = strings.TrimSpace(p.UserID)
	if !p.Complete() {
		return models.TicketPayload{}, status.ErrInvalidQR
	}
	return p, nil
}

// Decoder wraps a QR reader. A Decoder is not safe for concurrent use; the scan
// loop owns one per session.
type Decoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewDecoder() (*Decoder, error) {
	return &Decoder{
		reader: zxqr.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}, nil
}

// Decode returns the raw text of the QR code in img, ErrNoCode when there is
// none, or status.ErrInvalidQR when a code was found but could not be read.
func (d *Decoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", status.ErrInvalidQR, err)
	}

	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		var notFound gozxing.NotFoundException
		if errors.As(err, &notFound) {
			return "", ErrNoCode
		}
		return "", fmt.Errorf("%w: %v", status.ErrInvalidQR, err)
	}

	return result.GetText(), nil
}
